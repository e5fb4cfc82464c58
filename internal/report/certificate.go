package report

import (
	"fmt"
	"strings"
	"time"

	"academy-quiz-service/internal/domain"
)

type CertificateKind string

const (
	KindAchievement   CertificateKind = "achievement"
	KindParticipation CertificateKind = "participation"
)

// Certificate is the content of a student certificate.
type Certificate struct {
	Kind           CertificateKind `json:"kind"`
	Title          string          `json:"title"`
	Discipline     string          `json:"discipline"`
	Level          string          `json:"level"`
	Recipient      string          `json:"recipient"`
	Class          string          `json:"class,omitempty"`
	RegisterNumber string          `json:"registerNumber,omitempty"`
	Statement      []string        `json:"statement"`
	ScoreOutOf20   float64         `json:"scoreOutOf20"`
	ScoreDisplay   string          `json:"scoreDisplay"`
	StatusLabel    string          `json:"statusLabel"`
	Status         string          `json:"status"`
	IssuedAt       time.Time       `json:"issuedAt"`
	FileName       string          `json:"fileName"`
}

// NewCertificate picks the achievement variant at or above PassMark and the
// participation variant below it.
func NewCertificate(r domain.Result, d domain.Discipline) Certificate {
	grade := ScoreOutOf20(r.Score, r.TotalQuestions)
	c := Certificate{
		Discipline:   d.FullName,
		Level:        d.Level,
		Recipient:    FullTitle(r.Grade, r.StudentName),
		ScoreOutOf20: round2(grade),
		ScoreDisplay: fmt.Sprintf("%.2f/20", grade),
		IssuedAt:     r.CompletedAt,
		FileName:     fmt.Sprintf("Certificate_%s_%s.pdf", r.StudentName, d.ID),
	}
	if r.Class != "" && r.RegisterNumber != "" {
		c.Class = r.Class
		c.RegisterNumber = r.RegisterNumber
	}

	if grade >= PassMark {
		c.Kind = KindAchievement
		c.Title = "CERTIFICATE OF ACHIEVEMENT"
		c.StatusLabel = "OBSERVATION"
		c.Status = Observation(grade)
		c.Statement = []string{
			"This certifies that the student passed the knowledge assessment in " + d.FullName,
			"conducted in accordance with the academic requirements of the Academy, demonstrating",
			"command of the skills and knowledge required in this discipline.",
		}
		return c
	}
	c.Kind = KindParticipation
	c.Title = "CERTIFICATE OF PARTICIPATION"
	c.StatusLabel = "STATUS"
	c.Status = "PARTICIPATION"
	c.Statement = []string{
		"This attests that the student took part in the knowledge assessment in " + d.FullName,
		"conducted in accordance with the academic requirements of the Academy.",
		"The student is encouraged to deepen their knowledge to reach the required level.",
	}
	return c
}

// FullTitle prefixes a name with the student's grade when present.
func FullTitle(grade, name string) string {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return name
	}
	return grade + " " + name
}
