package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/auth"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/logging"
	"academy-quiz-service/internal/report"
	"github.com/sirupsen/logrus"
)

// APIHandler serves the JSON API for participants and the instructor dashboard.
type APIHandler struct {
	service     *app.QuizService
	coordinator *app.Coordinator
	leaderboard *app.LeaderboardService
	gate        *auth.Gate
	log         logrus.FieldLogger
	now         func() time.Time
	trusted     []netip.Prefix
}

func NewAPIHandler(service *app.QuizService, coordinator *app.Coordinator, leaderboard *app.LeaderboardService, gate *auth.Gate, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		service:     service,
		coordinator: coordinator,
		leaderboard: leaderboard,
		gate:        gate,
		log:         logging.OrDiscard(log).WithField("component", "api"),
		now:         time.Now,
	}
}

// Register mounts every API route on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/disciplines", h.listDisciplines)
	mux.HandleFunc("GET /api/disciplines/{id}", h.getDiscipline)
	mux.HandleFunc("POST /api/disciplines/{id}/join", h.join)
	mux.HandleFunc("GET /api/disciplines/{id}/session", h.sessionStatus)
	mux.HandleFunc("GET /api/disciplines/{id}/leaderboard", h.getLeaderboard)
	mux.HandleFunc("GET /api/disciplines/{id}/participants/{pid}/result", h.result)
	mux.HandleFunc("GET /api/disciplines/{id}/participants/{pid}/certificate", h.certificate)
	mux.HandleFunc("GET /api/disciplines/{id}/participants/{pid}/report", h.studentReport)

	mux.HandleFunc("POST /api/admin/login", h.login)
	mux.HandleFunc("POST /api/admin/logout", h.requireAdmin(h.logout))
	mux.HandleFunc("POST /api/admin/password", h.requireAdmin(h.changePassword))
	mux.HandleFunc("POST /api/admin/2fa/enable", h.requireAdmin(h.enable2FA))
	mux.HandleFunc("POST /api/admin/2fa/verify", h.requireAdmin(h.verify2FA))
	mux.HandleFunc("POST /api/admin/2fa/disable", h.requireAdmin(h.disable2FA))
	mux.HandleFunc("GET /api/admin/access-log", h.requireAdmin(h.accessLog))
	mux.HandleFunc("POST /api/admin/pin", h.requireAdmin(h.generatePIN))
	mux.HandleFunc("POST /api/disciplines/{id}/session/start", h.requireAdmin(h.startSession))
	mux.HandleFunc("POST /api/disciplines/{id}/session/stop", h.requireAdmin(h.stopSession))
	mux.HandleFunc("GET /api/disciplines/{id}/report", h.requireAdmin(h.consolidatedReport))
	mux.HandleFunc("GET /api/disciplines/{id}/leaderboard.csv", h.requireAdmin(h.exportCSV))
	mux.HandleFunc("DELETE /api/disciplines/{id}/leaderboard", h.requireAdmin(h.clearLeaderboard))
}

func (h *APIHandler) listDisciplines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Disciplines())
}

func (h *APIHandler) getDiscipline(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Discipline(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type joinRequest struct {
	PIN            string `json:"pin"`
	Name           string `json:"name"`
	Grade          string `json:"grade"`
	Class          string `json:"class"`
	RegisterNumber string `json:"registerNumber"`
}

func (h *APIHandler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	p, err := h.service.Join(r.Context(), r.PathValue("id"), req.PIN, domain.Participant{
		Name:           req.Name,
		Grade:          req.Grade,
		Class:          req.Class,
		RegisterNumber: req.RegisterNumber,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.service.Discipline(id); err != nil {
		writeError(w, h.log, err)
		return
	}
	status, err := h.coordinator.Status(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) entries(r *http.Request) (domain.Discipline, []domain.LeaderboardEntry, error) {
	d, err := h.service.Discipline(r.PathValue("id"))
	if err != nil {
		return domain.Discipline{}, nil, err
	}
	entries, err := h.leaderboard.Load(r.Context(), d.ID)
	return d, entries, err
}

func (h *APIHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	_, entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type resultResponse struct {
	Entry domain.LeaderboardEntry `json:"entry"`
	Rank  int                     `json:"rank"`
	Total int                     `json:"total"`
}

func (h *APIHandler) result(w http.ResponseWriter, r *http.Request) {
	_, entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	pid := r.PathValue("pid")
	for i, e := range entries {
		if e.ParticipantID == pid {
			writeJSON(w, http.StatusOK, resultResponse{Entry: e, Rank: i + 1, Total: len(entries)})
			return
		}
	}
	writeError(w, h.log, domain.ErrResultNotFound)
}

func (h *APIHandler) certificate(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Discipline(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	entry, _, err := h.service.Result(r.Context(), d.ID, r.PathValue("pid"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report.NewCertificate(entry.Result, d))
}

func (h *APIHandler) studentReport(w http.ResponseWriter, r *http.Request) {
	_, entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rep, err := report.ForParticipant(entries, r.PathValue("pid"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type lockedResponse struct {
	Message     string    `json:"message"`
	LockedUntil time.Time `json:"lockedUntil"`
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	session, err := h.gate.Login(r.Context(), auth.LoginRequest{
		Username:  req.Username,
		Password:  req.Password,
		Code:      req.Code,
		IPAddress: h.clientIP(r),
	})
	if errors.Is(err, auth.ErrLocked) || (err != nil && statusFor(err) == http.StatusUnauthorized) {
		// the failure that trips the lock is reported as locked right away
		if lock, lerr := h.gate.Lockout(r.Context()); lerr == nil && !lock.LockedUntil.IsZero() {
			writeJSON(w, http.StatusLocked, lockedResponse{Message: auth.ErrLocked.Error(), LockedUntil: lock.LockedUntil})
			return
		}
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *APIHandler) logout(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	if err := h.gate.Logout(r.Context(), session.Token); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *APIHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	session, _ := sessionFrom(r.Context())
	if err := h.gate.ChangePassword(r.Context(), session.Token, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) enable2FA(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	enrollment, err := h.gate.Enable2FA(r.Context(), session.Token)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *APIHandler) verify2FA(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	session, _ := sessionFrom(r.Context())
	if err := h.gate.Verify2FA(r.Context(), session.Token, req.Code); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) disable2FA(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	if err := h.gate.Disable2FA(r.Context(), session.Token); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) accessLog(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	entries, err := h.gate.AccessLog(r.Context(), session.Token)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) generatePIN(w http.ResponseWriter, r *http.Request) {
	pin, err := h.coordinator.GeneratePIN(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request) {
	h.toggleSession(w, r, h.coordinator.StartSessionForAll)
}

func (h *APIHandler) stopSession(w http.ResponseWriter, r *http.Request) {
	h.toggleSession(w, r, h.coordinator.StopSession)
}

func (h *APIHandler) toggleSession(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) (domain.SessionStatus, error)) {
	d, err := h.service.Discipline(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	status, err := apply(r.Context(), d.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) consolidatedReport(w http.ResponseWriter, r *http.Request) {
	d, entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report.NewConsolidated(d, entries, h.now()))
}

func (h *APIHandler) exportCSV(w http.ResponseWriter, r *http.Request) {
	d, entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leaderboard_%s.csv"`, d.ID))
	if err := report.WriteCSV(w, entries); err != nil {
		h.log.WithError(err).WithField("discipline", d.ID).Warn("csv export interrupted")
	}
}

func (h *APIHandler) clearLeaderboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Discipline(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.leaderboard.Clear(r.Context(), d.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
