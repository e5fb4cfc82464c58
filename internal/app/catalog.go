package app

import "academy-quiz-service/internal/domain"

// Catalog is the ordered set of configured disciplines.
type Catalog struct {
	order []string
	byID  map[string]domain.Discipline
}

func NewCatalog(disciplines []domain.Discipline) *Catalog {
	c := &Catalog{byID: make(map[string]domain.Discipline, len(disciplines))}
	for _, d := range disciplines {
		if d.ID == "" {
			continue
		}
		if _, dup := c.byID[d.ID]; !dup {
			c.order = append(c.order, d.ID)
		}
		c.byID[d.ID] = d
	}
	return c
}

func (c *Catalog) List() []domain.Discipline {
	out := make([]domain.Discipline, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Get(id string) (domain.Discipline, error) {
	d, ok := c.byID[id]
	if !ok {
		return domain.Discipline{}, domain.ErrDisciplineNotFound
	}
	return d, nil
}

// DefaultDisciplines is the catalog used when the configuration lists none.
func DefaultDisciplines() []domain.Discipline {
	return []domain.Discipline{
		{
			ID:           "agc",
			Name:         "AGC",
			FullName:     "Armement Gros Calibre",
			Level:        "LASM 2",
			Description:  "Revision test on large-calibre armament",
			DataFile:     "quiz_data_agc.json",
			BriefingText: "Welcome to the large-calibre armament assessment. You have 60 seconds for each question. Good luck!",
		},
		{
			ID:           "munitions",
			Name:         "Généralités Munitions",
			FullName:     "Généralités sur les Munitions",
			Level:        "LASM 3",
			Description:  "Graded test on munitions fundamentals",
			DataFile:     "quiz_data_munitions.json",
			BriefingText: "Welcome to the munitions fundamentals test. You have 60 seconds for each question. Good luck!",
		},
		{
			ID:           "explosions",
			Name:         "EFFETS des Explosions",
			FullName:     "EFFETS des explosions sur les structures",
			Level:        "LASM 3",
			Description:  "Effects of explosions on military structures",
			DataFile:     "quiz_data_explosions.json",
			BriefingText: "Welcome to the assessment on the effects of explosions on structures. You have 60 seconds for each question. Good luck!",
		},
	}
}
