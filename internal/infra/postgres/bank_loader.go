package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"academy-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE discipline_id=$1`, disciplineID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrBankNotFound, disciplineID)
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("unmarshal bank: %w", err)
	}
	if err := bank.Validate(); err != nil {
		return domain.QuestionBank{}, err
	}
	bank.DisciplineID = disciplineID
	return bank, nil
}

// SaveBank upserts a bank after validating it.
func (l *BankLoader) SaveBank(ctx context.Context, disciplineID string, bank domain.QuestionBank) error {
	if err := bank.Validate(); err != nil {
		return err
	}
	bank.DisciplineID = ""
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO question_banks (discipline_id, data, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (discipline_id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		disciplineID, string(data))
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}
