package feedback

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const feedbackSchema = `
CREATE TABLE IF NOT EXISTS feedback (
    id         BIGSERIAL PRIMARY KEY,
    answer_id  TEXT NOT NULL,
    vote       TEXT NOT NULL,
    question   TEXT NOT NULL DEFAULT '',
    answer     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists feedback in a feedback table. The table is created
// on construction if it does not exist.
//
// PostgresStore is safe for concurrent use by multiple goroutines.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore ensures the feedback table exists and returns a store
// backed by the given pool. The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, feedbackSchema); err != nil {
		return nil, fmt.Errorf("failed to create feedback table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append inserts one record.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (answer_id, vote, question, answer) VALUES ($1, $2, $3, $4)`,
		rec.AnswerID, rec.Vote, rec.Question, rec.Answer,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}
