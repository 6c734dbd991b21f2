package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koscakluka/ema-caddie/core/golf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SaveRound upserts the latest snapshot of round. The round is placed at the
// end of the course history when first written and keeps that position on
// later saves.
func (s *Store) SaveRound(ctx context.Context, courseID string, round golf.Round) error {
	ctx, span := tracer.Start(ctx, "store.save_round", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.String("round.id", round.ID),
		attribute.Bool("round.finished", round.Finished),
	))
	defer span.End()

	if err := s.saveRound(ctx, courseID, round); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save round failed")
		return err
	}
	return nil
}

func (s *Store) saveRound(ctx context.Context, courseID string, round golf.Round) error {
	if round.ID == "" {
		return fmt.Errorf("storage: round id is required")
	}
	payload, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("storage: encode round %s: %w", round.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (id, course_id, position, finished, payload)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM rounds WHERE course_id = ?), ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			finished = excluded.finished,
			payload  = excluded.payload
		WHERE rounds.course_id = excluded.course_id
	`, round.ID, courseID, courseID, round.Finished, string(payload))
	if err != nil {
		return fmt.Errorf("storage: save round %s: %w", round.ID, err)
	}
	return nil
}

// Rounds returns every round stored for the course in the order they were
// first saved.
func (s *Store) Rounds(ctx context.Context, courseID string) ([]golf.Round, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM rounds WHERE course_id = ? ORDER BY position`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list rounds for %s: %w", courseID, err)
	}
	defer rows.Close()

	var rounds []golf.Round
	for rows.Next() {
		var (
			id      string
			payload string
			round   golf.Round
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("storage: scan round: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &round); err != nil {
			logger.Warn("skipping undecodable round", "round_id", id, "error", err)
			continue
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list rounds for %s: %w", courseID, err)
	}
	return rounds, nil
}
