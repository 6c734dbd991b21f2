package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-caddie/core/golf"
	"go.opentelemetry.io/otel/codes"
)

// AddTendency records a player tendency. Repeating a known tendency is a
// no-op.
func (s *Store) AddTendency(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "store.add_tendency")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tendencies (text) VALUES (?) ON CONFLICT (text) DO NOTHING`,
		text,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add tendency failed")
		return fmt.Errorf("storage: add tendency: %w", err)
	}
	return nil
}

// Profile returns the player profile with tendencies oldest first.
func (s *Store) Profile(ctx context.Context) (golf.PlayerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM tendencies ORDER BY id`)
	if err != nil {
		return golf.PlayerProfile{}, fmt.Errorf("storage: list tendencies: %w", err)
	}
	defer rows.Close()

	profile := golf.PlayerProfile{Tendencies: []string{}}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return golf.PlayerProfile{}, fmt.Errorf("storage: scan tendency: %w", err)
		}
		profile.Tendencies = append(profile.Tendencies, text)
	}
	if err := rows.Err(); err != nil {
		return golf.PlayerProfile{}, fmt.Errorf("storage: list tendencies: %w", err)
	}
	return profile, nil
}
