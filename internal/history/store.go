// Package history persists the bounded conversation window for a session.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wuwenbin0122/anony/internal/db"
	"github.com/wuwenbin0122/anony/internal/models"
)

const (
	DefaultMaxTurns = 6
	DefaultTTL      = 24 * time.Hour
)

// ErrCorruptHistory marks a stored value that does not decode to a list of
// turns. It is reported as a read failure rather than an empty history.
var ErrCorruptHistory = errors.New("history: stored value is corrupt")

type Store struct {
	kv       db.KV
	maxTurns int
	ttl      time.Duration
}

func NewStore(kv db.KV, maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, maxTurns: maxTurns, ttl: ttl}
}

// MaxTurns is the window enforced on every save.
func (s *Store) MaxTurns() int { return s.maxTurns }

// Load returns the stored turns for id, or an empty slice when none exist.
func (s *Store) Load(ctx context.Context, id string) ([]models.Turn, error) {
	raw, err := s.kv.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}

	var turns []models.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	for i, turn := range turns {
		if !turn.Valid() {
			return nil, fmt.Errorf("%w: turn %d has role %q", ErrCorruptHistory, i, turn.Role)
		}
	}
	if turns == nil {
		turns = []models.Turn{}
	}

	return turns, nil
}

// Save overwrites the history for id with its last MaxTurns turns.
func (s *Store) Save(ctx context.Context, id string, turns []models.Turn) error {
	window := models.LastTurns(turns, s.maxTurns)
	if window == nil {
		window = []models.Turn{}
	}

	raw, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}

	if err := s.kv.Put(ctx, id, raw, s.ttl); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	return nil
}
