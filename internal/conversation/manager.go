// Package conversation runs one chat exchange: load the session window,
// append the user turn, ask the model, append its reply and persist.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/anony/internal/completion"
	"github.com/wuwenbin0122/anony/internal/models"
	"github.com/wuwenbin0122/anony/internal/utils"
)

const (
	DefaultMaxMessageRunes = 2000
	DefaultSystemPrompt    = "You are light-hearted and brief."
)

var (
	ErrEmptyMessage     = errors.New("conversation: message is empty")
	ErrStoreUnavailable = errors.New("conversation: history store unavailable")
)

// HistoryStore is the persistence the manager needs. *history.Store
// satisfies it.
type HistoryStore interface {
	Load(ctx context.Context, id string) ([]models.Turn, error)
	Save(ctx context.Context, id string, turns []models.Turn) error
	Delete(ctx context.Context, id string) error
	MaxTurns() int
}

// Completer produces a reply for a prompt. It must always return text.
type Completer interface {
	Complete(ctx context.Context, messages []models.Turn) string
}

type Options struct {
	SystemPrompt    string
	MaxMessageRunes int
}

type Manager struct {
	store           HistoryStore
	completer       Completer
	systemPrompt    string
	maxMessageRunes int
	logger          *zap.Logger
}

func NewManager(store HistoryStore, completer Completer, opts Options, logger *zap.Logger) *Manager {
	prompt := strings.TrimSpace(opts.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	maxRunes := opts.MaxMessageRunes
	if maxRunes <= 0 {
		maxRunes = DefaultMaxMessageRunes
	}

	return &Manager{
		store:           store,
		completer:       completer,
		systemPrompt:    prompt,
		maxMessageRunes: maxRunes,
		logger:          utils.NopIfNil(logger).Named("conversation"),
	}
}

// Respond appends userText to the session's history, asks the model and
// persists both turns. Whitespace-only input fails with ErrEmptyMessage
// before any I/O. A history that cannot be loaded fails with
// ErrStoreUnavailable; a failed save is logged and the reply still returned.
func (m *Manager) Respond(ctx context.Context, id, userText string) (string, error) {
	text, err := m.PrepareMessage(userText)
	if err != nil {
		return "", err
	}

	turns, err := m.store.Load(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	turns = append(turns, models.Turn{Role: models.RoleUser, Content: text})
	turns = models.LastTurns(turns, m.store.MaxTurns())

	reply := m.completer.Complete(ctx, m.buildPrompt(turns))
	if strings.TrimSpace(reply) == "" {
		reply = completion.FallbackReply
	}

	turns = append(turns, models.Turn{Role: models.RoleAssistant, Content: reply})

	if err := m.store.Save(ctx, id, turns); err != nil {
		m.logger.Warn("history not persisted", utils.SessionField(id), zap.Error(err))
	}

	return reply, nil
}

// Reset forgets the session's history.
func (m *Manager) Reset(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// PrepareMessage truncates raw user input and rejects what is left when it
// is whitespace only.
func (m *Manager) PrepareMessage(userText string) (string, error) {
	text := truncateRunes(userText, m.maxMessageRunes)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}

func (m *Manager) buildPrompt(turns []models.Turn) []models.Turn {
	prompt := make([]models.Turn, 0, len(turns)+1)
	prompt = append(prompt, models.Turn{Role: models.RoleSystem, Content: m.systemPrompt})
	return append(prompt, turns...)
}

func truncateRunes(input string, max int) string {
	if utf8.RuneCountInString(input) <= max {
		return input
	}

	count := 0
	for i := range input {
		if count == max {
			return input[:i]
		}
		count++
	}
	return input
}
