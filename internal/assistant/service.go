// Package assistant answers free-form questions about the CRM through an LLM
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	// MaxMessages bounds the history forwarded to the provider
	MaxMessages = 50

	DefaultSystemPrompt = "You are the assistant built into dealflow, a small CRM. " +
		"Answer questions about sales, the pipeline and follow-up tasks concisely. " +
		"Use Markdown when it helps readability."
)

// Provider turns a conversation into the next assistant message
type Provider interface {
	Reply(ctx context.Context, system string, history []models.ChatMessage) (string, error)
}

// Snapshot is the read-only CRM data summarised into the system prompt
type Snapshot interface {
	CountContacts(ctx context.Context) (int, error)
	ListStages(ctx context.Context) ([]*models.Stage, error)
	PipelineTotals(ctx context.Context) (map[int]database.StageTotals, error)
}

// Service defines the assistant operations
type Service interface {
	Configured() bool
	Chat(ctx context.Context, messages []models.ChatMessage) (*models.ChatMessage, error)
}

type service struct {
	provider     Provider
	snapshot     Snapshot
	systemPrompt string
	logger       *slog.Logger
}

// NewService creates an assistant. A nil provider yields a service whose
// Chat always fails with ErrNotConfigured.
func NewService(provider Provider, snapshot Snapshot, systemPrompt string, logger *slog.Logger) Service {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		provider:     provider,
		snapshot:     snapshot,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

func (s *service) Configured() bool {
	return s.provider != nil
}

// Chat validates the conversation, adds CRM context and asks the provider
// for the next message
func (s *service) Chat(ctx context.Context, messages []models.ChatMessage) (*models.ChatMessage, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	history, err := normalize(messages)
	if err != nil {
		return nil, err
	}

	system := s.systemPrompt
	if summary, err := s.contextSummary(ctx); err != nil {
		s.logger.Warn("assistant context unavailable", "error", err)
	} else {
		system += "\n\n" + summary
	}

	reply, err := s.provider.Reply(ctx, system, history)
	if err != nil {
		return nil, fmt.Errorf("assistant reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, ErrEmptyReply
	}
	return &models.ChatMessage{Role: models.ChatRoleAssistant, Content: reply}, nil
}

func normalize(messages []models.ChatMessage) ([]models.ChatMessage, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}
	if len(messages) > MaxMessages {
		return nil, ErrTooManyMessages
	}

	out := make([]models.ChatMessage, len(messages))
	for i, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != models.ChatRoleUser && role != models.ChatRoleAssistant {
			return nil, ErrInvalidRole
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return nil, ErrEmptyMessage
		}
		out[i] = models.ChatMessage{Role: role, Content: content}
	}
	if out[len(out)-1].Role != models.ChatRoleUser {
		return nil, ErrLastMessageNotUser
	}
	return out, nil
}

// contextSummary renders the current CRM state as plain text
func (s *service) contextSummary(ctx context.Context) (string, error) {
	if s.snapshot == nil {
		return "", fmt.Errorf("no CRM snapshot source")
	}
	contacts, err := s.snapshot.CountContacts(ctx)
	if err != nil {
		return "", err
	}
	stages, err := s.snapshot.ListStages(ctx)
	if err != nil {
		return "", err
	}
	totals, err := s.snapshot.PipelineTotals(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Current CRM state:\n")
	fmt.Fprintf(&b, "- Contacts: %d\n", contacts)
	b.WriteString("- Opportunities per stage:\n")
	for _, st := range stages {
		t := totals[st.ID]
		fmt.Fprintf(&b, "  - %s: %d deals, $%s\n", st.Name, t.Count, formatCents(t.AmountCents))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%s.%02d", humanize.Comma(cents/100), abs(cents%100))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
