package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/testutil"
)

type fakeProvider struct {
	system  string
	history []models.ChatMessage
	reply   string
	err     error
}

func (p *fakeProvider) Reply(_ context.Context, system string, history []models.ChatMessage) (string, error) {
	p.system = system
	p.history = history
	return p.reply, p.err
}

// repoSnapshot reads the CRM state straight from the repository
type repoSnapshot struct {
	*database.Repository
}

func (s repoSnapshot) PipelineTotals(ctx context.Context) (map[int]database.StageTotals, error) {
	return s.OpenPipelineTotals(ctx)
}

func newSnapshot(t *testing.T) repoSnapshot {
	t.Helper()
	repo := testutil.SetupTestRepo(t)
	stages := testutil.Stages(t, repo)
	testutil.CreateTestContact(t, repo, "Ada", "Lovelace")
	testutil.CreateTestOpportunity(t, repo, "Engines", stages[0].ID, 1_250_000)
	testutil.CreateTestOpportunity(t, repo, "Looms", stages[0].ID, 50)
	return repoSnapshot{repo}
}

func userSays(text string) []models.ChatMessage {
	return []models.ChatMessage{{Role: models.ChatRoleUser, Content: text}}
}

func TestChat_NotConfigured(t *testing.T) {
	svc := NewService(nil, nil, "", nil)
	assert.False(t, svc.Configured())

	_, err := svc.Chat(context.Background(), userSays("hi"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat_AddsCRMContext(t *testing.T) {
	provider := &fakeProvider{reply: "  You have 2 leads.  "}
	svc := NewService(provider, newSnapshot(t), "", nil)
	require.True(t, svc.Configured())

	reply, err := svc.Chat(context.Background(), []models.ChatMessage{
		{Role: "user", Content: "How many deals?"},
		{Role: "assistant", Content: "Let me check."},
		{Role: "USER", Content: " and their value? "},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChatRoleAssistant, reply.Role)
	assert.Equal(t, "You have 2 leads.", reply.Content)

	assert.Contains(t, provider.system, DefaultSystemPrompt)
	assert.Contains(t, provider.system, "Contacts: 1")
	assert.Contains(t, provider.system, "Lead: 2 deals, $12,500.50")
	assert.Contains(t, provider.system, "Won: 0 deals, $0.00")

	require.Len(t, provider.history, 3)
	assert.Equal(t, "user", provider.history[2].Role)
	assert.Equal(t, "and their value?", provider.history[2].Content)
}

func TestChat_CustomSystemPromptWithoutSnapshot(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	svc := NewService(provider, nil, "Be brief.", nil)

	_, err := svc.Chat(context.Background(), userSays("hello"))
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", provider.system)
}

func TestChat_Validation(t *testing.T) {
	tooMany := make([]models.ChatMessage, MaxMessages+1)
	for i := range tooMany {
		tooMany[i] = models.ChatMessage{Role: models.ChatRoleUser, Content: "x"}
	}

	tests := []struct {
		name     string
		messages []models.ChatMessage
		wantErr  error
	}{
		{"empty", nil, ErrEmptyConversation},
		{"too many", tooMany, ErrTooManyMessages},
		{"bad role", []models.ChatMessage{{Role: "system", Content: "x"}}, ErrInvalidRole},
		{"blank content", []models.ChatMessage{{Role: "user", Content: "   "}}, ErrEmptyMessage},
		{"ends with assistant", []models.ChatMessage{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "b"},
		}, ErrLastMessageNotUser},
	}

	svc := NewService(&fakeProvider{reply: "ok"}, nil, "", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tt.messages)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChat_ProviderErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewService(&fakeProvider{err: boom}, nil, "", nil)
	_, err := svc.Chat(context.Background(), userSays("hi"))
	assert.ErrorIs(t, err, boom)

	svc = NewService(&fakeProvider{reply: " \n"}, nil, "", nil)
	_, err = svc.Chat(context.Background(), userSays("hi"))
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
