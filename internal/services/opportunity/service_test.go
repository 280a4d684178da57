package opportunity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/testutil"
)

func setupService(t *testing.T) (Service, *database.Repository, *testutil.RecordingPublisher) {
	t.Helper()
	repo := testutil.SetupTestRepo(t)
	pub := &testutil.RecordingPublisher{}
	return NewService(repo, pub), repo, pub
}

func TestCreateOpportunity_Validation(t *testing.T) {
	svc, _, pub := setupService(t)
	ctx := context.Background()
	missingContact := 404

	tests := []struct {
		name    string
		req     CreateOpportunityRequest
		wantErr error
	}{
		{"empty title", CreateOpportunityRequest{Title: "  "}, ErrEmptyTitle},
		{"title too long", CreateOpportunityRequest{Title: strings.Repeat("x", 256)}, ErrTitleTooLong},
		{"negative amount", CreateOpportunityRequest{Title: "Deal", AmountCents: -1}, ErrNegativeAmount},
		{"unknown stage", CreateOpportunityRequest{Title: "Deal", StageID: 999}, ErrInvalidStageID},
		{"unknown contact", CreateOpportunityRequest{Title: "Deal", ContactID: &missingContact}, ErrUnknownContact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOpportunity(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, pub.Events())
}

func TestCreateOpportunity_DefaultsToFirstStage(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	stages := testutil.Stages(t, repo)
	contact := testutil.CreateTestContact(t, repo, "Ada", "Lovelace")

	o, err := svc.CreateOpportunity(ctx, CreateOpportunityRequest{
		Title: "Engine order", AmountCents: 250000, ContactID: &contact.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, stages[0].ID, o.StageID)

	ev, ok := pub.Last()
	require.True(t, ok)
	assert.Equal(t, events.OpportunityCreated, ev.Type)
	assert.Equal(t, o.ID, ev.EntityID)
}

func TestMoveOpportunity(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	stages := testutil.Stages(t, repo)
	o := testutil.CreateTestOpportunity(t, repo, "Deal", stages[0].ID, 100)

	require.NoError(t, svc.MoveOpportunity(ctx, o.ID, stages[2].ID))

	got, err := svc.GetOpportunity(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, stages[2].ID, got.StageID)

	ev, _ := pub.Last()
	assert.Equal(t, events.OpportunityMoved, ev.Type)
	move, ok := ev.Data.(events.MoveData)
	require.True(t, ok)
	assert.Equal(t, events.MoveData{From: strconv.Itoa(stages[0].ID), To: strconv.Itoa(stages[2].ID)}, move)

	err = svc.MoveOpportunity(ctx, o.ID, stages[2].ID)
	assert.ErrorIs(t, err, ErrAlreadyInTargetStage)
	assert.ErrorIs(t, err, models.ErrAlreadyInColumn)

	assert.ErrorIs(t, svc.MoveOpportunity(ctx, 999, stages[1].ID), ErrOpportunityNotFound)
	assert.ErrorIs(t, svc.MoveOpportunity(ctx, o.ID, 999), ErrInvalidStageID)
	assert.ErrorIs(t, svc.MoveOpportunity(ctx, 0, stages[1].ID), ErrInvalidID)
}

func TestListByStage(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()
	stages := testutil.Stages(t, repo)
	for _, title := range []string{"One", "Two", "Three"} {
		testutil.CreateTestOpportunity(t, repo, title, stages[1].ID, 10)
	}

	result, err := svc.ListByStage(ctx, stages[1].ID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "One", result.Items[0].Title)

	empty, err := svc.ListByStage(ctx, stages[0].ID, "", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.Total)

	_, err = svc.ListByStage(ctx, 999, "", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidStageID)
}

func TestUpdateOpportunity(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	stages := testutil.Stages(t, repo)
	contact := testutil.CreateTestContact(t, repo, "Grace", "Hopper")
	o := testutil.CreateTestOpportunity(t, repo, "Deal", stages[0].ID, 100)

	title := "Bigger deal"
	amount := int64(5000)
	updated, err := svc.UpdateOpportunity(ctx, UpdateOpportunityRequest{
		ID: o.ID, Title: &title, AmountCents: &amount, ContactID: &contact.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bigger deal", updated.Title)
	assert.Equal(t, int64(5000), updated.AmountCents)
	require.NotNil(t, updated.ContactID)
	assert.Equal(t, contact.ID, *updated.ContactID)

	cleared, err := svc.UpdateOpportunity(ctx, UpdateOpportunityRequest{ID: o.ID, ClearContact: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ContactID)

	negative := int64(-5)
	_, err = svc.UpdateOpportunity(ctx, UpdateOpportunityRequest{ID: o.ID, AmountCents: &negative})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	assert.Equal(t, []events.EventType{events.OpportunityUpdated, events.OpportunityUpdated}, pub.Types())
}

func TestDeleteOpportunity(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	stages := testutil.Stages(t, repo)
	o := testutil.CreateTestOpportunity(t, repo, "Deal", stages[0].ID, 100)

	require.NoError(t, svc.DeleteOpportunity(ctx, o.ID))
	_, err := svc.GetOpportunity(ctx, o.ID)
	assert.True(t, errors.Is(err, ErrOpportunityNotFound))

	ev, _ := pub.Last()
	assert.Equal(t, events.OpportunityDeleted, ev.Type)
	assert.ErrorIs(t, svc.DeleteOpportunity(ctx, o.ID), models.ErrNotFound)
}

func TestPipelineTotals(t *testing.T) {
	svc, repo, _ := setupService(t)
	stages := testutil.Stages(t, repo)
	testutil.CreateTestOpportunity(t, repo, "A", stages[0].ID, 100)
	testutil.CreateTestOpportunity(t, repo, "B", stages[0].ID, 250)

	totals, err := svc.PipelineTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, database.StageTotals{Count: 2, AmountCents: 350}, totals[stages[0].ID])
}
