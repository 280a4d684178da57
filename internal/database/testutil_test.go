package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// ============================================================================
// DATABASE SETUP HELPERS
// ============================================================================

// setupTestDB creates an in-memory database and runs migrations
// This is the unified test database setup used by all tests
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// firstStages returns the first n seeded stages
func firstStages(t *testing.T, repo *Repository, n int) []*models.Stage {
	t.Helper()
	stages, err := repo.ListStages(context.Background())
	if err != nil {
		t.Fatalf("ListStages failed: %v", err)
	}
	if len(stages) < n {
		t.Fatalf("expected at least %d seeded stages, got %d", n, len(stages))
	}
	return stages[:n]
}

func createTestContact(t *testing.T, repo *Repository, first, last, company string) *models.Contact {
	t.Helper()
	c, err := repo.CreateContact(context.Background(), &models.Contact{
		FirstName: first, LastName: last, Company: company,
	})
	if err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	return c
}

func createTestOpportunity(t *testing.T, repo *Repository, title string, stageID int, contactID *int) *models.Opportunity {
	t.Helper()
	o, err := repo.CreateOpportunity(context.Background(), &models.Opportunity{
		Title: title, StageID: stageID, ContactID: contactID, AmountCents: 1000,
	})
	if err != nil {
		t.Fatalf("CreateOpportunity failed: %v", err)
	}
	return o
}
