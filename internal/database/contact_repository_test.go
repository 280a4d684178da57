package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/thenoetrevino/dealflow/internal/models"
)

func TestContactCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	c := createTestContact(t, repo, "Ada", "Lovelace", "Analytical Engines")
	if c.ID == 0 {
		t.Fatal("expected contact ID to be assigned")
	}
	if c.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be populated")
	}

	c.Email = "ada@example.com"
	if err := repo.UpdateContact(ctx, c); err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}

	got, err := repo.GetContact(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Email = %q, want ada@example.com", got.Email)
	}

	if err := repo.DeleteContact(ctx, c.ID); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
	if _, err := repo.GetContact(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContact after delete: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteContact(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSearchContacts_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 5; i++ {
		createTestContact(t, repo, "Person", fmt.Sprintf("Number%d", i), "Acme")
	}
	createTestContact(t, repo, "Grace", "Hopper", "Navy")

	page1, total, err := repo.SearchContacts(ctx, "Acme", 1, 2)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 length = %d, want 2", len(page1))
	}

	page3, _, err := repo.SearchContacts(ctx, "Acme", 3, 2)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("page 3 length = %d, want 1", len(page3))
	}

	all, total, err := repo.SearchContacts(ctx, "", 1, 50)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if total != 6 || len(all) != 6 {
		t.Errorf("empty query should match everything, got total=%d len=%d", total, len(all))
	}

	count, err := repo.CountContacts(ctx)
	if err != nil {
		t.Fatalf("CountContacts failed: %v", err)
	}
	if count != 6 {
		t.Errorf("CountContacts = %d, want 6", count)
	}
}

func TestDeleteContact_ClearsOpportunityLink(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))
	stage := firstStages(t, repo, 1)[0]

	c := createTestContact(t, repo, "Ada", "Lovelace", "")
	o := createTestOpportunity(t, repo, "Engine", stage.ID, &c.ID)

	if err := repo.DeleteContact(ctx, c.ID); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}

	got, err := repo.GetOpportunity(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOpportunity failed: %v", err)
	}
	if got.ContactID != nil {
		t.Errorf("expected contact link to be cleared, got %d", *got.ContactID)
	}
}

func TestSeededStages(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	stages, err := repo.ListStages(context.Background())
	if err != nil {
		t.Fatalf("ListStages failed: %v", err)
	}
	if len(stages) != len(models.DefaultStages) {
		t.Fatalf("expected %d seeded stages, got %d", len(models.DefaultStages), len(stages))
	}
	for i, s := range stages {
		if s.Name != models.DefaultStages[i].Name {
			t.Errorf("stage %d = %q, want %q", i, s.Name, models.DefaultStages[i].Name)
		}
	}
}

func TestSearchContacts_WildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	createTestContact(t, repo, "Ada", "Lovelace", "50% Off")
	createTestContact(t, repo, "Grace", "Hopper", "5000 Holdings")
	createTestContact(t, repo, "Alan", "Turing", "a_b Labs")
	createTestContact(t, repo, "Edsger", "Dijkstra", "axb Labs")

	tests := []struct {
		query string
		want  string
	}{
		{"50%", "50% Off"},
		{"a_b", "a_b Labs"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, total, err := repo.SearchContacts(ctx, tt.query, 1, 10)
			if err != nil {
				t.Fatalf("SearchContacts failed: %v", err)
			}
			if total != 1 || len(got) != 1 {
				t.Fatalf("SearchContacts(%q) matched %d rows (total %d), want 1", tt.query, len(got), total)
			}
			if got[0].Company != tt.want {
				t.Errorf("Company = %q, want %q", got[0].Company, tt.want)
			}
		})
	}
}
