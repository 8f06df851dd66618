package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryCreateAssignsSequentialIDs(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		lead, err := repo.Create(ctx, CreateLeadData{
			Name:    "Jane Doe",
			Email:   "jane@example.com",
			Message: "Interested in your enterprise plan, please contact me.",
		})
		if err != nil {
			t.Fatal(err)
		}
		if lead.ID != int64(i) {
			t.Errorf("expected id %d, got %d", i, lead.ID)
		}
		if lead.Status != "new" {
			t.Errorf("expected status new, got %q", lead.Status)
		}
		if lead.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	}
}

func TestInMemoryFindByEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		if _, err := repo.Create(ctx, CreateLeadData{
			Name:    "Jane Doe",
			Email:   email,
			Message: "Interested in your enterprise plan, please contact me.",
		}); err != nil {
			t.Fatal(err)
		}
	}

	leads, err := repo.FindByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].ID < leads[1].ID {
		t.Error("expected newest first")
	}
}

func TestInMemoryFindAllFilterAndLimit(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		lead, err := repo.Create(ctx, CreateLeadData{
			Name:    "Jane Doe",
			Email:   "jane@example.com",
			Message: "Interested in your enterprise plan, please contact me.",
		})
		if err != nil {
			t.Fatal(err)
		}
		if i < 2 {
			if _, err := repo.UpdateStatus(ctx, lead.ID, "contacted"); err != nil {
				t.Fatal(err)
			}
		}
	}

	leads, err := repo.FindAll(ctx, ListFilter{Status: "contacted"})
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 2 {
		t.Errorf("expected 2 contacted leads, got %d", len(leads))
	}

	leads, err = repo.FindAll(ctx, ListFilter{Limit: 3, OrderBy: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 3 {
		t.Fatalf("expected 3 leads with limit, got %d", len(leads))
	}
	if leads[0].ID != 1 {
		t.Errorf("expected ascending order, first id was %d", leads[0].ID)
	}
}

func TestInMemoryUpdate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	lead, err := repo.Create(ctx, CreateLeadData{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Message: "Interested in your enterprise plan, please contact me.",
	})
	if err != nil {
		t.Fatal(err)
	}

	company := "Acme Ltd"
	status := "qualified"
	updated, err := repo.Update(ctx, lead.ID, UpdateLeadData{Company: &company, Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Company == nil || *updated.Company != "Acme Ltd" {
		t.Errorf("company not updated: %v", updated.Company)
	}
	if updated.Status != "qualified" {
		t.Errorf("status not updated: %q", updated.Status)
	}

	if _, err := repo.Update(ctx, 999, UpdateLeadData{Status: &status}); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestInMemoryDeleteAndCount(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	lead, err := repo.Create(ctx, CreateLeadData{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Message: "Interested in your enterprise plan, please contact me.",
	})
	if err != nil {
		t.Fatal(err)
	}

	count, err := repo.CountByStatus(ctx, "new")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	if err := repo.Delete(ctx, lead.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, lead.ID); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected ErrLeadNotFound on second delete, got %v", err)
	}

	count, err = repo.CountByStatus(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected empty repo, got %d", count)
	}
}

func TestInMemoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	lead, err := repo.Create(ctx, CreateLeadData{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Message: "Interested in your enterprise plan, please contact me.",
	})
	if err != nil {
		t.Fatal(err)
	}

	lead.Name = "mutated"

	stored, err := repo.FindByID(ctx, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Jane Doe" {
		t.Errorf("caller mutation leaked into the store: %q", stored.Name)
	}
}

func TestInMemoryConcurrentCreates(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, CreateLeadData{
				Name:    "Jane Doe",
				Email:   fmt.Sprintf("jane+%d@example.com", i),
				Message: "Interested in your enterprise plan, please contact me.",
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	count, err := repo.CountByStatus(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("expected %d leads, got %d", n, count)
	}
}
