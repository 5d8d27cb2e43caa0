package odoo

import (
	"context"
	"testing"
)

func TestMemoryStoreSearchLeads(t *testing.T) {
	store := NewMemoryStore()
	store.SeedLeads(
		Lead{Name: "Acme Rollout", Email: "ops@acme.test"},
		Lead{Name: "Globex Renewal", Email: "buy@globex.test"},
		Lead{Name: "Acme Upsell", Email: "sales@acme.test"},
	)

	leads, err := store.SearchLeads(context.Background(), "acme", 5)
	if err != nil {
		t.Fatalf("SearchLeads failed: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}

	// Email matches count too.
	leads, err = store.SearchLeads(context.Background(), "globex.test", 5)
	if err != nil {
		t.Fatalf("SearchLeads failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead by email, got %d", len(leads))
	}

	leads, err = store.SearchLeads(context.Background(), "acme", 1)
	if err != nil {
		t.Fatalf("SearchLeads failed: %v", err)
	}
	if len(leads) != 1 {
		t.Errorf("limit not honored, got %d leads", len(leads))
	}
}

func TestMemoryStoreTopCustomersOrdering(t *testing.T) {
	store := NewMemoryStore()
	store.SeedCustomers(
		Customer{Name: "Small", Rank: 1},
		Customer{Name: "Big", Rank: 9},
		Customer{Name: "Mid", Rank: 4},
	)

	customers, err := store.TopCustomers(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopCustomers failed: %v", err)
	}
	if len(customers) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(customers))
	}
	if customers[0].Name != "Big" || customers[2].Name != "Small" {
		t.Errorf("customers not ranked descending: %+v", customers)
	}

	// Zero limit is a valid boundary, not an error.
	customers, err = store.TopCustomers(context.Background(), 0)
	if err != nil {
		t.Fatalf("TopCustomers with limit 0 failed: %v", err)
	}
	if len(customers) != 0 {
		t.Errorf("expected empty result for limit 0, got %d", len(customers))
	}
}

func TestMemoryStoreMutationCounting(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.CreateLead(context.Background(), LeadInput{Name: "New Lead"}); err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	if _, err := store.CreateCustomer(context.Background(), CustomerInput{Name: "New Customer"}); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	if got := store.MutationCount(); got != 2 {
		t.Errorf("expected 2 mutations, got %d", got)
	}

	if _, err := store.CreateLead(context.Background(), LeadInput{}); err == nil {
		t.Error("expected error for lead without name")
	}
	if got := store.MutationCount(); got != 2 {
		t.Errorf("rejected create must not count as mutation, got %d", got)
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	store := NewMemoryStore()
	store.FailWith(ErrStoreUnavailable)

	if _, err := store.SalesSummary(context.Background()); err == nil {
		t.Error("expected injected failure")
	}

	store.FailWith(nil)
	if _, err := store.SalesSummary(context.Background()); err != nil {
		t.Errorf("expected store to heal, got %v", err)
	}
}
