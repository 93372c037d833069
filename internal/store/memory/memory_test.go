package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

func TestSeededMenuSortedByCategoryThenName(t *testing.T) {
	s := NewSeeded()

	items, err := s.ListMenu(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 seeded items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.Category > cur.Category {
			t.Fatalf("categories out of order: %s before %s", prev.Category, cur.Category)
		}
		if prev.Category == cur.Category && prev.Name > cur.Name {
			t.Fatalf("names out of order within %s: %s before %s", cur.Category, prev.Name, cur.Name)
		}
	}
}

func TestMenuCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	item := domain.MenuItem{ID: "x1", Name: "Samosa", PriceCents: 1500, Category: "Snacks", Available: true}
	if err := s.UpsertMenuItem(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetMenuItem(ctx, "x1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Samosa" {
		t.Fatalf("got %+v", got)
	}

	// returned item is a copy
	got.Name = "changed"
	again, _ := s.GetMenuItem(ctx, "x1")
	if again.Name != "Samosa" {
		t.Fatalf("store must hand out copies, got %q", again.Name)
	}

	if err := s.DeleteMenuItem(ctx, "x1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMenuItem(ctx, "x1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteMenuItem(ctx, "x1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestUpsertMenuItemValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.UpsertMenuItem(ctx, domain.MenuItem{Name: "NoID", PriceCents: 100}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("missing id: got %v", err)
	}
	if err := s.UpsertMenuItem(ctx, domain.MenuItem{ID: "x", Name: "Free", PriceCents: 0}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("zero price: got %v", err)
	}
}

func TestReplaceMenu(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	items := []domain.MenuItem{
		{ID: "n1", Name: "Masala Chai", PriceCents: 2000, Category: "Drinks", Available: true},
	}
	if err := s.ReplaceMenu(ctx, items); err != nil {
		t.Fatalf("replace: %v", err)
	}

	menu, err := s.ListMenu(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(menu) != 1 || menu[0].ID != "n1" {
		t.Fatalf("replace must drop the old catalog: %+v", menu)
	}
}

func TestSalesSortedByTimestampThenID(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	for _, rec := range []domain.SaleRecord{
		{ID: "b", TokenNumber: 2, Timestamp: base.Add(time.Minute), Status: domain.StatusPending},
		{ID: "c", TokenNumber: 3, Timestamp: base, Status: domain.StatusPending},
		{ID: "a", TokenNumber: 1, Timestamp: base, Status: domain.StatusPending},
	} {
		if err := s.UpsertSale(ctx, rec); err != nil {
			t.Fatalf("upsert %s: %v", rec.ID, err)
		}
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	gotIDs := []string{sales[0].ID, sales[1].ID, sales[2].ID}
	if gotIDs[0] != "a" || gotIDs[1] != "c" || gotIDs[2] != "b" {
		t.Fatalf("order wrong: %v", gotIDs)
	}
}

func TestUpsertSaleRejectsMissingID(t *testing.T) {
	s := New()
	if err := s.UpsertSale(context.Background(), domain.SaleRecord{}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	settings, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.StallName == "" || settings.TaxRatePercent != 5 {
		t.Fatalf("defaults wrong: %+v", settings)
	}

	settings.WorkerAccounts = []domain.WorkerAccount{{Name: "Asha", Email: "asha@stall.local"}}
	if err := s.SaveSettings(ctx, *settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	// mutating the caller's slice after save must not leak in
	settings.WorkerAccounts[0].Name = "changed"
	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WorkerAccounts[0].Name != "Asha" {
		t.Fatalf("worker roster aliased: %+v", got.WorkerAccounts)
	}

	bad := *got
	bad.TaxRatePercent = -1
	if err := s.SaveSettings(ctx, bad); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("negative tax rate: got %v", err)
	}
}

func TestOpeningCash(t *testing.T) {
	s := New()
	ctx := context.Background()

	cents, err := s.GetOpeningCash(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cents != defaultOpeningCashCents {
		t.Fatalf("default opening cash: got %d", cents)
	}

	if err := s.SetOpeningCash(ctx, 250000); err != nil {
		t.Fatalf("set: %v", err)
	}
	cents, _ = s.GetOpeningCash(ctx)
	if cents != 250000 {
		t.Fatalf("opening cash: got %d, want 250000", cents)
	}

	if err := s.SetOpeningCash(ctx, -1); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("negative opening cash: got %v", err)
	}
}
