package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

const defaultOpeningCashCents = 100000

type Store struct {
	mu          sync.RWMutex
	menu        map[string]domain.MenuItem
	sales       map[string]domain.SaleRecord
	settings    domain.BillSettings
	openingCash int64
}

func New() *Store {
	return &Store{
		menu:        make(map[string]domain.MenuItem),
		sales:       make(map[string]domain.SaleRecord),
		settings:    defaultSettings(),
		openingCash: defaultOpeningCashCents,
	}
}

// NewSeeded returns a store preloaded with the stall's standard menu,
// for dev mode and tests.
func NewSeeded() *Store {
	items := []domain.MenuItem{
		{ID: "m1", Name: "Classic Burger", PriceCents: 8500, Category: "Food", Description: "Beef patty with lettuce and cheese", Available: true},
		{ID: "m2", Name: "Cheese Fries", PriceCents: 4000, Category: "Food", Description: "Crispy fries with cheese sauce", Available: true},
		{ID: "m3", Name: "Hot Dog", PriceCents: 5000, Category: "Food", Description: "Grilled sausage in a soft bun", Available: true},
		{ID: "m4", Name: "Iced Tea", PriceCents: 2500, Category: "Drinks", Description: "Freshly brewed and chilled", Available: true},
		{ID: "m5", Name: "Lemonade", PriceCents: 3000, Category: "Drinks", Description: "Sweet and tangy", Available: true},
		{ID: "m6", Name: "Tacos (3pcs)", PriceCents: 9000, Category: "Food", Description: "Spiced filling with fresh salsa", Available: true},
	}

	s := New()
	for _, item := range items {
		s.menu[item.ID] = item
	}
	return s
}

func defaultSettings() domain.BillSettings {
	return domain.BillSettings{
		StallName:      "KC HIGH",
		FooterMessage:  "Thank you! Visit Again!",
		TaxRatePercent: 5,
		PrinterEnabled: true,
	}
}

func (s *Store) ListMenu(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(s.menu))
	for _, item := range s.menu {
		items = append(items, item)
	}

	slices.SortFunc(items, func(a, b domain.MenuItem) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})

	return items, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.menu[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) UpsertMenuItem(_ context.Context, item domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || item.Name == "" || item.PriceCents < 1 {
		return store.ErrInvalidSale
	}
	s.menu[item.ID] = item
	return nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.menu[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.menu, id)
	return nil
}

func (s *Store) ReplaceMenu(_ context.Context, items []domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	menu := make(map[string]domain.MenuItem, len(items))
	for _, item := range items {
		if item.ID == "" {
			return store.ErrInvalidSale
		}
		menu[item.ID] = item
	}
	s.menu = menu
	return nil
}

func (s *Store) UpsertSale(_ context.Context, sale domain.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		return store.ErrInvalidSale
	}
	s.sales[sale.ID] = sale
	return nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := sale
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.SaleRecord, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, sale)
	}

	// Oldest first; record IDs break ties so the order is stable across replicas.
	slices.SortFunc(sales, func(a, b domain.SaleRecord) int {
		if a.Timestamp.Equal(b.Timestamp) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.Timestamp.Before(b.Timestamp) {
			return -1
		}
		return 1
	})

	return sales, nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.BillSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copySettings := s.settings
	copySettings.WorkerAccounts = slices.Clone(s.settings.WorkerAccounts)
	return &copySettings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.BillSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.TaxRatePercent < 0 {
		return store.ErrInvalidSale
	}
	settings.WorkerAccounts = slices.Clone(settings.WorkerAccounts)
	s.settings = settings
	return nil
}

func (s *Store) GetOpeningCash(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openingCash, nil
}

func (s *Store) SetOpeningCash(_ context.Context, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cents < 0 {
		return store.ErrInvalidSale
	}
	s.openingCash = cents
	return nil
}
