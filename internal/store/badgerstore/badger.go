package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

const (
	menuPrefix     = "menu:"
	salePrefix     = "sale:"
	settingsKey    = "settings"
	openingCashKey = "opening_cash"

	defaultOpeningCashCents = 100000
)

// Store keeps the terminal's state in an embedded Badger database so
// a power cut at the stall loses nothing.
type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureDefaults(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureDefaults() error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(settingsKey)); errors.Is(err, badger.ErrKeyNotFound) {
			raw, err := json.Marshal(domain.BillSettings{
				StallName:      "KC HIGH",
				FooterMessage:  "Thank you! Visit Again!",
				TaxRatePercent: 5,
				PrinterEnabled: true,
			})
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(settingsKey), raw); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := txn.Get([]byte(openingCashKey)); errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(openingCashKey), []byte(strconv.FormatInt(defaultOpeningCashCents, 10)))
		} else if err != nil {
			return err
		}
		return nil
	})
}

func (s *Store) getJSON(key string, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	})
}

func (s *Store) setJSON(key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

func (s *Store) listPrefix(prefix string, visit func(raw []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := visit(raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListMenu(_ context.Context) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	err := s.listPrefix(menuPrefix, func(raw []byte) error {
		var item domain.MenuItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
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
	var item domain.MenuItem
	if err := s.getJSON(menuPrefix+id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertMenuItem(_ context.Context, item domain.MenuItem) error {
	if item.ID == "" || item.Name == "" || item.PriceCents < 1 {
		return store.ErrInvalidSale
	}
	return s.setJSON(menuPrefix+item.ID, item)
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(menuPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (s *Store) ReplaceMenu(_ context.Context, items []domain.MenuItem) error {
	encoded := make(map[string][]byte, len(items))
	for _, item := range items {
		if item.ID == "" {
			return store.ErrInvalidSale
		}
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		encoded[menuPrefix+item.ID] = raw
	}

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(menuPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for key, raw := range encoded {
			if err := txn.Set([]byte(key), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpsertSale(_ context.Context, sale domain.SaleRecord) error {
	if sale.ID == "" {
		return store.ErrInvalidSale
	}
	return s.setJSON(salePrefix+sale.ID, sale)
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.SaleRecord, error) {
	var sale domain.SaleRecord
	if err := s.getJSON(salePrefix+id, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SaleRecord, error) {
	var sales []domain.SaleRecord
	err := s.listPrefix(salePrefix, func(raw []byte) error {
		var sale domain.SaleRecord
		if err := json.Unmarshal(raw, &sale); err != nil {
			return err
		}
		sales = append(sales, sale)
		return nil
	})
	if err != nil {
		return nil, err
	}

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
	var settings domain.BillSettings
	if err := s.getJSON(settingsKey, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.BillSettings) error {
	if settings.TaxRatePercent < 0 {
		return store.ErrInvalidSale
	}
	return s.setJSON(settingsKey, settings)
}

func (s *Store) GetOpeningCash(_ context.Context) (int64, error) {
	var cents int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(openingCashKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			cents = defaultOpeningCashCents
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		cents, err = strconv.ParseInt(string(raw), 10, 64)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cents, nil
}

func (s *Store) SetOpeningCash(_ context.Context, cents int64) error {
	if cents < 0 {
		return store.ErrInvalidSale
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(openingCashKey), []byte(strconv.FormatInt(cents, 10)))
	})
}
