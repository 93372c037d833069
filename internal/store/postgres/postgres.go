package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

const defaultOpeningCashCents = 100000

// Store backs the cloud sync backend with PostgreSQL. Terminals keep
// their own local stores; this one is the shared authority the poll
// transport replicates against.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS menu_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			available BOOLEAN NOT NULL DEFAULT true
		);
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_number INT NOT NULL,
			items JSONB NOT NULL,
			subtotal_cents BIGINT NOT NULL DEFAULT 0,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			tax_cents BIGINT NOT NULL DEFAULT 0,
			total_cents BIGINT NOT NULL,
			payment JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'PENDING',
			settled_by TEXT NOT NULL DEFAULT '',
			terminal_id TEXT NOT NULL DEFAULT '',
			printed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS stall_state (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL
		);
	`)
	return err
}

func (s *Store) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, category, description, available
		FROM menu_items
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 32)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.PriceCents, &item.Category, &item.Description, &item.Available); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, category, description, available
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.PriceCents, &item.Category, &item.Description, &item.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	if item.ID == "" || item.Name == "" || item.PriceCents < 1 {
		return store.ErrInvalidSale
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, price_cents, category, description, available)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET name = $2, price_cents = $3, category = $4, description = $5, available = $6
	`, item.ID, item.Name, item.PriceCents, item.Category, item.Description, item.Available)
	return err
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReplaceMenu(ctx context.Context, items []domain.MenuItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == "" {
			return store.ErrInvalidSale
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, name, price_cents, category, description, available)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.ID, item.Name, item.PriceCents, item.Category, item.Description, item.Available); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpsertSale(ctx context.Context, sale domain.SaleRecord) error {
	if sale.ID == "" {
		return store.ErrInvalidSale
	}
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return err
	}
	paymentJSON, err := json.Marshal(sale.Payment)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, items, subtotal_cents, discount_cents, tax_cents,
			total_cents, payment, status, settled_by, terminal_id, printed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE
		SET status = $9, printed = $12
	`, sale.ID, sale.TokenNumber, itemsJSON, sale.SubtotalCents, sale.DiscountCents, sale.TaxCents,
		sale.TotalCents, paymentJSON, sale.Status, sale.SettledBy, sale.TerminalID, sale.Printed, sale.Timestamp)
	return err
}

func (s *Store) scanSale(scan func(dest ...any) error) (*domain.SaleRecord, error) {
	var sale domain.SaleRecord
	var itemsJSON, paymentJSON []byte
	if err := scan(&sale.ID, &sale.TokenNumber, &itemsJSON, &sale.SubtotalCents, &sale.DiscountCents,
		&sale.TaxCents, &sale.TotalCents, &paymentJSON, &sale.Status, &sale.SettledBy,
		&sale.TerminalID, &sale.Printed, &sale.Timestamp); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &sale.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paymentJSON, &sale.Payment); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.SaleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, items, subtotal_cents, discount_cents, tax_cents,
			total_cents, payment, status, settled_by, terminal_id, printed, created_at
		FROM orders
		WHERE id = $1
	`, id)
	sale, err := s.scanSale(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, items, subtotal_cents, discount_cents, tax_cents,
			total_cents, payment, status, settled_by, terminal_id, printed, created_at
		FROM orders
		WHERE created_at > now() - INTERVAL '24 hours'
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRecord, 0, 64)
	for rows.Next() {
		sale, err := s.scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) getState(ctx context.Context, key string, out any) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM stall_state WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Store) setState(ctx context.Context, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stall_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`, key, raw)
	return err
}

func (s *Store) GetSettings(ctx context.Context) (*domain.BillSettings, error) {
	var settings domain.BillSettings
	err := s.getState(ctx, "settings", &settings)
	if errors.Is(err, store.ErrNotFound) {
		settings = domain.BillSettings{
			StallName:      "KC HIGH",
			FooterMessage:  "Thank you! Visit Again!",
			TaxRatePercent: 5,
			PrinterEnabled: true,
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.BillSettings) error {
	if settings.TaxRatePercent < 0 {
		return store.ErrInvalidSale
	}
	return s.setState(ctx, "settings", settings)
}

func (s *Store) GetOpeningCash(ctx context.Context) (int64, error) {
	var cents int64
	err := s.getState(ctx, "opening_cash", &cents)
	if errors.Is(err, store.ErrNotFound) {
		return defaultOpeningCashCents, nil
	}
	if err != nil {
		return 0, err
	}
	return cents, nil
}

func (s *Store) SetOpeningCash(ctx context.Context, cents int64) error {
	if cents < 0 {
		return store.ErrInvalidSale
	}
	return s.setState(ctx, "opening_cash", cents)
}
