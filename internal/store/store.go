package store

import (
	"context"
	"errors"

	"stallpos/terminal/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientCash  = errors.New("insufficient cash received")
	ErrItemUnavailable   = errors.New("item unavailable")
)

type Repository interface {
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	UpsertMenuItem(ctx context.Context, item domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
	ReplaceMenu(ctx context.Context, items []domain.MenuItem) error

	UpsertSale(ctx context.Context, sale domain.SaleRecord) error
	GetSale(ctx context.Context, id string) (*domain.SaleRecord, error)
	ListSales(ctx context.Context) ([]domain.SaleRecord, error)

	GetSettings(ctx context.Context) (*domain.BillSettings, error)
	SaveSettings(ctx context.Context, settings domain.BillSettings) error

	GetOpeningCash(ctx context.Context) (int64, error)
	SetOpeningCash(ctx context.Context, cents int64) error
}
