package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/pricing"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/xid"
)

// Ledger owns the sale history: it allocates token numbers, commits
// new sales, drives the status machine and merges records arriving
// from other terminals.
type Ledger struct {
	mu   sync.Mutex
	repo store.Repository
	now  func() time.Time
}

func New(repo store.Repository) *Ledger {
	return &Ledger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

type CommitInput struct {
	Lines      []domain.CartLine
	Totals     pricing.Totals
	Payment    domain.Payment
	SettledBy  string
	TerminalID string
}

// Commit turns a priced cart into a PENDING sale with the next token
// number and persists it. The token comes from the most recent sale on
// record, voided ones included.
func (l *Ledger) Commit(ctx context.Context, in CommitInput) (*domain.SaleRecord, error) {
	if len(in.Lines) == 0 {
		return nil, store.ErrInvalidSale
	}
	for _, line := range in.Lines {
		if line.Qty < 1 || line.Item.ID == "" {
			return nil, store.ErrInvalidSale
		}
	}
	if !domain.ValidPaymentMethod(in.Payment.Method) {
		return nil, store.ErrInvalidSale
	}
	if in.Payment.Method == domain.PaymentCash {
		if in.Payment.CashReceivedCents == nil || *in.Payment.CashReceivedCents < in.Totals.TotalCents {
			return nil, store.ErrInsufficientCash
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	token, err := l.nextToken(ctx)
	if err != nil {
		return nil, err
	}

	sale := domain.SaleRecord{
		ID:            xid.NewSaleID(),
		TokenNumber:   token,
		Timestamp:     l.now(),
		Items:         in.Lines,
		SubtotalCents: in.Totals.SubtotalCents,
		DiscountCents: in.Totals.DiscountCents,
		TaxCents:      in.Totals.TaxCents,
		TotalCents:    in.Totals.TotalCents,
		Payment:       in.Payment,
		Status:        domain.StatusPending,
		SettledBy:     in.SettledBy,
		TerminalID:    in.TerminalID,
	}

	if err := l.repo.UpsertSale(ctx, sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (l *Ledger) nextToken(ctx context.Context) (int, error) {
	sales, err := l.repo.ListSales(ctx)
	if err != nil {
		return 0, err
	}
	if len(sales) == 0 {
		return 1, nil
	}
	return nextTokenNumber(sales[len(sales)-1].TokenNumber), nil
}

// CanTransition is the status machine: PENDING and READY move freely
// between each other and forward; SERVED and VOIDED are terminal.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case domain.StatusPending:
		return to == domain.StatusReady || to == domain.StatusServed || to == domain.StatusVoided
	case domain.StatusReady:
		return to == domain.StatusPending || to == domain.StatusServed || to == domain.StatusVoided
	}
	return false
}

func (l *Ledger) UpdateStatus(ctx context.Context, id string, to string) (*domain.SaleRecord, error) {
	if !domain.ValidStatus(to) {
		return nil, store.ErrInvalidSale
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sale, err := l.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.Status == to {
		// duplicated tap on the same button, nothing to do
		return sale, nil
	}
	if !CanTransition(sale.Status, to) {
		return nil, store.ErrInvalidTransition
	}
	sale.Status = to
	if err := l.repo.UpsertSale(ctx, *sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Void cancels a sale. The record stays in history; reporting and the
// drawer exclude it from that point on.
func (l *Ledger) Void(ctx context.Context, id string) (*domain.SaleRecord, error) {
	return l.UpdateStatus(ctx, id, domain.StatusVoided)
}

func (l *Ledger) SetPrinted(ctx context.Context, id string, printed bool) (*domain.SaleRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sale, err := l.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Printed = printed
	if err := l.repo.UpsertSale(ctx, *sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// ApplyRemote merges one record replicated from another terminal.
// Unknown IDs are inserted as-is. For known IDs the status only moves
// up in rank, so replays and out-of-order delivery cannot regress a
// sale. Returns true when the stored record changed.
func (l *Ledger) ApplyRemote(ctx context.Context, remote domain.SaleRecord) (bool, error) {
	if remote.ID == "" || !domain.ValidStatus(remote.Status) {
		return false, store.ErrInvalidSale
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	local, err := l.repo.GetSale(ctx, remote.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := l.repo.UpsertSale(ctx, remote); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, err
	}

	merged := *local
	changed := false
	if domain.StatusRank(remote.Status) > domain.StatusRank(merged.Status) {
		merged.Status = remote.Status
		changed = true
	}
	if remote.Printed && !merged.Printed {
		merged.Printed = true
		changed = true
	}
	if !changed {
		return false, nil
	}
	if err := l.repo.UpsertSale(ctx, merged); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.SaleRecord, error) {
	return l.repo.GetSale(ctx, id)
}

func (l *Ledger) Snapshot(ctx context.Context) ([]domain.SaleRecord, error) {
	return l.repo.ListSales(ctx)
}
