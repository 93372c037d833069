package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/pricing"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/store/memory"
)

func newTestLedger() (*Ledger, *memory.Store) {
	repo := memory.New()
	led := New(repo)
	return led, repo
}

func testLines() []domain.CartLine {
	return []domain.CartLine{
		{Item: domain.MenuItem{ID: "m1", Name: "Classic Burger", PriceCents: 8500, Available: true}, Qty: 2},
	}
}

func testInput() CommitInput {
	lines := testLines()
	return CommitInput{
		Lines:      lines,
		Totals:     pricing.Compute(lines, 5, nil),
		Payment:    domain.Payment{Method: domain.PaymentUPI},
		SettledBy:  "Asha",
		TerminalID: "terminal-a",
	}
}

func TestCommitAssignsTokenAndPendingStatus(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if sale.ID == "" {
		t.Fatalf("expected generated sale id")
	}
	if sale.TokenNumber != 1 {
		t.Fatalf("expected first token 1, got %d", sale.TokenNumber)
	}
	if sale.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", sale.Status)
	}
	if sale.TotalCents != 17850 {
		t.Fatalf("expected total 17850, got %d", sale.TotalCents)
	}

	second, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if second.TokenNumber != 2 {
		t.Fatalf("expected token 2, got %d", second.TokenNumber)
	}
	if second.ID == sale.ID {
		t.Fatalf("sale ids must be unique")
	}
}

func TestCommitTokenWrapsAfter999(t *testing.T) {
	led, repo := newTestLedger()
	ctx := context.Background()

	seed := domain.SaleRecord{
		ID:          "seed",
		TokenNumber: 999,
		Timestamp:   time.Now().UTC().Add(-time.Minute),
		Items:       testLines(),
		TotalCents:  100,
		Payment:     domain.Payment{Method: domain.PaymentCard},
		Status:      domain.StatusServed,
	}
	if err := repo.UpsertSale(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if sale.TokenNumber != 1 {
		t.Fatalf("expected token to wrap to 1 after 999, got %d", sale.TokenNumber)
	}
}

func TestCommitVoidedSaleStillAdvancesToken(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	first, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := led.Void(ctx, first.ID); err != nil {
		t.Fatalf("void: %v", err)
	}

	second, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if second.TokenNumber != 2 {
		t.Fatalf("voided sale must still advance the token, got %d", second.TokenNumber)
	}
}

func TestCommitRejectsEmptyCart(t *testing.T) {
	led, _ := newTestLedger()

	in := testInput()
	in.Lines = nil
	if _, err := led.Commit(context.Background(), in); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestCommitRejectsShortCash(t *testing.T) {
	led, _ := newTestLedger()

	in := testInput()
	short := int64(10000)
	in.Payment = domain.Payment{Method: domain.PaymentCash, CashReceivedCents: &short}
	if _, err := led.Commit(context.Background(), in); !errors.Is(err, store.ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}

	// cash with no recorded amount is never accepted
	in.Payment = domain.Payment{Method: domain.PaymentCash}
	if _, err := led.Commit(context.Background(), in); !errors.Is(err, store.ErrInsufficientCash) {
		t.Fatalf("cash without received amount must be rejected, got %v", err)
	}

	exact := in.Totals.TotalCents
	in.Payment = domain.Payment{Method: domain.PaymentCash, CashReceivedCents: &exact}
	if _, err := led.Commit(context.Background(), in); err != nil {
		t.Fatalf("exact tender commit: %v", err)
	}
}

func TestCommitRejectsUnknownPaymentMethod(t *testing.T) {
	led, _ := newTestLedger()

	in := testInput()
	in.Payment = domain.Payment{Method: "BARTER"}
	if _, err := led.Commit(context.Background(), in); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestStatusMachine(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusReady); err != nil {
		t.Fatalf("pending->ready: %v", err)
	}
	// a repeated tap on the same button is a no-op, not an error
	got, err := led.UpdateStatus(ctx, sale.ID, domain.StatusReady)
	if err != nil {
		t.Fatalf("ready->ready repeat: %v", err)
	}
	if got.Status != domain.StatusReady {
		t.Fatalf("repeat must keep READY, got %s", got.Status)
	}
	// recall back to the queue
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusPending); err != nil {
		t.Fatalf("ready->pending recall: %v", err)
	}
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusReady); err != nil {
		t.Fatalf("pending->ready: %v", err)
	}
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusServed); err != nil {
		t.Fatalf("ready->served: %v", err)
	}

	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusPending); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("served is terminal, got %v", err)
	}
	if _, err := led.Void(ctx, sale.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("served sale cannot be voided, got %v", err)
	}
}

func TestVoidIsTerminal(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := led.Void(ctx, sale.ID); err != nil {
		t.Fatalf("void: %v", err)
	}

	for _, status := range []string{domain.StatusPending, domain.StatusReady, domain.StatusServed} {
		if _, err := led.UpdateStatus(ctx, sale.ID, status); !errors.Is(err, store.ErrInvalidTransition) {
			t.Fatalf("voided sale must reject %s, got %v", status, err)
		}
	}
	// voiding twice is idempotent
	if _, err := led.Void(ctx, sale.ID); err != nil {
		t.Fatalf("repeated void: %v", err)
	}

	got, err := led.Get(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusVoided {
		t.Fatalf("voided record must stay in history, got %s", got.Status)
	}
}

func TestUpdateStatusRejectsUnknownValueAndID(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := led.UpdateStatus(ctx, sale.ID, "COOKED"); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for unknown status, got %v", err)
	}
	if _, err := led.UpdateStatus(ctx, "missing", domain.StatusReady); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyRemoteInsertsUnknownSale(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	remote := domain.SaleRecord{
		ID:          "remote-1",
		TokenNumber: 7,
		Timestamp:   time.Now().UTC(),
		Items:       testLines(),
		TotalCents:  17850,
		Payment:     domain.Payment{Method: domain.PaymentCard},
		Status:      domain.StatusPending,
		TerminalID:  "terminal-b",
	}

	changed, err := led.ApplyRemote(ctx, remote)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("expected insert to report a change")
	}

	// replay is a no-op
	changed, err = led.ApplyRemote(ctx, remote)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if changed {
		t.Fatalf("replay must not change state")
	}
}

func TestApplyRemoteStatusOnlyMovesForward(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusReady); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusServed); err != nil {
		t.Fatalf("served: %v", err)
	}

	stale := *sale
	stale.Status = domain.StatusPending
	changed, err := led.ApplyRemote(ctx, stale)
	if err != nil {
		t.Fatalf("apply stale: %v", err)
	}
	if changed {
		t.Fatalf("stale status must not downgrade a served sale")
	}

	got, err := led.Get(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusServed {
		t.Fatalf("expected SERVED preserved, got %s", got.Status)
	}
}

func TestApplyRemoteVoidDominates(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := led.UpdateStatus(ctx, sale.ID, domain.StatusServed); err != nil {
		t.Fatalf("serve: %v", err)
	}

	voided := *sale
	voided.Status = domain.StatusVoided
	changed, err := led.ApplyRemote(ctx, voided)
	if err != nil {
		t.Fatalf("apply void: %v", err)
	}
	if !changed {
		t.Fatalf("remote void must win")
	}

	got, err := led.Get(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusVoided {
		t.Fatalf("expected VOIDED, got %s", got.Status)
	}
}

func TestApplyRemotePrintedFlagIsSticky(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	sale, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	printed := *sale
	printed.Printed = true
	if _, err := led.ApplyRemote(ctx, printed); err != nil {
		t.Fatalf("apply printed: %v", err)
	}

	unprinted := *sale
	unprinted.Printed = false
	changed, err := led.ApplyRemote(ctx, unprinted)
	if err != nil {
		t.Fatalf("apply unprinted: %v", err)
	}
	if changed {
		t.Fatalf("printed flag must not be cleared by a stale record")
	}
}

func TestApplyRemoteRejectsInvalidRecord(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	if _, err := led.ApplyRemote(ctx, domain.SaleRecord{Status: domain.StatusPending}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for missing id, got %v", err)
	}
	if _, err := led.ApplyRemote(ctx, domain.SaleRecord{ID: "x", Status: "COOKED"}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for bad status, got %v", err)
	}
}

// Two terminals that each allocate from their own history can hand the
// same token to different sales; both records survive side by side.
func TestDuplicateTokensCoexist(t *testing.T) {
	led, _ := newTestLedger()
	ctx := context.Background()

	local, err := led.Commit(ctx, testInput())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	remote := domain.SaleRecord{
		ID:          "remote-dup",
		TokenNumber: local.TokenNumber,
		Timestamp:   local.Timestamp.Add(time.Second),
		Items:       testLines(),
		TotalCents:  4000,
		Payment:     domain.Payment{Method: domain.PaymentCash},
		Status:      domain.StatusPending,
		TerminalID:  "terminal-b",
	}
	if _, err := led.ApplyRemote(ctx, remote); err != nil {
		t.Fatalf("apply: %v", err)
	}

	sales, err := led.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected both sales with the same token, got %d", len(sales))
	}
}

func TestNextTokenNumber(t *testing.T) {
	cases := []struct{ last, want int }{
		{0, 1},
		{-3, 1},
		{1, 2},
		{7, 8},
		{998, 999},
		{999, 1},
	}
	for _, tc := range cases {
		if got := nextTokenNumber(tc.last); got != tc.want {
			t.Fatalf("nextTokenNumber(%d) = %d, want %d", tc.last, got, tc.want)
		}
	}
}
