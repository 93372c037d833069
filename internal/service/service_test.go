package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/ledger"
	"stallpos/terminal/internal/replication"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	repo := memory.NewSeeded()
	led := ledger.New(repo)
	repl := replication.New(repo, led, replication.Noop{}, replication.LogPrinter{Log: entry}, "terminal-test", entry)
	return New(repo, led, repl, replication.LogPrinter{Log: entry}, "terminal-test", entry), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Name: "Owner", Email: "owner@stall.local", Role: domain.RoleAdmin})
}

func workerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Name: "Asha", Email: "asha@stall.local", Role: domain.RoleWorker})
}

func addToCart(t *testing.T, svc *Service, ctx context.Context, itemID string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		if _, err := svc.CartAdd(ctx, domain.CartAddRequest{ItemID: itemID}); err != nil {
			t.Fatalf("cart add %s: %v", itemID, err)
		}
	}
}

func TestCartAddAndTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	// two burgers at 8500 with the seeded 5% tax
	addToCart(t, svc, ctx, "m1", 2)

	view, err := svc.Cart(ctx, nil)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Qty != 2 {
		t.Fatalf("expected one merged line of qty 2, got %+v", view.Lines)
	}
	if view.Totals.SubtotalCents != 17000 || view.Totals.TaxCents != 850 || view.Totals.TotalCents != 17850 {
		t.Fatalf("totals wrong: %+v", view.Totals)
	}
}

func TestCartsAreScopedPerActor(t *testing.T) {
	svc, _ := newTestService(t)

	addToCart(t, svc, workerCtx(), "m1", 1)

	view, err := svc.Cart(adminCtx(), nil)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("admin cart must be empty, got %+v", view.Lines)
	}
}

func TestCartRequiresActor(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CartAdd(context.Background(), domain.CartAddRequest{ItemID: "m1"}); err == nil {
		t.Fatalf("expected error without an actor")
	}
}

func TestCheckoutCashWithChange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m1", 2)

	received := int64(20000)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: &received,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.TotalCents != 17850 {
		t.Fatalf("total: got %d, want 17850", sale.TotalCents)
	}
	if sale.Payment.CashChangeCents == nil || *sale.Payment.CashChangeCents != 2150 {
		t.Fatalf("change wrong: %+v", sale.Payment)
	}
	if sale.Status != domain.StatusPending {
		t.Fatalf("status: got %s, want PENDING", sale.Status)
	}
	if sale.SettledBy != "Asha" {
		t.Fatalf("settled by: got %q", sale.SettledBy)
	}

	// checkout clears the cart
	view, err := svc.Cart(ctx, nil)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("cart must be empty after checkout, got %+v", view.Lines)
	}
}

func TestCheckoutRejectsShortCash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m1", 2)

	received := int64(10000)
	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: &received,
	})
	if !errors.Is(err, store.ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}

	// the cart survives a failed checkout
	view, err := svc.Cart(ctx, nil)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("cart must survive a failed checkout, got %+v", view.Lines)
	}
}

func TestCheckoutCashRequiresReceivedAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m1", 2)

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{PaymentMethod: domain.PaymentCash})
	if !errors.Is(err, store.ErrInsufficientCash) {
		t.Fatalf("cash checkout without received amount must fail, got %v", err)
	}

	// the cart survives, so the cashier can re-enter the amount
	view, err := svc.Cart(ctx, nil)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("cart must survive, got %+v", view.Lines)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Checkout(workerCtx(), domain.CheckoutRequest{PaymentMethod: domain.PaymentUPI})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestCheckoutWithDiscount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m1", 2)

	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentUPI,
		Discount:      &domain.Discount{Type: domain.DiscountPercent, PercentValue: 10},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 17000 - 1700 = 15300, 5% tax 765, total 16065
	if sale.DiscountCents != 1700 || sale.TaxCents != 765 || sale.TotalCents != 16065 {
		t.Fatalf("discounted totals wrong: %+v", sale)
	}
}

func TestStatusUpdateCannotVoid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m1", 1)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{PaymentMethod: domain.PaymentCard})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.StatusVoided); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("status endpoint must not void, got %v", err)
	}

	if _, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.StatusReady); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestVoidRevertsDrawer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	before, err := svc.Drawer(ctx)
	if err != nil {
		t.Fatalf("drawer: %v", err)
	}

	addToCart(t, svc, ctx, "m1", 2)
	received := int64(20000)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: &received,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	mid, err := svc.Drawer(ctx)
	if err != nil {
		t.Fatalf("drawer: %v", err)
	}
	if mid.ExpectedCents != before.ExpectedCents+17850 {
		t.Fatalf("drawer after sale: got %d, want %d", mid.ExpectedCents, before.ExpectedCents+17850)
	}

	if _, err := svc.VoidSale(ctx, sale.ID, "customer walked off"); err != nil {
		t.Fatalf("void: %v", err)
	}

	after, err := svc.Drawer(ctx)
	if err != nil {
		t.Fatalf("drawer: %v", err)
	}
	if after.ExpectedCents != before.ExpectedCents {
		t.Fatalf("void must revert the drawer: got %d, want %d", after.ExpectedCents, before.ExpectedCents)
	}

	// the record stays in history and in the voided tally
	summary, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if summary.VoidedOrders != 1 || summary.Orders != 0 {
		t.Fatalf("report after void: %+v", summary)
	}
}

func TestMenuMutationsRequireAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreateMenuItem(workerCtx(), domain.MenuItemCreateRequest{Name: "Dosa", PriceCents: 6000}); err == nil {
		t.Fatalf("worker must not create menu items")
	}
	if err := svc.DeleteMenuItem(workerCtx(), "m1"); err == nil {
		t.Fatalf("worker must not delete menu items")
	}
	if err := svc.SetOpeningCash(workerCtx(), 200000); err == nil {
		t.Fatalf("worker must not set opening cash")
	}

	item, err := svc.CreateMenuItem(adminCtx(), domain.MenuItemCreateRequest{Name: "Dosa", PriceCents: 6000, Category: "Mains"})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if item.ID == "" || !item.Available {
		t.Fatalf("created item wrong: %+v", item)
	}
}

func TestUpdateMenuItemPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	unavailable := false
	item, err := svc.UpdateMenuItem(ctx, "m1", domain.MenuItemUpdateRequest{Available: &unavailable})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if item.Available {
		t.Fatalf("expected item marked unavailable")
	}
	if item.Name != "Classic Burger" || item.PriceCents != 8500 {
		t.Fatalf("untouched fields must stay: %+v", item)
	}

	// a sold-out item cannot be added to a cart
	if _, err := svc.CartAdd(workerCtx(), domain.CartAddRequest{ItemID: "m1"}); !errors.Is(err, store.ErrItemUnavailable) {
		t.Fatalf("expected ErrItemUnavailable, got %v", err)
	}
}

func TestUpdateSettingsRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.Settings(workerCtx())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	settings.StallName = "NEW NAME"

	if _, err := svc.UpdateSettings(workerCtx(), settings); err == nil {
		t.Fatalf("worker must not update settings")
	}
	if _, err := svc.UpdateSettings(adminCtx(), settings); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	got, err := svc.Settings(workerCtx())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got.StallName != "NEW NAME" {
		t.Fatalf("settings not saved: %+v", got)
	}
}

func TestBuildReceiptForSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := workerCtx()

	addToCart(t, svc, ctx, "m4", 1)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{PaymentMethod: domain.PaymentUPI})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	r, err := svc.BuildReceipt(ctx, sale.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if r.SaleID != sale.ID || r.TokenNumber != sale.TokenNumber {
		t.Fatalf("receipt identity wrong: %+v", r)
	}

	if _, err := svc.BuildReceipt(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
