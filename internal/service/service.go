package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/cart"
	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/drawer"
	"stallpos/terminal/internal/ledger"
	"stallpos/terminal/internal/pricing"
	"stallpos/terminal/internal/receipt"
	"stallpos/terminal/internal/replication"
	"stallpos/terminal/internal/report"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the terminal's application layer: carts in progress,
// the sale ledger, replication to peer terminals and the reporting
// views over the day's history.
type Service struct {
	repo       store.Repository
	ledger     *ledger.Ledger
	repl       *replication.Replicator
	printer    replication.Printer
	terminalID string
	log        *logrus.Entry

	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func New(repo store.Repository, led *ledger.Ledger, repl *replication.Replicator, printer replication.Printer, terminalID string, log *logrus.Entry) *Service {
	if terminalID == "" {
		terminalID = "terminal-1"
	}

	return &Service{
		repo:       repo,
		ledger:     led,
		repl:       repl,
		printer:    printer,
		terminalID: terminalID,
		log:        log,
		carts:      make(map[string]*cart.Cart),
	}
}

func (s *Service) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListMenu(ctx)
}

func (s *Service) CreateMenuItem(ctx context.Context, req domain.MenuItemCreateRequest) (domain.MenuItem, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.MenuItem{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents < 1 {
		return domain.MenuItem{}, store.ErrInvalidSale
	}

	item := domain.MenuItem{
		ID:          xid.New("itm"),
		Name:        req.Name,
		PriceCents:  req.PriceCents,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Available:   true,
	}
	if err := s.repo.UpsertMenuItem(ctx, item); err != nil {
		return domain.MenuItem{}, err
	}

	s.broadcastMenu(ctx)
	return item, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, id string, req domain.MenuItemUpdateRequest) (domain.MenuItem, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.MenuItem{}, err
	}

	item, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.PriceCents != nil {
		item.PriceCents = *req.PriceCents
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	if item.Name == "" || item.PriceCents < 1 {
		return domain.MenuItem{}, store.ErrInvalidSale
	}

	if err := s.repo.UpsertMenuItem(ctx, *item); err != nil {
		return domain.MenuItem{}, err
	}

	s.broadcastMenu(ctx)
	return *item, nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.broadcastMenu(ctx)
	return nil
}

func (s *Service) broadcastMenu(ctx context.Context) {
	items, err := s.repo.ListMenu(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to load menu for broadcast")
		return
	}
	if err := s.repl.BroadcastMenu(ctx, items); err != nil {
		s.log.WithError(err).Warn("failed to broadcast menu update")
	}
}

// cartKey scopes the in-progress cart to whoever is logged in; two
// staff on the same terminal compose orders independently.
func cartKey(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("authentication required")
	}
	return actor.Email, nil
}

func (s *Service) CartAdd(ctx context.Context, req domain.CartAddRequest) (domain.CartView, error) {
	key, err := cartKey(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	item, err := s.repo.GetMenuItem(ctx, req.ItemID)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(key)
	if err := c.Add(*item); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(ctx, c, nil)
}

func (s *Service) CartUpdate(ctx context.Context, req domain.CartUpdateRequest) (domain.CartView, error) {
	key, err := cartKey(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(key)
	if err := c.UpdateQty(req.ItemID, req.Delta, req.Instructions); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(ctx, c, nil)
}

func (s *Service) CartRemove(ctx context.Context, req domain.CartRemoveRequest) (domain.CartView, error) {
	key, err := cartKey(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(key)
	if err := c.Remove(req.ItemID); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(ctx, c, nil)
}

func (s *Service) CartClear(ctx context.Context) error {
	key, err := cartKey(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartLocked(key).Clear()
	return nil
}

func (s *Service) Cart(ctx context.Context, disc *domain.Discount) (domain.CartView, error) {
	key, err := cartKey(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartViewLocked(ctx, s.cartLocked(key), disc)
}

func (s *Service) cartLocked(key string) *cart.Cart {
	c, ok := s.carts[key]
	if !ok {
		c = cart.New()
		s.carts[key] = c
	}
	return c
}

func (s *Service) cartViewLocked(ctx context.Context, c *cart.Cart, disc *domain.Discount) (domain.CartView, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	totals := pricing.Compute(c.Lines(), settings.TaxRatePercent, disc)
	return domain.CartView{
		Lines: c.Lines(),
		Totals: domain.CartTotals{
			SubtotalCents: totals.SubtotalCents,
			DiscountCents: totals.DiscountCents,
			TaxCents:      totals.TaxCents,
			TotalCents:    totals.TotalCents,
		},
	}, nil
}

// Checkout settles the actor's cart into a PENDING sale, broadcasts
// it to the other terminals and kicks off the receipt print.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.SaleRecord, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleRecord{}, fmt.Errorf("authentication required")
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.SaleRecord{}, store.ErrInvalidSale
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	s.mu.Lock()
	c := s.cartLocked(actor.Email)
	lines := c.Lines()
	s.mu.Unlock()

	totals := pricing.Compute(lines, settings.TaxRatePercent, req.Discount)

	payment := domain.Payment{Method: req.PaymentMethod}
	if req.PaymentMethod == domain.PaymentCash {
		if req.CashReceivedCents == nil || *req.CashReceivedCents < totals.TotalCents {
			return domain.SaleRecord{}, store.ErrInsufficientCash
		}
		received := *req.CashReceivedCents
		change := pricing.Change(received, totals.TotalCents)
		payment.CashReceivedCents = &received
		payment.CashChangeCents = &change
	}

	sale, err := s.ledger.Commit(ctx, ledger.CommitInput{
		Lines:      lines,
		Totals:     totals,
		Payment:    payment,
		SettledBy:  actor.Name,
		TerminalID: s.terminalID,
	})
	if err != nil {
		return domain.SaleRecord{}, err
	}

	s.mu.Lock()
	c.Clear()
	s.mu.Unlock()

	if err := s.repl.BroadcastSale(ctx, *sale); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).Warn("failed to broadcast sale")
	}
	s.printReceipt(ctx, *sale, *settings)

	s.log.WithFields(logrus.Fields{
		"sale_id":     sale.ID,
		"token":       sale.TokenNumber,
		"total_cents": sale.TotalCents,
		"method":      sale.Payment.Method,
		"settled_by":  sale.SettledBy,
	}).Info("sale committed")

	return *sale, nil
}

// printReceipt routes the print job: locally when this terminal is
// the print hub, otherwise as a remote print request to whichever
// terminal is.
func (s *Service) printReceipt(ctx context.Context, sale domain.SaleRecord, settings domain.BillSettings) {
	if !settings.PrinterEnabled {
		return
	}
	if settings.IsPrintHub && s.printer != nil {
		if err := s.printer.Print(ctx, receipt.Build(sale, settings)); err != nil {
			s.log.WithError(err).WithField("sale_id", sale.ID).Warn("local print failed")
		}
		return
	}
	if err := s.repl.RequestRemotePrint(ctx, sale); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).Warn("remote print request failed")
	}
}

func (s *Service) UpdateSaleStatus(ctx context.Context, id string, status string) (domain.SaleRecord, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.SaleRecord{}, fmt.Errorf("authentication required")
	}
	if status == domain.StatusVoided {
		// Voids go through VoidSale so the PIN gate cannot be skipped.
		return domain.SaleRecord{}, store.ErrInvalidTransition
	}

	sale, err := s.ledger.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	if err := s.repl.BroadcastSale(ctx, *sale); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).Warn("failed to broadcast status change")
	}
	return *sale, nil
}

func (s *Service) VoidSale(ctx context.Context, id string, reason string) (domain.SaleRecord, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleRecord{}, fmt.Errorf("authentication required")
	}

	sale, err := s.ledger.Void(ctx, id)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	if err := s.repl.BroadcastSale(ctx, *sale); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).Warn("failed to broadcast void")
	}

	s.log.WithFields(logrus.Fields{
		"sale_id":   sale.ID,
		"token":     sale.TokenNumber,
		"reason":    reason,
		"voided_by": actor.Name,
	}).Info("sale voided")

	return *sale, nil
}

func (s *Service) History(ctx context.Context) ([]domain.SaleRecord, error) {
	return s.ledger.Snapshot(ctx)
}

func (s *Service) Sale(ctx context.Context, id string) (domain.SaleRecord, error) {
	sale, err := s.ledger.Get(ctx, id)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	return *sale, nil
}

func (s *Service) Report(ctx context.Context) (domain.SalesSummary, error) {
	sales, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	return report.Summarize(sales), nil
}

func (s *Service) Drawer(ctx context.Context) (domain.DrawerAudit, error) {
	opening, err := s.repo.GetOpeningCash(ctx)
	if err != nil {
		return domain.DrawerAudit{}, err
	}
	sales, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return domain.DrawerAudit{}, err
	}
	return drawer.Expected(opening, sales), nil
}

func (s *Service) Settings(ctx context.Context) (domain.BillSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.BillSettings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.BillSettings) (domain.BillSettings, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.BillSettings{}, err
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return domain.BillSettings{}, err
	}
	if err := s.repl.BroadcastSettings(ctx, settings); err != nil {
		s.log.WithError(err).Warn("failed to broadcast settings")
	}
	return settings, nil
}

func (s *Service) OpeningCash(ctx context.Context) (int64, error) {
	return s.repo.GetOpeningCash(ctx)
}

func (s *Service) SetOpeningCash(ctx context.Context, cents int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.SetOpeningCash(ctx, cents); err != nil {
		return err
	}
	if err := s.repl.BroadcastOpeningCash(ctx, cents); err != nil {
		s.log.WithError(err).Warn("failed to broadcast opening cash")
	}
	return nil
}

func (s *Service) Resync(ctx context.Context) error {
	return s.repl.ResyncNow(ctx)
}

func (s *Service) BuildReceipt(ctx context.Context, id string) (receipt.Receipt, error) {
	sale, err := s.ledger.Get(ctx, id)
	if err != nil {
		return receipt.Receipt{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return receipt.Receipt{}, err
	}
	return receipt.Build(*sale, *settings), nil
}

// Reprint rebuilds a sale's receipt and routes it to the printer
// again, for torn paper and lost slips.
func (s *Service) Reprint(ctx context.Context, id string) error {
	if _, ok := ActorFromContext(ctx); !ok {
		return fmt.Errorf("authentication required")
	}
	sale, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	s.printReceipt(ctx, *sale, *settings)
	return nil
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required", strings.ToLower(role))
	}
	return nil
}
