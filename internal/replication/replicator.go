package replication

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/ledger"
	"stallpos/terminal/internal/receipt"
	"stallpos/terminal/internal/store"
)

// Replicator ties a terminal's state to its peers: it broadcasts
// local changes over the transport and applies incoming messages to
// the ledger and repository. Everything it applies is idempotent, so
// duplicate or out-of-order delivery converges to the same state.
type Replicator struct {
	repo       store.Repository
	ledger     *ledger.Ledger
	transport  Transport
	printer    Printer
	terminalID string
	log        *logrus.Entry
}

func New(repo store.Repository, led *ledger.Ledger, transport Transport, printer Printer, terminalID string, log *logrus.Entry) *Replicator {
	return &Replicator{
		repo:       repo,
		ledger:     led,
		transport:  transport,
		printer:    printer,
		terminalID: terminalID,
		log:        log,
	}
}

// Start subscribes to the transport. Call once at boot.
func (r *Replicator) Start() {
	r.transport.Subscribe(r.apply)
}

func (r *Replicator) Close() error {
	return r.transport.Close()
}

func (r *Replicator) apply(ctx context.Context, msg domain.Message) {
	if msg.Origin == r.terminalID {
		return
	}

	var err error
	switch msg.Type {
	case domain.MsgSalesUpdate:
		err = r.applySales(ctx, msg.Payload)
	case domain.MsgInventoryUpdate:
		err = r.applyInventory(ctx, msg.Payload)
	case domain.MsgSettingsUpdate:
		err = r.applySettings(ctx, msg.Payload)
	case domain.MsgOpeningCashUpdate:
		err = r.applyOpeningCash(ctx, msg.Payload)
	case domain.MsgRemotePrintRequest:
		err = r.applyRemotePrint(ctx, msg.Payload)
	default:
		r.log.WithField("type", msg.Type).Warn("ignoring unknown replication message")
		return
	}
	if err != nil {
		r.log.WithError(err).WithField("type", msg.Type).Warn("failed to apply replication message")
	}
}

func (r *Replicator) applySales(ctx context.Context, payload json.RawMessage) error {
	var sales []domain.SaleRecord
	if err := json.Unmarshal(payload, &sales); err != nil {
		return err
	}
	for _, sale := range sales {
		if _, err := r.ledger.ApplyRemote(ctx, sale); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replicator) applyInventory(ctx context.Context, payload json.RawMessage) error {
	var items []domain.MenuItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return err
	}
	return r.repo.ReplaceMenu(ctx, items)
}

func (r *Replicator) applySettings(ctx context.Context, payload json.RawMessage) error {
	var settings domain.BillSettings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return err
	}
	// Print-hub role is a property of this terminal, not of the stall;
	// keep the local value.
	local, err := r.repo.GetSettings(ctx)
	if err == nil {
		settings.IsPrintHub = local.IsPrintHub
		settings.PrinterEnabled = local.PrinterEnabled
	}
	return r.repo.SaveSettings(ctx, settings)
}

func (r *Replicator) applyOpeningCash(ctx context.Context, payload json.RawMessage) error {
	var p domain.OpeningCashPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	return r.repo.SetOpeningCash(ctx, p.OpeningCashCents)
}

// applyRemotePrint handles a print request fanned out by a terminal
// without hardware. Only the print hub acts on it.
func (r *Replicator) applyRemotePrint(ctx context.Context, payload json.RawMessage) error {
	settings, err := r.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.IsPrintHub || !settings.PrinterEnabled {
		return nil
	}

	var sale domain.SaleRecord
	if err := json.Unmarshal(payload, &sale); err != nil {
		return err
	}
	return r.printer.Print(ctx, receipt.Build(sale, *settings))
}

func (r *Replicator) publish(ctx context.Context, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.transport.Publish(ctx, domain.Message{
		Type:    msgType,
		Origin:  r.terminalID,
		Payload: raw,
	})
}

func (r *Replicator) BroadcastSale(ctx context.Context, sale domain.SaleRecord) error {
	return r.publish(ctx, domain.MsgSalesUpdate, []domain.SaleRecord{sale})
}

func (r *Replicator) BroadcastMenu(ctx context.Context, items []domain.MenuItem) error {
	return r.publish(ctx, domain.MsgInventoryUpdate, items)
}

func (r *Replicator) BroadcastSettings(ctx context.Context, settings domain.BillSettings) error {
	return r.publish(ctx, domain.MsgSettingsUpdate, settings)
}

func (r *Replicator) BroadcastOpeningCash(ctx context.Context, cents int64) error {
	return r.publish(ctx, domain.MsgOpeningCashUpdate, domain.OpeningCashPayload{OpeningCashCents: cents})
}

func (r *Replicator) RequestRemotePrint(ctx context.Context, sale domain.SaleRecord) error {
	return r.publish(ctx, domain.MsgRemotePrintRequest, sale)
}

// ResyncNow pulls the transport's full state and folds it in. Called
// after boot and whenever connectivity returns.
func (r *Replicator) ResyncNow(ctx context.Context) error {
	msgs, err := r.transport.Resync(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		r.apply(ctx, msg)
	}
	return nil
}
