package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/domain"
)

const syncOrigin = "sync-backend"

// PollTransport replicates through a shared REST backend instead of a
// broker: sales are pushed with POST/PUT and peer activity is picked
// up by polling the order list. Only SALES_UPDATE travels this way;
// settings and cash stay terminal-local unless another transport
// carries them.
type PollTransport struct {
	baseURL    string
	client     *http.Client
	terminalID string
	interval   time.Duration
	log        *logrus.Entry

	mu     sync.Mutex
	known  map[string]string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollTransport(baseURL string, terminalID string, interval time.Duration, log *logrus.Entry) *PollTransport {
	return &PollTransport{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		terminalID: terminalID,
		interval:   interval,
		log:        log,
		known:      make(map[string]string),
	}
}

func fingerprint(order WireOrder) string {
	return fmt.Sprintf("%s|%t", order.Status, order.Printed)
}

func (t *PollTransport) Publish(ctx context.Context, msg domain.Message) error {
	if msg.Type != domain.MsgSalesUpdate {
		return nil
	}
	var sales []domain.SaleRecord
	if err := json.Unmarshal(msg.Payload, &sales); err != nil {
		return err
	}

	for _, sale := range sales {
		if err := t.pushSale(ctx, sale); err != nil {
			return err
		}
	}
	return nil
}

func (t *PollTransport) pushSale(ctx context.Context, sale domain.SaleRecord) error {
	order := FromSale(sale)

	t.mu.Lock()
	_, seen := t.known[order.ID]
	t.mu.Unlock()

	if !seen {
		if err := t.postOrder(ctx, order); err != nil {
			return err
		}
	} else {
		update := WireOrderUpdate{ID: order.ID, Status: &order.Status, Printed: &order.Printed}
		if err := t.putOrder(ctx, update); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.known[order.ID] = fingerprint(order)
	t.mu.Unlock()
	return nil
}

func (t *PollTransport) postOrder(ctx context.Context, order WireOrder) error {
	body, err := json.Marshal(order)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync backend rejected order %s: %s", order.ID, resp.Status)
	}
	return nil
}

func (t *PollTransport) putOrder(ctx context.Context, update WireOrderUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync backend rejected update for %s: %s", update.ID, resp.Status)
	}
	return nil
}

func (t *PollTransport) fetchOrders(ctx context.Context) ([]WireOrder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/orders", nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync backend list failed: %s", resp.Status)
	}

	var orders []WireOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (t *PollTransport) Subscribe(h Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg, err := t.poll(ctx)
				if err != nil {
					t.log.WithError(err).Warn("sync poll failed")
					continue
				}
				if msg != nil {
					h(ctx, *msg)
				}
			}
		}
	}()
}

// poll fetches the backend's order list and reports only the records
// whose status or printed flag moved since the last round.
func (t *PollTransport) poll(ctx context.Context) (*domain.Message, error) {
	orders, err := t.fetchOrders(ctx)
	if err != nil {
		return nil, err
	}

	var changed []domain.SaleRecord
	t.mu.Lock()
	for _, order := range orders {
		fp := fingerprint(order)
		if t.known[order.ID] == fp {
			continue
		}
		t.known[order.ID] = fp
		changed = append(changed, order.ToSale())
	}
	t.mu.Unlock()

	if len(changed) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(changed)
	if err != nil {
		return nil, err
	}
	return &domain.Message{Type: domain.MsgSalesUpdate, Origin: syncOrigin, Payload: payload}, nil
}

// Resync returns the backend's full order list as one bulk message,
// for catching up after a reconnect.
func (t *PollTransport) Resync(ctx context.Context) ([]domain.Message, error) {
	orders, err := t.fetchOrders(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	sales := make([]domain.SaleRecord, 0, len(orders))
	t.mu.Lock()
	for _, order := range orders {
		t.known[order.ID] = fingerprint(order)
		sales = append(sales, order.ToSale())
	}
	t.mu.Unlock()

	payload, err := json.Marshal(sales)
	if err != nil {
		return nil, err
	}
	return []domain.Message{{Type: domain.MsgSalesUpdate, Origin: syncOrigin, Payload: payload}}, nil
}

func (t *PollTransport) Close() error {
	if t.cancel != nil {
		t.cancel()
		<-t.done
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
