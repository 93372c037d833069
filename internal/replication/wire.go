package replication

import (
	"time"

	"stallpos/terminal/internal/domain"
)

// WireOrder is the order shape on the sync backend's REST surface.
// Both the poll transport (client side) and the HTTP API (server
// side) speak it.
type WireOrder struct {
	ID            string            `json:"id,omitempty"`
	OrderNumber   int               `json:"orderNumber"`
	Items         []domain.CartLine `json:"items"`
	SubtotalCents int64             `json:"subtotalCents,omitempty"`
	DiscountCents int64             `json:"discountCents,omitempty"`
	TaxCents      int64             `json:"taxCents,omitempty"`
	TotalAmount   int64             `json:"totalAmount"`
	Payment       *domain.Payment   `json:"payment,omitempty"`
	Status        string            `json:"status,omitempty"`
	SettledBy     string            `json:"settledBy,omitempty"`
	TerminalID    string            `json:"terminalId,omitempty"`
	Printed       bool              `json:"printed"`
	CreatedAt     time.Time         `json:"createdAt,omitempty"`
}

type WireOrderUpdate struct {
	ID      string  `json:"id"`
	Status  *string `json:"status,omitempty"`
	Printed *bool   `json:"printed,omitempty"`
}

func FromSale(sale domain.SaleRecord) WireOrder {
	payment := sale.Payment
	return WireOrder{
		ID:            sale.ID,
		OrderNumber:   sale.TokenNumber,
		Items:         sale.Items,
		SubtotalCents: sale.SubtotalCents,
		DiscountCents: sale.DiscountCents,
		TaxCents:      sale.TaxCents,
		TotalAmount:   sale.TotalCents,
		Payment:       &payment,
		Status:        sale.Status,
		SettledBy:     sale.SettledBy,
		TerminalID:    sale.TerminalID,
		Printed:       sale.Printed,
		CreatedAt:     sale.Timestamp,
	}
}

func (w WireOrder) ToSale() domain.SaleRecord {
	sale := domain.SaleRecord{
		ID:            w.ID,
		TokenNumber:   w.OrderNumber,
		Timestamp:     w.CreatedAt,
		Items:         w.Items,
		SubtotalCents: w.SubtotalCents,
		DiscountCents: w.DiscountCents,
		TaxCents:      w.TaxCents,
		TotalCents:    w.TotalAmount,
		Status:        w.Status,
		SettledBy:     w.SettledBy,
		TerminalID:    w.TerminalID,
		Printed:       w.Printed,
	}
	if w.Payment != nil {
		sale.Payment = *w.Payment
	}
	if sale.Status == "" {
		sale.Status = domain.StatusPending
	}
	return sale
}
