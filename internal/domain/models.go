package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Available   bool   `json:"available"`
}

type CartLine struct {
	Item         MenuItem `json:"item"`
	Qty          int      `json:"qty"`
	Instructions string   `json:"instructions,omitempty"`
}

const (
	PaymentCash = "CASH"
	PaymentCard = "CARD"
	PaymentUPI  = "UPI"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

type Payment struct {
	Method string `json:"method"`
	// Cash fields are only meaningful when Method == PaymentCash.
	CashReceivedCents *int64 `json:"cash_received_cents,omitempty"`
	CashChangeCents   *int64 `json:"cash_change_cents,omitempty"`
}

const (
	DiscountNone    = ""
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

type Discount struct {
	Type         string  `json:"type"`
	PercentValue float64 `json:"percent_value,omitempty"`
	AmountCents  int64   `json:"amount_cents,omitempty"`
}

const (
	StatusPending = "PENDING"
	StatusReady   = "READY"
	StatusServed  = "SERVED"
	StatusVoided  = "VOIDED"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusReady, StatusServed, StatusVoided:
		return true
	}
	return false
}

// StatusRank orders statuses by lifecycle progress. VOIDED ranks above
// everything so a void is never undone by a stale replica.
func StatusRank(status string) int {
	switch status {
	case StatusPending:
		return 0
	case StatusReady:
		return 1
	case StatusServed:
		return 2
	case StatusVoided:
		return 3
	}
	return -1
}

type SaleRecord struct {
	ID            string     `json:"id"`
	TokenNumber   int        `json:"token_number"`
	Timestamp     time.Time  `json:"timestamp"`
	Items         []CartLine `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	Payment       Payment    `json:"payment"`
	Status        string     `json:"status"`
	SettledBy     string     `json:"settled_by"`
	TerminalID    string     `json:"terminal_id"`
	Printed       bool       `json:"printed"`
}

type WorkerAccount struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BillSettings struct {
	StallName      string          `json:"stall_name"`
	FooterMessage  string          `json:"footer_message"`
	TaxRatePercent float64         `json:"tax_rate_percent"`
	WorkerAccounts []WorkerAccount `json:"worker_accounts"`
	PrinterEnabled bool            `json:"printer_enabled"`
	IsPrintHub     bool            `json:"is_print_hub"`
}

// Namespace derives the replication channel suffix shared by all
// terminals of the same stall.
func (s BillSettings) Namespace() string {
	name := strings.ToLower(strings.TrimSpace(s.StallName))
	if name == "" {
		return "stall"
	}
	return strings.ReplaceAll(name, " ", "-")
}

const (
	MsgSalesUpdate        = "SALES_UPDATE"
	MsgInventoryUpdate    = "INVENTORY_UPDATE"
	MsgSettingsUpdate     = "SETTINGS_UPDATE"
	MsgOpeningCashUpdate  = "OPENING_CASH_UPDATE"
	MsgRemotePrintRequest = "REMOTE_PRINT_REQUEST"
)

type Message struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

type OpeningCashPayload struct {
	OpeningCashCents int64 `json:"opening_cash_cents"`
}

const (
	RoleAdmin  = "ADMIN"
	RoleWorker = "WORKER"
)

type Actor struct {
	Name  string
	Email string
	Role  string
}

type LoginRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CartAddRequest struct {
	ItemID string `json:"item_id"`
}

type CartUpdateRequest struct {
	ItemID       string  `json:"item_id"`
	Delta        int     `json:"delta"`
	Instructions *string `json:"instructions,omitempty"`
}

type CartRemoveRequest struct {
	ItemID string `json:"item_id"`
}

type CartView struct {
	Lines  []CartLine `json:"lines"`
	Totals CartTotals `json:"totals"`
}

type CartTotals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type CheckoutRequest struct {
	PaymentMethod     string    `json:"payment_method"`
	CashReceivedCents *int64    `json:"cash_received_cents,omitempty"`
	Discount          *Discount `json:"discount,omitempty"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type VoidSaleRequest struct {
	AdminPIN string `json:"admin_pin"`
	Reason   string `json:"reason,omitempty"`
}

type MenuItemCreateRequest struct {
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

type MenuItemUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Available   *bool   `json:"available,omitempty"`
}

type MethodRevenue struct {
	Method     string `json:"method"`
	Orders     int    `json:"orders"`
	TotalCents int64  `json:"total_cents"`
}

type StaffRevenue struct {
	SettledBy  string `json:"settled_by"`
	Orders     int    `json:"orders"`
	TotalCents int64  `json:"total_cents"`
}

type ItemStat struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	Qty          int    `json:"qty"`
	RevenueCents int64  `json:"revenue_cents"`
}

type RevenuePoint struct {
	SaleID      string    `json:"sale_id"`
	TokenNumber int       `json:"token_number"`
	Timestamp   time.Time `json:"timestamp"`
	TotalCents  int64     `json:"total_cents"`
}

type SalesSummary struct {
	Orders             int             `json:"orders"`
	VoidedOrders       int             `json:"voided_orders"`
	GrossRevenueCents  int64           `json:"gross_revenue_cents"`
	TaxCollectedCents  int64           `json:"tax_collected_cents"`
	DiscountGivenCents int64           `json:"discount_given_cents"`
	AverageTicketCents int64           `json:"average_ticket_cents"`
	ByMethod           []MethodRevenue `json:"by_method"`
	ByStaff            []StaffRevenue  `json:"by_staff"`
	TopItems           []ItemStat      `json:"top_items"`
	Recent             []RevenuePoint  `json:"recent"`
}

type DrawerAudit struct {
	OpeningCents   int64 `json:"opening_cents"`
	CashInCents    int64 `json:"cash_in_cents"`
	ChangeOutCents int64 `json:"change_out_cents"`
	ExpectedCents  int64 `json:"expected_cents"`
	CashOrders     int   `json:"cash_orders"`
}
