package drawer

import (
	"stallpos/terminal/internal/domain"
)

// Expected reconstructs what the cash drawer should hold: the opening
// float plus every cash payment taken, minus every change handed back.
// Voided sales never touch the drawer. A cash sale recorded without a
// received amount counts as exact tender.
func Expected(openingCents int64, sales []domain.SaleRecord) domain.DrawerAudit {
	audit := domain.DrawerAudit{OpeningCents: openingCents}

	for _, sale := range sales {
		if sale.Status == domain.StatusVoided || sale.Payment.Method != domain.PaymentCash {
			continue
		}
		received := sale.TotalCents
		if sale.Payment.CashReceivedCents != nil {
			received = *sale.Payment.CashReceivedCents
		}
		var change int64
		if sale.Payment.CashChangeCents != nil {
			change = *sale.Payment.CashChangeCents
		}
		audit.CashInCents += received
		audit.ChangeOutCents += change
		audit.CashOrders++
	}

	audit.ExpectedCents = audit.OpeningCents + audit.CashInCents - audit.ChangeOutCents
	return audit
}
