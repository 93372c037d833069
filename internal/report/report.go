package report

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"stallpos/terminal/internal/domain"
)

const defaultRecentPoints = 20

// Summarize crunches the sale history into the stall's end-of-day
// numbers. Voided sales are counted separately and excluded from every
// revenue figure.
func Summarize(sales []domain.SaleRecord) domain.SalesSummary {
	summary := domain.SalesSummary{}
	byMethod := map[string]*domain.MethodRevenue{}
	byStaff := map[string]*domain.StaffRevenue{}
	byItem := map[string]*domain.ItemStat{}

	for _, sale := range sales {
		if sale.Status == domain.StatusVoided {
			summary.VoidedOrders++
			continue
		}
		summary.Orders++
		summary.GrossRevenueCents += sale.TotalCents
		summary.TaxCollectedCents += sale.TaxCents
		summary.DiscountGivenCents += sale.DiscountCents

		m := byMethod[sale.Payment.Method]
		if m == nil {
			m = &domain.MethodRevenue{Method: sale.Payment.Method}
			byMethod[sale.Payment.Method] = m
		}
		m.Orders++
		m.TotalCents += sale.TotalCents

		staff := sale.SettledBy
		if staff == "" {
			staff = "unassigned"
		}
		st := byStaff[staff]
		if st == nil {
			st = &domain.StaffRevenue{SettledBy: staff}
			byStaff[staff] = st
		}
		st.Orders++
		st.TotalCents += sale.TotalCents

		for _, line := range sale.Items {
			it := byItem[line.Item.ID]
			if it == nil {
				it = &domain.ItemStat{ItemID: line.Item.ID, Name: line.Item.Name}
				byItem[line.Item.ID] = it
			}
			it.Qty += line.Qty
			it.RevenueCents += line.Item.PriceCents * int64(line.Qty)
		}

		summary.Recent = append(summary.Recent, domain.RevenuePoint{
			SaleID:      sale.ID,
			TokenNumber: sale.TokenNumber,
			Timestamp:   sale.Timestamp,
			TotalCents:  sale.TotalCents,
		})
	}

	if summary.Orders > 0 {
		summary.AverageTicketCents = decimal.NewFromInt(summary.GrossRevenueCents).
			Div(decimal.NewFromInt(int64(summary.Orders))).
			Round(0).
			IntPart()
	}

	for _, m := range byMethod {
		summary.ByMethod = append(summary.ByMethod, *m)
	}
	slices.SortFunc(summary.ByMethod, func(a, b domain.MethodRevenue) int {
		return strings.Compare(a.Method, b.Method)
	})

	for _, st := range byStaff {
		summary.ByStaff = append(summary.ByStaff, *st)
	}
	slices.SortFunc(summary.ByStaff, func(a, b domain.StaffRevenue) int {
		if a.TotalCents != b.TotalCents {
			if a.TotalCents > b.TotalCents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.SettledBy, b.SettledBy)
	})

	for _, it := range byItem {
		summary.TopItems = append(summary.TopItems, *it)
	}
	slices.SortFunc(summary.TopItems, func(a, b domain.ItemStat) int {
		if a.Qty != b.Qty {
			return b.Qty - a.Qty
		}
		return strings.Compare(a.ItemID, b.ItemID)
	})

	if len(summary.Recent) > defaultRecentPoints {
		summary.Recent = summary.Recent[len(summary.Recent)-defaultRecentPoints:]
	}

	return summary
}
