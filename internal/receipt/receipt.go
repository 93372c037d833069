package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"stallpos/terminal/internal/domain"
)

type Receipt struct {
	SaleID       string `json:"sale_id"`
	TokenNumber  int    `json:"token_number"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

// Build renders the paper slip for a sale: a kitchen order ticket
// first, then the customer copy, in one ESC/POS job separated by a
// partial cut.
func Build(sale domain.SaleRecord, settings domain.BillSettings) Receipt {
	kitchen := kitchenLines(sale)
	customer := customerLines(sale, settings)

	escpos := []byte{0x1b, 0x40}
	escpos = appendLines(escpos, kitchen)
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)
	escpos = appendLines(escpos, customer)
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	preview := strings.Join(kitchen, "\n") + "\n\n" + strings.Join(customer, "\n")

	return Receipt{
		SaleID:       sale.ID,
		TokenNumber:  sale.TokenNumber,
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		PreviewText:  preview,
		FileName:     fmt.Sprintf("receipt-%s.bin", sale.ID),
	}
}

func kitchenLines(sale domain.SaleRecord) []string {
	lines := []string{
		"*** KITCHEN ORDER ***",
		"========================",
		fmt.Sprintf("TOKEN: %d", sale.TokenNumber),
		"Time: " + sale.Timestamp.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, line := range sale.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", line.Item.Name, line.Qty))
		if line.Instructions != "" {
			lines = append(lines, "  >> "+strings.ToUpper(line.Instructions))
		}
	}
	lines = append(lines, "========================", "")
	return lines
}

func customerLines(sale domain.SaleRecord, settings domain.BillSettings) []string {
	lines := []string{
		settings.StallName,
		"========================",
		fmt.Sprintf("Token   : %d", sale.TokenNumber),
		"Date    : " + sale.Timestamp.Format("2006-01-02 15:04:05"),
		"Bill    : " + shortID(sale.ID),
		"------------------------",
	}
	for _, line := range sale.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", line.Item.Name, line.Qty))
		if line.Instructions != "" {
			lines = append(lines, "  ("+line.Instructions+")")
		}
		lines = append(lines, "  "+FormatCents(line.Item.PriceCents*int64(line.Qty)))
	}
	lines = append(lines,
		"------------------------",
		"Subtotal : "+FormatCents(sale.SubtotalCents),
	)
	if sale.DiscountCents > 0 {
		lines = append(lines, "Discount : -"+FormatCents(sale.DiscountCents))
	}
	lines = append(lines,
		"Tax      : "+FormatCents(sale.TaxCents),
		"Total    : "+FormatCents(sale.TotalCents),
	)
	if sale.Payment.Method == domain.PaymentCash && sale.Payment.CashReceivedCents != nil {
		lines = append(lines, "Cash     : "+FormatCents(*sale.Payment.CashReceivedCents))
		var change int64
		if sale.Payment.CashChangeCents != nil {
			change = *sale.Payment.CashChangeCents
		}
		lines = append(lines, "Change   : "+FormatCents(change))
	} else {
		lines = append(lines, "Paid via : "+sale.Payment.Method)
	}
	lines = append(lines, "========================")
	if settings.FooterMessage != "" {
		lines = append(lines, settings.FooterMessage)
	}
	lines = append(lines, "")
	return lines
}

func appendLines(buf []byte, lines []string) []byte {
	for _, line := range lines {
		buf = append(buf, []byte(line)...)
		buf = append(buf, '\n')
	}
	return buf
}

// FormatCents renders an int64 cent amount as a decimal money string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
