package replication

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/receipt"
)

// Printer is the hardware bridge on the print-hub terminal.
type Printer interface {
	Print(ctx context.Context, r receipt.Receipt) error
}

// LogPrinter writes receipt previews to the log. It is the default
// when no spool directory is configured.
type LogPrinter struct {
	Log *logrus.Entry
}

func (p LogPrinter) Print(_ context.Context, r receipt.Receipt) error {
	p.Log.WithFields(logrus.Fields{
		"sale_id": r.SaleID,
		"token":   r.TokenNumber,
	}).Info("printing receipt\n" + r.PreviewText)
	return nil
}

// SpoolPrinter drops raw ESC/POS jobs into a directory watched by the
// local printer bridge.
type SpoolPrinter struct {
	Dir string
}

func (p SpoolPrinter) Print(_ context.Context, r receipt.Receipt) error {
	raw, err := base64.StdEncoding.DecodeString(r.EscposBase64)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.Dir, r.FileName), raw, 0o644)
}
