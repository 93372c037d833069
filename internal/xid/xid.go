package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSaleID returns a globally unique sale identifier. Token numbers
// recycle every 999 orders, so the record key has to come from
// somewhere else.
func NewSaleID() string {
	return uuid.NewString()
}

// New returns a prefixed identifier for menu items and other
// terminal-local records.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
