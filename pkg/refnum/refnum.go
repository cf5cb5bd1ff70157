// Package refnum generates human-readable reference numbers for orders and
// returns: PREFIX-YYYYMMDD-XXXXXX with a random hex suffix. Suffix entropy is
// 24 bits, so collisions are possible; callers must back the column with a
// unique constraint and retry on violation.
package refnum

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Generate builds a reference number like CK-20260901-4F7A2C.
func Generate(prefix string, now time.Time) string {
	buf := make([]byte, 3)
	// rand.Read only fails when the platform entropy source is broken.
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("refnum: reading entropy: %v", err))
	}
	return fmt.Sprintf("%s-%s-%s",
		strings.ToUpper(strings.TrimSpace(prefix)),
		now.UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf)),
	)
}
