// Package model defines the core domain types for the forecast engine.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from any source.
// Amounts are signed with expenses positive. Transactions are immutable
// once recorded; the forecast engine only ever reads them.
type Transaction struct {
	Date        time.Time
	ID          string
	OwnerID     string
	Category    string
	Description string
	Hash        string
	Amount      float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		t.OwnerID,
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
