package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionHistoryEntry is one confirmed or pending transaction involving
// an address of the queried wallet, as reported by the backend.
type TransactionHistoryEntry struct {
	ID            string
	Timestamp     time.Time
	Confirmed     bool
	Confirmations uint64
	// Balance is the net effect on the wallet, negative for outgoing.
	Balance decimal.Decimal
	Hours   decimal.Decimal
	Inputs  []TransactionInput
	Outputs []TransactionOutput
	Note    string
}

// PendingTransaction is an unconfirmed transaction currently sitting in the
// backend's mempool.
type PendingTransaction struct {
	ID        string
	Coins     decimal.Decimal
	Hours     decimal.Decimal
	Timestamp time.Time
}

// NodeVersion is the parsed node-info reply.
type NodeVersion struct {
	Name    string
	Version string
	// Raw holds the original reply, bounded to a display length, when it
	// did not match the expected "name/version" shape.
	Raw string
}
