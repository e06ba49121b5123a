package domain

import "github.com/shopspring/decimal"

// TransactionDestination is one output requested by the user. Coins is a
// decimal string in display units; Hours is only set for fiber coins with
// manual hours distribution.
type TransactionDestination struct {
	Address string
	Coins   string
	Hours   string
}

type HoursDistributionType string

const (
	// HoursManual means the caller fixes the hours of every destination.
	HoursManual HoursDistributionType = "manual"
	// HoursAuto lets the node distribute hours using ShareMode and
	// ShareFactor.
	HoursAuto HoursDistributionType = "auto"
)

// HoursDistributionOptions selects how transaction hours are split among
// outputs, for coins that have them.
type HoursDistributionOptions struct {
	Type HoursDistributionType
	// ShareMode is the node-side distribution mode for HoursAuto,
	// currently always "share".
	ShareMode string
	// ShareFactor is the weight in [0,1] of the hours sent to the
	// destinations versus burnt/returned as change.
	ShareFactor string
}

// TransactionInput is a consumed source of a generated transaction.
type TransactionInput struct {
	Hash    string
	Address string
	Coins   decimal.Decimal
	Hours   decimal.Decimal
}

// TransactionOutput is a created output of a generated transaction.
type TransactionOutput struct {
	Hash    string
	Address string
	Coins   decimal.Decimal
	Hours   decimal.Decimal
}

// GeneratedTransaction is the result of a spending operator build request.
// It is immutable once returned, except for Note which the caller may attach
// before injecting.
type GeneratedTransaction struct {
	Inputs    []TransactionInput
	Outputs   []TransactionOutput
	Fee       decimal.Decimal
	From      []string
	To        []string
	Encoded   string
	InnerHash string

	CoinsToSend decimal.Decimal
	HoursToSend decimal.Decimal

	// Signed reports whether Encoded carries signatures.
	Signed bool
	Note   string
}

// CreateTransactionParams carries every argument of a transaction build
// request. Source selection precedence: Unspents overrides Addresses which
// overrides all addresses of Wallet. A nil Wallet yields an unsigned
// transaction regardless of Unsigned, since signing needs wallet key
// material.
type CreateTransactionParams struct {
	Wallet        *Wallet
	Addresses     []string
	Unspents      []Output
	Destinations  []TransactionDestination
	Hours         *HoursDistributionOptions
	ChangeAddress string
	Password      string
	Unsigned      bool
	// Fee is the miner fee in display units, used by account-based coins.
	Fee decimal.Decimal
}
