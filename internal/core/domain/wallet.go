package domain

import "github.com/shopspring/decimal"

type WalletType string

const (
	WalletTypeDeterministic WalletType = "deterministic"
	WalletTypeBip44         WalletType = "bip44"
	WalletTypeXPub          WalletType = "xpub"
)

// Wallet is the read-only view of a persisted wallet. Ownership belongs to
// the wallet-persistence collaborator; operators only read it.
type Wallet struct {
	ID         string
	Label      string
	Addresses  []string
	Encrypted  bool
	Type       WalletType
	IsHardware bool
}

// AddressWithBalance is an address of a published wallet list. The numeric
// fields are mutated in place by the balance reconciliation step so that a
// balance-only change does not replace the list or the address entries.
type AddressWithBalance struct {
	Address string
	// Coins is the predicted balance (including pending effects),
	// ConfirmedCoins the balance at the required confirmation depth.
	Coins          decimal.Decimal
	ConfirmedCoins decimal.Decimal
	// Hours fields are only meaningful for the fiber family and stay zero
	// for account-based coins.
	Hours          decimal.Decimal
	ConfirmedHours decimal.Decimal
}

// WalletWithBalance is an entry of the continuously published wallet list.
// The aggregate fields always equal the sum over Addresses.
type WalletWithBalance struct {
	ID         string
	Label      string
	Encrypted  bool
	Type       WalletType
	IsHardware bool

	Coins          decimal.Decimal
	ConfirmedCoins decimal.Decimal
	Hours          decimal.Decimal
	ConfirmedHours decimal.Decimal
	// HasPendingTransactions is true while the confirmed and predicted
	// balances of the wallet disagree.
	HasPendingTransactions bool

	Addresses []*AddressWithBalance
}

// AddressBalance is the per-address result of one network refresh pass.
type AddressBalance struct {
	Current        decimal.Decimal
	Predicted      decimal.Decimal
	CurrentHours   decimal.Decimal
	PredictedHours decimal.Decimal
}

// WalletBalance aggregates the address balances of one wallet for one
// refresh pass. It is retained as last-known-good cache, keyed by wallet id,
// for quick-mode passes and failed cycles.
type WalletBalance struct {
	Current        decimal.Decimal
	Predicted      decimal.Decimal
	CurrentHours   decimal.Decimal
	PredictedHours decimal.Decimal
	Addresses      map[string]AddressBalance
}

// HasPending reports whether any pending transaction affects the wallet.
func (b WalletBalance) HasPending() bool {
	return !b.Current.Equal(b.Predicted)
}

// Output is an unspent output of a fiber-family wallet.
type Output struct {
	Hash    string
	Address string
	Coins   decimal.Decimal
	Hours   decimal.Decimal
}
