package ports

import (
	"context"
	"time"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// Every operator owns background work and must be disposed when the active
// coin changes. Dispose cancels all polling, unsubscribes from upstream
// operators and completes every exposed subject, so late subscribers receive
// immediate completion instead of hanging. Dispose is idempotent and no
// state mutation nor emission may happen after it returns.

// BalanceAndOutputsOperator keeps the wallet list with balances continuously
// up to date, detects pending transactions and exposes the unspent outputs
// of UTXO-family wallets.
type BalanceAndOutputsOperator interface {
	// WalletsWithBalance streams the published wallet list. The slice and
	// its entries are mutated in place when only numeric fields change.
	WalletsWithBalance() *observable.Subject[[]*domain.WalletWithBalance]
	LastBalancesUpdateTime() *observable.Subject[time.Time]
	HasPendingTransactions() *observable.Subject[bool]
	// FirstFullUpdateMade turns true after the first network pass
	// completed successfully and never reverts.
	FirstFullUpdateMade() *observable.Subject[bool]
	HadErrorRefreshingBalance() *observable.Subject[bool]
	RefreshingBalance() *observable.Subject[bool]
	// RefreshBalance forces an immediate network pass, superseding any
	// scheduled or running cycle.
	RefreshBalance()
	// GetWalletUnspentOutputs lists the spendable outputs of a wallet.
	// Only meaningful for UTXO-family coins.
	GetWalletUnspentOutputs(
		ctx context.Context, wallet *domain.Wallet,
	) ([]domain.Output, error)
	Dispose()
}

// BlockchainOperator polls the node sync state.
type BlockchainOperator interface {
	Progress() *observable.Subject[domain.ProgressEvent]
	Dispose()
}

// SpendingOperator builds, signs and broadcasts transactions.
type SpendingOperator interface {
	CreateTransaction(
		ctx context.Context, params domain.CreateTransactionParams,
	) (*domain.GeneratedTransaction, error)
	// SignTransaction signs a previously built unsigned transaction. A
	// non-empty rawOverride replaces the transaction's own encoding,
	// supporting the paste-externally-built-unsigned-tx offline flow.
	SignTransaction(
		ctx context.Context,
		wallet *domain.Wallet,
		password string,
		tx *domain.GeneratedTransaction,
		rawOverride string,
	) (string, error)
	// InjectTransaction broadcasts the encoded transaction and, when note
	// is not empty, persists it locally. It reports whether the note was
	// saved: broadcast success and note persistence are independent
	// failure domains.
	InjectTransaction(
		ctx context.Context, encoded, note string,
	) (noteSaved bool, err error)
	Dispose()
}

// HistoryOperator answers one-shot transaction history queries.
type HistoryOperator interface {
	GetTransactionHistory(
		ctx context.Context, wallet *domain.Wallet,
	) ([]domain.TransactionHistoryEntry, error)
	GetPendingTransactions(
		ctx context.Context,
	) ([]domain.PendingTransaction, error)
	// AddressesUsed maps every wallet address to whether it appeared in
	// any transaction.
	AddressesUsed(
		ctx context.Context, wallet *domain.Wallet,
	) (map[string]bool, error)
	Dispose()
}

// WalletUtilsOperator groups small per-family helpers.
type WalletUtilsOperator interface {
	VerifyAddress(ctx context.Context, address string) (bool, error)
	Dispose()
}

// NodeOperator polls static node information.
type NodeOperator interface {
	NodeVersion() *observable.Subject[domain.NodeVersion]
	Dispose()
}

// RefreshPeriods groups the polling intervals shared by all operators.
// Local is used for nodes on this machine, Remote for public ones (coarser
// polling to reduce load on shared infrastructure) and Error after a failed
// cycle.
type RefreshPeriods struct {
	Local  time.Duration
	Remote time.Duration
	Error  time.Duration
}

// For picks the success period matching the coin's node locality.
func (p RefreshPeriods) For(coin domain.Coin) time.Duration {
	if coin.IsLocal {
		return p.Local
	}
	return p.Remote
}

// OperatorBundle groups the operator instances of one coin generation.
// Exactly one bundle is live at any time; consumers obtain it from the
// operator registry and must tolerate a nil bundle during coin switchover.
type OperatorBundle struct {
	Coin       domain.Coin
	Balance    BalanceAndOutputsOperator
	Blockchain BlockchainOperator
	Spending   SpendingOperator
	History    HistoryOperator
	Utils      WalletUtilsOperator
	Node       NodeOperator
}

// Dispose tears down every operator of the bundle. The balance operator goes
// last since others may depend on it.
func (b *OperatorBundle) Dispose() {
	if b == nil {
		return
	}
	for _, op := range []interface{ Dispose() }{
		b.Node, b.Utils, b.History, b.Spending, b.Blockchain, b.Balance,
	} {
		if op != nil {
			op.Dispose()
		}
	}
}
