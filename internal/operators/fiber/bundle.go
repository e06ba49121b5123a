package fiber

import (
	"github.com/multiwallet-network/mwallet-daemon/internal/core/application"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/internal/operators/balancesync"
	"github.com/multiwallet-network/mwallet-daemon/internal/operators/nodeinfo"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// Opts defines the collaborators shared by every operator of the fiber
// family.
type Opts struct {
	Node    ports.NodeClient
	Wallets ports.WalletSource
	Signer  ports.HardwareSigner
	Notes   ports.NoteStore
	Periods ports.RefreshPeriods
}

// NewBundleFactory returns the fiber-family operator factory for the
// registry.
func NewBundleFactory(opts Opts) application.BundleFactory {
	return func(
		coin domain.Coin,
		bundles *observable.Subject[*ports.OperatorBundle],
	) (*ports.OperatorBundle, error) {
		balance := balancesync.NewRefresher(
			coin, newBalanceFetcher(opts.Node, coin), opts.Wallets,
			opts.Periods,
		)
		return &ports.OperatorBundle{
			Coin:    coin,
			Balance: balance,
			Blockchain: newBlockchainOperator(
				opts.Node, coin, opts.Periods, bundles,
			),
			Spending: newSpendingOperator(
				opts.Node, coin, opts.Signer, opts.Notes,
			),
			History: newHistoryOperator(opts.Node, coin, opts.Notes),
			Utils:   newUtilsOperator(opts.Node, coin),
			Node: nodeinfo.NewOperator(
				opts.Node, coin, "version.Get", opts.Periods,
			),
		}, nil
	}
}
