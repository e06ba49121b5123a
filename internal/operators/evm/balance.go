package evm

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// addressFetchLimit bounds how many per-address balance queries run against
// the node at once.
const addressFetchLimit = 4

// balanceFetcher implements balancesync.Fetcher for account-based backends.
//
// These backends cannot answer "balance as of N confirmations" in one
// aggregate call, so balances are fetched per address: the pending balance
// reflects unconfirmed state, and the balance at height-(confirmations-1)
// approximates the confirmed one.
type balanceFetcher struct {
	caller
}

func newBalanceFetcher(node ports.NodeClient, coin domain.Coin) *balanceFetcher {
	return &balanceFetcher{caller{node: node, coin: coin}}
}

func (f *balanceFetcher) FetchWalletBalance(
	ctx context.Context, wallet *domain.Wallet,
) (domain.WalletBalance, error) {
	height, err := f.blockNumber(ctx)
	if err != nil {
		return domain.WalletBalance{}, err
	}

	confirmedTag := "latest"
	if back := f.coin.ConfirmationsNeeded; back > 1 {
		confirmedHeight := uint64(0)
		if height >= back-1 {
			confirmedHeight = height - (back - 1)
		}
		confirmedTag = hexUint(confirmedHeight)
	}

	results := make([]domain.AddressBalance, len(wallet.Addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(addressFetchLimit)
	for i, addr := range wallet.Addresses {
		i, addr := i, addr
		g.Go(func() error {
			predicted, err := f.getBalance(gctx, addr, "pending")
			if err != nil {
				return err
			}
			confirmed, err := f.getBalance(gctx, addr, confirmedTag)
			if err != nil {
				return err
			}
			results[i] = domain.AddressBalance{
				Current:   confirmed,
				Predicted: predicted,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.WalletBalance{}, err
	}

	// Aggregation is keyed by address, independent of fetch order.
	bal := domain.WalletBalance{
		Addresses: make(map[string]domain.AddressBalance, len(results)),
	}
	for i, addr := range wallet.Addresses {
		bal.Addresses[addr] = results[i]
		bal.Current = bal.Current.Add(results[i].Current)
		bal.Predicted = bal.Predicted.Add(results[i].Predicted)
	}
	return bal, nil
}

// WalletOutputs is not applicable to account-based coins.
func (f *balanceFetcher) WalletOutputs(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.Output, error) {
	return nil, domain.ErrOutputsNotSupported
}

func (f *balanceFetcher) blockNumber(ctx context.Context) (uint64, error) {
	s, err := f.callString(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return quantityUint64(s)
}

func (f *balanceFetcher) getBalance(
	ctx context.Context, address, block string,
) (decimal.Decimal, error) {
	s, err := f.callString(ctx, "eth_getBalance", address, block)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := quantity(s)
	if err != nil {
		return decimal.Zero, err
	}
	return fromSmallestUnit(wei, f.coin.Decimals), nil
}
