package fiber

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// balanceFetcher implements balancesync.Fetcher for fiber nodes, which
// answer the confirmed and predicted balance of a whole address set in one
// aggregate call.
type balanceFetcher struct {
	caller
}

func newBalanceFetcher(node ports.NodeClient, coin domain.Coin) *balanceFetcher {
	return &balanceFetcher{caller{node: node, coin: coin}}
}

type balanceResult struct {
	Confirmed amounts `json:"confirmed"`
	Predicted amounts `json:"predicted"`
	Addresses map[string]struct {
		Confirmed amounts `json:"confirmed"`
		Predicted amounts `json:"predicted"`
	} `json:"addresses"`
}

func (f *balanceFetcher) FetchWalletBalance(
	ctx context.Context, wallet *domain.Wallet,
) (domain.WalletBalance, error) {
	var res balanceResult
	if err := f.callInto(
		ctx, &res, "balance.Get", wallet.Addresses,
	); err != nil {
		return domain.WalletBalance{}, err
	}

	bal := domain.WalletBalance{
		Current:        f.fromDroplets(res.Confirmed.Coins),
		Predicted:      f.fromDroplets(res.Predicted.Coins),
		CurrentHours:   hoursDecimal(res.Confirmed.Hours),
		PredictedHours: hoursDecimal(res.Predicted.Hours),
		Addresses: make(
			map[string]domain.AddressBalance, len(res.Addresses),
		),
	}
	for addr, ab := range res.Addresses {
		bal.Addresses[addr] = domain.AddressBalance{
			Current:        f.fromDroplets(ab.Confirmed.Coins),
			Predicted:      f.fromDroplets(ab.Predicted.Coins),
			CurrentHours:   hoursDecimal(ab.Confirmed.Hours),
			PredictedHours: hoursDecimal(ab.Predicted.Hours),
		}
	}
	return bal, nil
}

type outputsResult struct {
	HeadOutputs []struct {
		Hash    string `json:"hash"`
		Address string `json:"address"`
		Coins   string `json:"coins"`
		Hours   uint64 `json:"hours"`
	} `json:"head_outputs"`
}

func (f *balanceFetcher) WalletOutputs(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.Output, error) {
	var res outputsResult
	if err := f.callInto(
		ctx, &res, "outputs.Get", wallet.Addresses,
	); err != nil {
		return nil, err
	}

	outputs := make([]domain.Output, 0, len(res.HeadOutputs))
	for _, o := range res.HeadOutputs {
		coins, err := decimal.NewFromString(o.Coins)
		if err != nil {
			continue
		}
		outputs = append(outputs, domain.Output{
			Hash:    o.Hash,
			Address: o.Address,
			Coins:   coins,
			Hours:   hoursDecimal(o.Hours),
		})
	}
	return outputs, nil
}
