package main

import "github.com/multiwallet-network/mwallet-daemon/internal/core/domain"

// Coin registry. Descriptors are immutable; switching coin replaces the
// whole operator set.
var supportedCoins = []domain.Coin{
	{
		Family:              domain.FiberFamily,
		Name:                "skyfiber",
		Ticker:              "SKY",
		IsLocal:             true,
		NodeURL:             "http://localhost:6420/api/v1/rpc",
		ConfirmationsNeeded: 1,
		Decimals:            6,
	},
	{
		Family:              domain.EVMFamily,
		Name:                "ethereum",
		Ticker:              "ETH",
		IsLocal:             false,
		NodeURL:             "https://mainnet.node.mwallet.network",
		ConfirmationsNeeded: 12,
		Decimals:            18,
	},
}

func coinByName(name string) (domain.Coin, bool) {
	for _, c := range supportedCoins {
		if c.Name == name || c.Ticker == name {
			return c, true
		}
	}
	return domain.Coin{}, false
}
