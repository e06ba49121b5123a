package fiber

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// caller binds a node client to one coin's node URL.
type caller struct {
	node ports.NodeClient
	coin domain.Coin
}

func (c caller) call(
	ctx context.Context, method string, params ...interface{},
) (json.RawMessage, error) {
	return c.node.Call(ctx, c.coin.NodeURL, method, params)
}

func (c caller) callInto(
	ctx context.Context, out interface{}, method string, params ...interface{},
) error {
	raw, err := c.call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s reply: %w", method, err)
	}
	return nil
}

// amounts is the wire pair of coins and hours. Fiber nodes report coins in
// droplets, the smallest unit.
type amounts struct {
	Coins uint64 `json:"coins"`
	Hours uint64 `json:"hours"`
}

// fromDroplets shifts a droplet amount into display units.
func (c caller) fromDroplets(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(
		new(big.Int).SetUint64(v), -c.coin.Decimals,
	)
}

func hoursDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
