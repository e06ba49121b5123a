package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

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

func (c caller) callString(
	ctx context.Context, method string, params ...interface{},
) (string, error) {
	raw, err := c.call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decoding %s reply: %w", method, err)
	}
	return s, nil
}

// quantity decodes an EVM hex quantity ("0x1b4") into a big integer.
func quantity(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity %q", s)
	}
	return v, nil
}

func quantityUint64(s string) (uint64, error) {
	v, err := quantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("hex quantity %q overflows uint64", s)
	}
	return v.Uint64(), nil
}

func hexUint(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

// fromSmallestUnit shifts a smallest-unit amount into display units using
// the coin's decimal exponent.
func fromSmallestUnit(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, -decimals)
}

// toSmallestUnit converts a display-unit amount to the integer smallest
// unit.
func toSmallestUnit(v decimal.Decimal, decimals int32) *big.Int {
	return v.Shift(decimals).BigInt()
}
