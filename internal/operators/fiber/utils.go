package fiber

import (
	"context"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// utilsOperator delegates address verification to the node, which owns the
// address version and checksum rules of its fiber chain.
type utilsOperator struct {
	caller
}

func newUtilsOperator(node ports.NodeClient, coin domain.Coin) *utilsOperator {
	return &utilsOperator{caller{node: node, coin: coin}}
}

func (o *utilsOperator) VerifyAddress(
	ctx context.Context, address string,
) (bool, error) {
	var valid bool
	if err := o.callInto(ctx, &valid, "address.Verify", address); err != nil {
		return false, err
	}
	return valid, nil
}

func (o *utilsOperator) Dispose() {}
