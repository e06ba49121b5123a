package evm

import (
	"context"
	"regexp"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// utilsOperator groups the account-family helpers. Address verification is a
// local shape check, no node round trip needed.
type utilsOperator struct{}

func (o *utilsOperator) VerifyAddress(
	ctx context.Context, address string,
) (bool, error) {
	return addressPattern.MatchString(address), nil
}

func (o *utilsOperator) Dispose() {}
