package domain

import "errors"

var (
	// ErrNoDestinations is thrown when a transaction build request carries no outputs
	ErrNoDestinations = errors.New("transaction must have at least one destination")
	// ErrNoSources is thrown when neither a wallet, addresses nor unspent outputs are given
	ErrNoSources = errors.New("no wallet, addresses or unspent outputs to spend from")
	// ErrWalletRequired is thrown when an operation needs wallet key material
	ErrWalletRequired = errors.New("operation requires a wallet")
	// ErrUnknownCoinFamily is thrown when no operator factory matches the coin family
	ErrUnknownCoinFamily = errors.New("unknown coin family")
	// ErrNoHardwareSigner is thrown when signing for a hardware wallet without a device signer configured
	ErrNoHardwareSigner = errors.New("no hardware signer available")
	// ErrOperatorDisposed is thrown when calling a one-shot operation on a disposed operator
	ErrOperatorDisposed = errors.New("operator has been disposed")
	// ErrInvalidShareFactor is thrown when the auto hours share factor is outside [0,1]
	ErrInvalidShareFactor = errors.New("hours share factor must be between 0 and 1")
	// ErrOutputsNotSupported is thrown when listing unspent outputs on an account-based coin
	ErrOutputsNotSupported = errors.New("unspent outputs are not available for account-based coins")
)
