package ports

import (
	"context"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// WalletSource is the read-only view on the wallet-persistence collaborator:
// a replay-latest stream of the current wallet list. The write path (adding
// addresses, encrypting wallets) lives outside this core.
type WalletSource interface {
	Wallets() *observable.Subject[[]*domain.Wallet]
}

// HardwareSigner abstracts the hardware-wallet device used to sign
// transactions of hardware wallets. Both calls are opaque fallible remote
// calls.
type HardwareSigner interface {
	CheckDeviceConnected(ctx context.Context, address string) error
	SignTransaction(
		ctx context.Context, wallet *domain.Wallet, encodedTx string,
	) (string, error)
}

// NoteStore persists user notes attached to injected transactions, keyed by
// transaction id.
type NoteStore interface {
	SaveNote(txID, note string) error
	GetNote(txID string) (string, error)
	Close() error
}
