package evm

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// spendingOperator builds, signs and broadcasts account-based transactions.
// Unsigned transactions are encoded as the JSON transaction object the node
// accepts for signing; signing produces the raw payload for broadcasting.
type spendingOperator struct {
	caller
	signer ports.HardwareSigner
	notes  ports.NoteStore
}

func newSpendingOperator(
	node ports.NodeClient,
	coin domain.Coin,
	signer ports.HardwareSigner,
	notes ports.NoteStore,
) *spendingOperator {
	return &spendingOperator{
		caller: caller{node: node, coin: coin},
		signer: signer,
		notes:  notes,
	}
}

func (o *spendingOperator) Dispose() {}

// txObject is the wire shape of an unsigned account transaction.
type txObject struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Nonce    string `json:"nonce"`
	GasPrice string `json:"gasPrice,omitempty"`
}

func (o *spendingOperator) CreateTransaction(
	ctx context.Context, params domain.CreateTransactionParams,
) (*domain.GeneratedTransaction, error) {
	if len(params.Destinations) == 0 {
		return nil, domain.ErrNoDestinations
	}
	if len(params.Destinations) > 1 {
		return nil, fmt.Errorf(
			"account-based transactions support a single destination, got %d",
			len(params.Destinations),
		)
	}

	// Source precedence: explicit addresses override the wallet's own.
	// Unspent outputs do not exist in the account model and are ignored.
	sources := params.Addresses
	if len(sources) == 0 && params.Wallet != nil {
		sources = params.Wallet.Addresses
	}
	if len(sources) == 0 {
		return nil, domain.ErrNoSources
	}
	from := sources[0]

	dest := params.Destinations[0]
	coins, err := decimal.NewFromString(dest.Coins)
	if err != nil {
		return nil, fmt.Errorf("parsing destination amount: %w", err)
	}

	nonce, err := o.callString(
		ctx, "eth_getTransactionCount", from, "pending",
	)
	if err != nil {
		return nil, err
	}

	obj := txObject{
		From:  from,
		To:    dest.Address,
		Value: "0x" + toSmallestUnit(coins, o.coin.Decimals).Text(16),
		Nonce: nonce,
	}
	if !params.Fee.IsZero() {
		obj.GasPrice = "0x" + toSmallestUnit(params.Fee, o.coin.Decimals).Text(16)
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	tx := &domain.GeneratedTransaction{
		Inputs: []domain.TransactionInput{{Address: from, Coins: coins}},
		Outputs: []domain.TransactionOutput{{
			Address: dest.Address, Coins: coins,
		}},
		Fee:         params.Fee,
		From:        []string{from},
		To:          []string{dest.Address},
		Encoded:     string(encoded),
		CoinsToSend: coins,
	}

	// Without a wallet there is no key material: the caller gets an
	// unsigned transaction regardless of the flag.
	if params.Wallet == nil || params.Unsigned {
		return tx, nil
	}

	signed, err := o.SignTransaction(
		ctx, params.Wallet, params.Password, tx, "",
	)
	if err != nil {
		return nil, err
	}
	tx.Encoded = signed
	tx.Signed = true
	return tx, nil
}

func (o *spendingOperator) SignTransaction(
	ctx context.Context,
	wallet *domain.Wallet,
	password string,
	tx *domain.GeneratedTransaction,
	rawOverride string,
) (string, error) {
	if wallet == nil {
		return "", domain.ErrWalletRequired
	}

	encoded := tx.Encoded
	if rawOverride != "" {
		// Offline flow: the caller pasted an externally built unsigned
		// transaction.
		encoded = rawOverride
	}

	if wallet.IsHardware {
		if o.signer == nil {
			return "", domain.ErrNoHardwareSigner
		}
		if len(wallet.Addresses) > 0 {
			if err := o.signer.CheckDeviceConnected(
				ctx, wallet.Addresses[0],
			); err != nil {
				return "", err
			}
		}
		return o.signer.SignTransaction(ctx, wallet, encoded)
	}

	var obj txObject
	if err := json.Unmarshal([]byte(encoded), &obj); err != nil {
		return "", fmt.Errorf("decoding unsigned transaction: %w", err)
	}
	return o.callString(ctx, "personal_signTransaction", obj, password)
}

func (o *spendingOperator) InjectTransaction(
	ctx context.Context, encoded, note string,
) (bool, error) {
	txid, err := o.callString(ctx, "eth_sendRawTransaction", encoded)
	if err != nil {
		return false, err
	}

	if note == "" {
		return false, nil
	}
	// Broadcast already succeeded: a failed note save is reported through
	// the flag, not as a broadcast failure.
	if o.notes == nil {
		return false, nil
	}
	if err := o.notes.SaveNote(txid, note); err != nil {
		log.WithError(err).Warnf("could not save note for tx %s", txid)
		return false, nil
	}
	return true, nil
}
