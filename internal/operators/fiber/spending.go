package fiber

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// spendingOperator builds, signs and broadcasts fiber transactions. Input
// selection and hours distribution run on the node, which owns the UTXO
// index; the operator assembles the request and decodes the created
// transaction.
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

type createdTransaction struct {
	Txid      string `json:"txid"`
	InnerHash string `json:"inner_hash"`
	Fee       uint64 `json:"fee"`
	Encoded   string `json:"encoded_transaction"`
	Inputs    []struct {
		Uxid    string `json:"uxid"`
		Address string `json:"address"`
		Coins   string `json:"coins"`
		Hours   uint64 `json:"hours"`
	} `json:"inputs"`
	Outputs []struct {
		Uxid    string `json:"uxid"`
		Address string `json:"address"`
		Coins   string `json:"coins"`
		Hours   uint64 `json:"hours"`
	} `json:"outputs"`
}

func (o *spendingOperator) CreateTransaction(
	ctx context.Context, params domain.CreateTransactionParams,
) (*domain.GeneratedTransaction, error) {
	if len(params.Destinations) == 0 {
		return nil, domain.ErrNoDestinations
	}

	req := map[string]interface{}{
		"ignore_unconfirmed": false,
	}

	// Source precedence: explicit unspent outputs, then explicit
	// addresses, then all addresses of the wallet.
	switch {
	case len(params.Unspents) > 0:
		uxouts := make([]string, 0, len(params.Unspents))
		for _, u := range params.Unspents {
			uxouts = append(uxouts, u.Hash)
		}
		req["unspents"] = uxouts
	case len(params.Addresses) > 0:
		req["addresses"] = params.Addresses
	case params.Wallet != nil:
		req["addresses"] = params.Wallet.Addresses
	default:
		return nil, domain.ErrNoSources
	}

	hours, err := hoursSelection(params.Hours)
	if err != nil {
		return nil, err
	}
	req["hours_selection"] = hours

	to := make([]map[string]interface{}, 0, len(params.Destinations))
	for _, dest := range params.Destinations {
		out := map[string]interface{}{
			"address": dest.Address,
			"coins":   dest.Coins,
		}
		if dest.Hours != "" {
			out["hours"] = dest.Hours
		}
		to = append(to, out)
	}
	req["to"] = to

	if params.ChangeAddress != "" {
		req["change_address"] = params.ChangeAddress
	}

	var created createdTransaction
	if err := o.callInto(ctx, &created, "transaction.Create", req); err != nil {
		return nil, err
	}
	tx := o.toGenerated(created)

	// Without wallet key material the result stays unsigned no matter
	// what the caller asked for.
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

func hoursSelection(
	opts *domain.HoursDistributionOptions,
) (map[string]interface{}, error) {
	if opts == nil || opts.Type == domain.HoursManual {
		return map[string]interface{}{"type": "manual"}, nil
	}

	factor, err := decimal.NewFromString(opts.ShareFactor)
	if err != nil {
		return nil, fmt.Errorf("parsing share factor: %w", err)
	}
	if factor.IsNegative() || factor.GreaterThan(decimal.NewFromInt(1)) {
		return nil, domain.ErrInvalidShareFactor
	}

	mode := opts.ShareMode
	if mode == "" {
		mode = "share"
	}
	return map[string]interface{}{
		"type":         "auto",
		"mode":         mode,
		"share_factor": opts.ShareFactor,
	}, nil
}

func (o *spendingOperator) toGenerated(
	created createdTransaction,
) *domain.GeneratedTransaction {
	tx := &domain.GeneratedTransaction{
		Fee:       hoursDecimal(created.Fee),
		Encoded:   created.Encoded,
		InnerHash: created.InnerHash,
	}
	for _, in := range created.Inputs {
		coins, _ := decimal.NewFromString(in.Coins)
		tx.Inputs = append(tx.Inputs, domain.TransactionInput{
			Hash:    in.Uxid,
			Address: in.Address,
			Coins:   coins,
			Hours:   hoursDecimal(in.Hours),
		})
		tx.From = append(tx.From, in.Address)
	}
	for _, out := range created.Outputs {
		coins, _ := decimal.NewFromString(out.Coins)
		tx.Outputs = append(tx.Outputs, domain.TransactionOutput{
			Hash:    out.Uxid,
			Address: out.Address,
			Coins:   coins,
			Hours:   hoursDecimal(out.Hours),
		})
		tx.To = append(tx.To, out.Address)
		tx.CoinsToSend = tx.CoinsToSend.Add(coins)
		tx.HoursToSend = tx.HoursToSend.Add(hoursDecimal(out.Hours))
	}
	return tx
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

	var result struct {
		Encoded string `json:"encoded_transaction"`
	}
	if err := o.callInto(
		ctx, &result, "transaction.Sign", wallet.ID, password, encoded,
	); err != nil {
		return "", err
	}
	return result.Encoded, nil
}

func (o *spendingOperator) InjectTransaction(
	ctx context.Context, encoded, note string,
) (bool, error) {
	var txid string
	if err := o.callInto(
		ctx, &txid, "transaction.Inject", encoded,
	); err != nil {
		return false, err
	}

	if note == "" || o.notes == nil {
		return false, nil
	}
	if err := o.notes.SaveNote(txid, note); err != nil {
		log.WithError(err).Warnf("could not save note for tx %s", txid)
		return false, nil
	}
	return true, nil
}
