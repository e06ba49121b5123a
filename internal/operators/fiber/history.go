package fiber

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// historyOperator answers one-shot history queries. Pure request/response,
// what the node reports is what the caller gets.
type historyOperator struct {
	caller
	notes ports.NoteStore
}

func newHistoryOperator(
	node ports.NodeClient, coin domain.Coin, notes ports.NoteStore,
) *historyOperator {
	return &historyOperator{
		caller: caller{node: node, coin: coin},
		notes:  notes,
	}
}

func (o *historyOperator) Dispose() {}

type historyTx struct {
	Status struct {
		Confirmed bool   `json:"confirmed"`
		Height    uint64 `json:"height"`
	} `json:"status"`
	Txn struct {
		Txid      string `json:"txid"`
		Timestamp uint64 `json:"timestamp"`
		Inputs    []struct {
			Uxid    string `json:"uxid"`
			Address string `json:"owner"`
			Coins   string `json:"coins"`
			Hours   uint64 `json:"hours"`
		} `json:"inputs"`
		Outputs []struct {
			Uxid    string `json:"uxid"`
			Address string `json:"dst"`
			Coins   string `json:"coins"`
			Hours   uint64 `json:"hours"`
		} `json:"outputs"`
	} `json:"txn"`
}

func (o *historyOperator) GetTransactionHistory(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.TransactionHistoryEntry, error) {
	var txs []historyTx
	if err := o.callInto(
		ctx, &txs, "transactions.Get", wallet.Addresses,
	); err != nil {
		return nil, err
	}

	owned := make(map[string]bool, len(wallet.Addresses))
	for _, a := range wallet.Addresses {
		owned[a] = true
	}

	entries := make([]domain.TransactionHistoryEntry, 0, len(txs))
	for _, tx := range txs {
		entry := domain.TransactionHistoryEntry{
			ID:            tx.Txn.Txid,
			Timestamp:     time.Unix(int64(tx.Txn.Timestamp), 0),
			Confirmed:     tx.Status.Confirmed,
			Confirmations: tx.Status.Height,
		}

		for _, in := range tx.Txn.Inputs {
			coins, _ := decimal.NewFromString(in.Coins)
			entry.Inputs = append(entry.Inputs, domain.TransactionInput{
				Hash:    in.Uxid,
				Address: in.Address,
				Coins:   coins,
				Hours:   hoursDecimal(in.Hours),
			})
			if owned[in.Address] {
				entry.Balance = entry.Balance.Sub(coins)
			}
		}
		for _, out := range tx.Txn.Outputs {
			coins, _ := decimal.NewFromString(out.Coins)
			entry.Outputs = append(entry.Outputs, domain.TransactionOutput{
				Hash:    out.Uxid,
				Address: out.Address,
				Coins:   coins,
				Hours:   hoursDecimal(out.Hours),
			})
			if owned[out.Address] {
				entry.Balance = entry.Balance.Add(coins)
				entry.Hours = entry.Hours.Add(hoursDecimal(out.Hours))
			}
		}

		if o.notes != nil {
			if note, err := o.notes.GetNote(entry.ID); err == nil {
				entry.Note = note
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type pendingTx struct {
	Transaction struct {
		Txid    string `json:"txid"`
		Outputs []struct {
			Coins string `json:"coins"`
			Hours uint64 `json:"hours"`
		} `json:"outputs"`
	} `json:"transaction"`
	Received string `json:"received"`
}

func (o *historyOperator) GetPendingTransactions(
	ctx context.Context,
) ([]domain.PendingTransaction, error) {
	var txs []pendingTx
	if err := o.callInto(ctx, &txs, "pendingTxs.Get"); err != nil {
		return nil, err
	}

	pending := make([]domain.PendingTransaction, 0, len(txs))
	for _, tx := range txs {
		p := domain.PendingTransaction{ID: tx.Transaction.Txid}
		for _, out := range tx.Transaction.Outputs {
			coins, _ := decimal.NewFromString(out.Coins)
			p.Coins = p.Coins.Add(coins)
			p.Hours = p.Hours.Add(hoursDecimal(out.Hours))
		}
		if ts, err := time.Parse(time.RFC3339, tx.Received); err == nil {
			p.Timestamp = ts
		}
		pending = append(pending, p)
	}
	return pending, nil
}

func (o *historyOperator) AddressesUsed(
	ctx context.Context, wallet *domain.Wallet,
) (map[string]bool, error) {
	used := make(map[string]bool, len(wallet.Addresses))
	for _, addr := range wallet.Addresses {
		var txs []historyTx
		if err := o.callInto(
			ctx, &txs, "transactions.Get", []string{addr},
		); err != nil {
			return nil, err
		}
		used[addr] = len(txs) > 0
	}
	return used, nil
}
