package evm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// historyOperator answers one-shot history queries against backends exposing
// the extended account-history methods. It performs no reconciliation, it
// returns what the backend reports.
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

type accountTx struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	Timestamp   uint64 `json:"timestamp"`
}

func (o *historyOperator) GetTransactionHistory(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.TransactionHistoryEntry, error) {
	height := uint64(0)
	if s, err := o.callString(ctx, "eth_blockNumber"); err == nil {
		height, _ = quantityUint64(s)
	}

	owned := make(map[string]bool, len(wallet.Addresses))
	for _, a := range wallet.Addresses {
		owned[a] = true
	}

	entries := []domain.TransactionHistoryEntry{}
	for _, addr := range wallet.Addresses {
		raw, err := o.call(ctx, "eth_getTransactionsByAddress", addr)
		if err != nil {
			return nil, err
		}
		var txs []accountTx
		if err := json.Unmarshal(raw, &txs); err != nil {
			return nil, err
		}

		for _, tx := range txs {
			entry, ok := o.toEntry(tx, owned, height)
			if !ok {
				continue
			}
			if o.notes != nil {
				if note, err := o.notes.GetNote(entry.ID); err == nil {
					entry.Note = note
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (o *historyOperator) toEntry(
	tx accountTx, owned map[string]bool, height uint64,
) (domain.TransactionHistoryEntry, bool) {
	value, err := quantity(tx.Value)
	if err != nil {
		return domain.TransactionHistoryEntry{}, false
	}
	amount := fromSmallestUnit(value, o.coin.Decimals)

	// Net effect on the wallet: negative for outgoing.
	balance := decimal.Zero
	if owned[tx.To] {
		balance = balance.Add(amount)
	}
	if owned[tx.From] {
		balance = balance.Sub(amount)
	}

	entry := domain.TransactionHistoryEntry{
		ID:        tx.Hash,
		Timestamp: time.Unix(int64(tx.Timestamp), 0),
		Balance:   balance,
	}
	if block, err := quantityUint64(tx.BlockNumber); err == nil && block > 0 {
		if height >= block {
			entry.Confirmations = height - block + 1
		}
		entry.Confirmed = entry.Confirmations >= o.coin.ConfirmationsNeeded
	}
	return entry, true
}

func (o *historyOperator) GetPendingTransactions(
	ctx context.Context,
) ([]domain.PendingTransaction, error) {
	raw, err := o.call(ctx, "eth_pendingTransactions")
	if err != nil {
		return nil, err
	}
	var txs []accountTx
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, err
	}

	pending := make([]domain.PendingTransaction, 0, len(txs))
	for _, tx := range txs {
		value, err := quantity(tx.Value)
		if err != nil {
			continue
		}
		pending = append(pending, domain.PendingTransaction{
			ID:        tx.Hash,
			Coins:     fromSmallestUnit(value, o.coin.Decimals),
			Timestamp: time.Unix(int64(tx.Timestamp), 0),
		})
	}
	return pending, nil
}

// AddressesUsed reports an address as used once it has sent at least one
// transaction.
func (o *historyOperator) AddressesUsed(
	ctx context.Context, wallet *domain.Wallet,
) (map[string]bool, error) {
	used := make(map[string]bool, len(wallet.Addresses))
	for _, addr := range wallet.Addresses {
		s, err := o.callString(
			ctx, "eth_getTransactionCount", addr, "latest",
		)
		if err != nil {
			return nil, err
		}
		count, err := quantityUint64(s)
		if err != nil {
			return nil, err
		}
		used[addr] = count > 0
	}
	return used, nil
}
