package evm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
)

type mockNoteStore struct {
	notes map[string]string
	err   error
}

func (m *mockNoteStore) SaveNote(txID, note string) error {
	if m.err != nil {
		return m.err
	}
	if m.notes == nil {
		m.notes = map[string]string{}
	}
	m.notes[txID] = note
	return nil
}

func (m *mockNoteStore) GetNote(txID string) (string, error) {
	return m.notes[txID], nil
}

func (m *mockNoteStore) Close() error { return nil }

type mockSigner struct {
	connected bool
	signed    string
}

func (m *mockSigner) CheckDeviceConnected(
	ctx context.Context, firstAddress string,
) error {
	if !m.connected {
		return errors.New("device not connected")
	}
	return nil
}

func (m *mockSigner) SignTransaction(
	ctx context.Context, wallet *domain.Wallet, encoded string,
) (string, error) {
	return m.signed, nil
}

func TestCreateTransactionUnsigned(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_getTransactionCount", "0x1")

	op := newSpendingOperator(node, testCoin, nil, nil)

	tx, err := op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{
			Addresses: []string{"0xaa"},
			Destinations: []domain.TransactionDestination{
				{Address: "0xbb", Coins: "10"},
			},
			Unsigned: true,
		},
	)
	require.NoError(t, err)
	require.False(t, tx.Signed)
	require.Equal(t, []string{"0xaa"}, tx.From)
	require.Equal(t, []string{"0xbb"}, tx.To)
	require.Equal(t, "10", tx.CoinsToSend.String())

	var obj txObject
	require.NoError(t, json.Unmarshal([]byte(tx.Encoded), &obj))
	require.Equal(t, "0xaa", obj.From)
	require.Equal(t, "0xbb", obj.To)
	// 10 ETH in wei.
	require.Equal(t, "0x8ac7230489e80000", obj.Value)
	require.Equal(t, "0x1", obj.Nonce)
}

func TestCreateTransactionWithoutWalletStaysUnsigned(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_getTransactionCount", "0x0")

	op := newSpendingOperator(node, testCoin, nil, nil)

	// Signing was requested but no wallet provides key material.
	tx, err := op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{
			Addresses: []string{"0xaa"},
			Destinations: []domain.TransactionDestination{
				{Address: "0xbb", Coins: "1"},
			},
		},
	)
	require.NoError(t, err)
	require.False(t, tx.Signed)
}

func TestCreateTransactionValidation(t *testing.T) {
	t.Parallel()

	op := newSpendingOperator(newMockNode(), testCoin, nil, nil)

	_, err := op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{Addresses: []string{"0xaa"}},
	)
	require.ErrorIs(t, err, domain.ErrNoDestinations)

	_, err = op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{
			Destinations: []domain.TransactionDestination{
				{Address: "0xbb", Coins: "1"},
			},
		},
	)
	require.ErrorIs(t, err, domain.ErrNoSources)

	_, err = op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{
			Addresses: []string{"0xaa"},
			Destinations: []domain.TransactionDestination{
				{Address: "0xbb", Coins: "1"},
				{Address: "0xcc", Coins: "2"},
			},
		},
	)
	require.Error(t, err)
}

func TestCreateTransactionSignsThroughNode(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_getTransactionCount", "0x5")
	node.set("personal_signTransaction", "0xdeadbeef")

	op := newSpendingOperator(node, testCoin, nil, nil)

	tx, err := op.CreateTransaction(context.Background(),
		domain.CreateTransactionParams{
			Wallet: &domain.Wallet{
				ID: "w1", Addresses: []string{"0xaa"},
			},
			Destinations: []domain.TransactionDestination{
				{Address: "0xbb", Coins: "1"},
			},
			Password: "secret",
		},
	)
	require.NoError(t, err)
	require.True(t, tx.Signed)
	require.Equal(t, "0xdeadbeef", tx.Encoded)

	calls := node.callsFor("personal_signTransaction")
	require.Len(t, calls, 1)
	require.Equal(t, "secret", calls[0].Params[1])
}

func TestSignTransactionHardware(t *testing.T) {
	t.Parallel()

	signer := &mockSigner{signed: "0xhwsigned"}
	op := newSpendingOperator(newMockNode(), testCoin, signer, nil)
	wallet := &domain.Wallet{
		ID: "hw", Addresses: []string{"0xaa"}, IsHardware: true,
	}
	tx := &domain.GeneratedTransaction{Encoded: `{"from":"0xaa"}`}

	_, err := op.SignTransaction(context.Background(), wallet, "", tx, "")
	require.Error(t, err)

	signer.connected = true
	signed, err := op.SignTransaction(context.Background(), wallet, "", tx, "")
	require.NoError(t, err)
	require.Equal(t, "0xhwsigned", signed)
}

func TestSignTransactionNoSignerForHardwareWallet(t *testing.T) {
	t.Parallel()

	op := newSpendingOperator(newMockNode(), testCoin, nil, nil)
	wallet := &domain.Wallet{ID: "hw", IsHardware: true}

	_, err := op.SignTransaction(
		context.Background(), wallet, "", &domain.GeneratedTransaction{}, "",
	)
	require.ErrorIs(t, err, domain.ErrNoHardwareSigner)
}

func TestInjectTransactionNoteOutcomes(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_sendRawTransaction", "0xtxid")

	notes := &mockNoteStore{}
	op := newSpendingOperator(node, testCoin, nil, notes)

	saved, err := op.InjectTransaction(context.Background(), "0xraw", "lunch")
	require.NoError(t, err)
	require.True(t, saved)
	require.Equal(t, "lunch", notes.notes["0xtxid"])

	// A failed note save never fails the broadcast.
	notes.err = errors.New("disk full")
	saved, err = op.InjectTransaction(context.Background(), "0xraw", "dinner")
	require.NoError(t, err)
	require.False(t, saved)

	saved, err = op.InjectTransaction(context.Background(), "0xraw", "")
	require.NoError(t, err)
	require.False(t, saved)
}

func TestInjectTransactionBroadcastFailure(t *testing.T) {
	t.Parallel()

	op := newSpendingOperator(newMockNode(), testCoin, nil, &mockNoteStore{})

	_, err := op.InjectTransaction(context.Background(), "0xraw", "note")
	require.Error(t, err)
}
