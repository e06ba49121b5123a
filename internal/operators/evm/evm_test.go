package evm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

var testCoin = domain.Coin{
	Family:              domain.EVMFamily,
	Name:                "ethereum",
	Ticker:              "ETH",
	NodeURL:             "http://localhost:8545",
	ConfirmationsNeeded: 12,
	Decimals:            18,
}

var testPeriods = ports.RefreshPeriods{
	Local:  time.Hour,
	Remote: time.Hour,
	Error:  time.Hour,
}

// mockNode answers calls from a method table and records every request.
type mockNode struct {
	mtx     sync.Mutex
	replies map[string]interface{}
	errs    map[string]error
	calls   []mockCall
}

type mockCall struct {
	Method string
	Params []interface{}
}

func newMockNode() *mockNode {
	return &mockNode{
		replies: map[string]interface{}{},
		errs:    map[string]error{},
	}
}

func (m *mockNode) Call(
	ctx context.Context, nodeURL, method string, params []interface{},
) (json.RawMessage, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.calls = append(m.calls, mockCall{Method: method, Params: params})

	if err, ok := m.errs[method]; ok {
		return nil, err
	}
	reply, ok := m.replies[method]
	if !ok {
		return nil, errors.New("unexpected method " + method)
	}
	return json.Marshal(reply)
}

func (m *mockNode) set(method string, reply interface{}) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.replies[method] = reply
	delete(m.errs, method)
}

func (m *mockNode) callsFor(method string) []mockCall {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	out := []mockCall{}
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func TestFetchWalletBalance(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_blockNumber", "0x64")
	// 2 ETH pending, 1 ETH confirmed.
	node.set("eth_getBalance", "0x1bc16d674ec80000")

	fetcher := newBalanceFetcher(node, testCoin)
	wallet := &domain.Wallet{ID: "w1", Addresses: []string{"0xaa", "0xbb"}}

	bal, err := fetcher.FetchWalletBalance(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, bal.Addresses, 2)
	require.Equal(t, "2", bal.Addresses["0xaa"].Predicted.String())
	require.Equal(t, "4", bal.Predicted.String())
	require.Equal(t, "4", bal.Current.String())

	// Confirmed balances are taken at height-(confirmations-1): block
	// 100 with 12 confirmations queries height 89.
	var sawPending, sawConfirmed bool
	for _, c := range node.callsFor("eth_getBalance") {
		require.Len(t, c.Params, 2)
		switch c.Params[1] {
		case "pending":
			sawPending = true
		case "0x59":
			sawConfirmed = true
		}
	}
	require.True(t, sawPending)
	require.True(t, sawConfirmed)
}

func TestFetchWalletBalancePropagatesNodeErrors(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	fetcher := newBalanceFetcher(node, testCoin)

	_, err := fetcher.FetchWalletBalance(
		context.Background(), &domain.Wallet{Addresses: []string{"0xaa"}},
	)
	require.Error(t, err)
}

func TestOutputsNotSupported(t *testing.T) {
	t.Parallel()

	fetcher := newBalanceFetcher(newMockNode(), testCoin)
	_, err := fetcher.WalletOutputs(context.Background(), &domain.Wallet{})
	require.ErrorIs(t, err, domain.ErrOutputsNotSupported)
}

func recvProgress(
	t *testing.T, ch <-chan domain.ProgressEvent,
) domain.ProgressEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no progress emission")
		return domain.ProgressEvent{}
	}
}

func TestBlockchainOperatorNotSyncing(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_syncing", false)

	bundles := observable.NewSubject[*ports.OperatorBundle]()
	op := newBlockchainOperator(node, testCoin, testPeriods, bundles)
	defer op.Dispose()

	ch, cancel := op.Progress().Subscribe()
	defer cancel()

	event := recvProgress(t, ch)
	require.Equal(t, domain.ProgressEvent{
		CurrentBlock: 0, HighestBlock: 0, Synchronized: true,
	}, event)
}

func TestBlockchainOperatorSyncing(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_syncing", map[string]string{
		"currentBlock": "0x64",
		"highestBlock": "0xc8",
	})

	bundles := observable.NewSubject[*ports.OperatorBundle]()
	op := newBlockchainOperator(node, testCoin, testPeriods, bundles)
	defer op.Dispose()

	ch, cancel := op.Progress().Subscribe()
	defer cancel()

	event := recvProgress(t, ch)
	require.Equal(t, domain.ProgressEvent{
		CurrentBlock: 100, HighestBlock: 200, Synchronized: false,
	}, event)
}

func TestBlockchainOperatorDisposeCompletesProgress(t *testing.T) {
	t.Parallel()

	node := newMockNode()
	node.set("eth_syncing", false)

	bundles := observable.NewSubject[*ports.OperatorBundle]()
	op := newBlockchainOperator(node, testCoin, testPeriods, bundles)

	op.Dispose()
	op.Dispose()

	ch, _ := op.Progress().Subscribe()
	for range ch {
	}
}
