package balancesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

var testPeriods = ports.RefreshPeriods{
	Local:  time.Hour,
	Remote: time.Hour,
	Error:  time.Hour,
}

var testCoin = domain.Coin{
	Family:              domain.EVMFamily,
	Name:                "testcoin",
	Ticker:              "TST",
	IsLocal:             true,
	NodeURL:             "http://localhost:8545",
	ConfirmationsNeeded: 1,
	Decimals:            18,
}

type mockWalletSource struct {
	subj *observable.Subject[[]*domain.Wallet]
}

func newMockWalletSource() *mockWalletSource {
	return &mockWalletSource{subj: observable.NewSubject[[]*domain.Wallet]()}
}

func (m *mockWalletSource) Wallets() *observable.Subject[[]*domain.Wallet] {
	return m.subj
}

type mockFetcher struct {
	mtx      sync.Mutex
	balances map[string]domain.WalletBalance
	err      error
	gate     chan struct{}
	fetches  int
}

func (f *mockFetcher) FetchWalletBalance(
	ctx context.Context, wallet *domain.Wallet,
) (domain.WalletBalance, error) {
	f.mtx.Lock()
	gate := f.gate
	f.fetches++
	f.mtx.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.WalletBalance{}, ctx.Err()
		}
	}

	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.err != nil {
		return domain.WalletBalance{}, f.err
	}
	return f.balances[wallet.ID], nil
}

func (f *mockFetcher) WalletOutputs(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.Output, error) {
	return nil, nil
}

func (f *mockFetcher) set(walletID string, bal domain.WalletBalance) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.balances == nil {
		f.balances = map[string]domain.WalletBalance{}
	}
	f.balances[walletID] = bal
	f.err = nil
}

func (f *mockFetcher) fail(err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.err = err
}

func balanceFor(addrBalances map[string][2]int64) domain.WalletBalance {
	bal := domain.WalletBalance{Addresses: map[string]domain.AddressBalance{}}
	for addr, v := range addrBalances {
		ab := domain.AddressBalance{
			Current:   decimal.NewFromInt(v[0]),
			Predicted: decimal.NewFromInt(v[1]),
		}
		bal.Addresses[addr] = ab
		bal.Current = bal.Current.Add(ab.Current)
		bal.Predicted = bal.Predicted.Add(ab.Predicted)
	}
	return bal
}

func recvList(
	t *testing.T, ch <-chan []*domain.WalletWithBalance,
) []*domain.WalletWithBalance {
	t.Helper()
	select {
	case list, ok := <-ch:
		require.True(t, ok)
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wallet list emission")
		return nil
	}
}

func TestNetworkPassPublishesBalances(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {5, 5}, "a2": {3, 4}}))

	r := NewRefresher(testCoin, fetcher, source, testPeriods)
	defer r.Dispose()

	listCh, cancel := r.WalletsWithBalance().Subscribe()
	defer cancel()
	pendingCh, cancelPending := r.HasPendingTransactions().Subscribe()
	defer cancelPending()

	source.subj.Publish([]*domain.Wallet{{
		ID: "w1", Label: "main", Addresses: []string{"a1", "a2"},
	}})

	// Quick pass first (zero balances), then the network pass.
	var list []*domain.WalletWithBalance
	for {
		list = recvList(t, listCh)
		if !list[0].Coins.IsZero() {
			break
		}
	}

	// One pending tx of 1 on a2: wallet coins show the predicted sum.
	require.Equal(t, "9", list[0].Coins.String())
	require.Equal(t, "8", list[0].ConfirmedCoins.String())
	require.True(t, list[0].HasPendingTransactions)
	require.Len(t, list[0].Addresses, 2)

	select {
	case pending := <-pendingCh:
		require.True(t, pending)
	case <-time.After(2 * time.Second):
		t.Fatal("no pending emission")
	}

	_, ok := r.FirstFullUpdateMade().Value()
	require.True(t, ok)
}

func TestReconciliationMinimality(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {5, 5}, "a2": {3, 3}}))

	r := NewRefresher(testCoin, fetcher, source, testPeriods)
	defer r.Dispose()

	listCh, cancel := r.WalletsWithBalance().Subscribe()
	defer cancel()

	source.subj.Publish([]*domain.Wallet{{
		ID: "w1", Addresses: []string{"a1", "a2"},
	}})

	var list []*domain.WalletWithBalance
	for {
		list = recvList(t, listCh)
		if !list[0].Coins.IsZero() {
			break
		}
	}
	wallet := list[0]
	addr2 := wallet.Addresses[1]

	// Only a2's balance changes: same list, same wallet, same address
	// entry, mutated in place, exactly one emission.
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {5, 5}, "a2": {7, 7}}))
	r.RefreshBalance()

	updated := recvList(t, listCh)
	require.True(t, &updated[0] == &list[0], "list must be the same slice")
	require.Same(t, wallet, updated[0])
	require.Same(t, addr2, updated[0].Addresses[1])
	require.Equal(t, "7", addr2.Coins.String())
	require.Equal(t, "12", wallet.Coins.String())

	// No further emission is buffered.
	select {
	case extra := <-listCh:
		t.Fatalf("unexpected extra emission: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	// An unchanged pass emits nothing at all.
	r.RefreshBalance()
	select {
	case <-listCh:
		t.Fatal("emission for a no-change refresh")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCoarseReplaceOnStructuralChange(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {1, 1}}))
	fetcher.set("w2", balanceFor(map[string][2]int64{"b1": {2, 2}}))

	r := NewRefresher(testCoin, fetcher, source, testPeriods)
	defer r.Dispose()

	listCh, cancel := r.WalletsWithBalance().Subscribe()
	defer cancel()

	source.subj.Publish([]*domain.Wallet{{ID: "w1", Addresses: []string{"a1"}}})
	var list []*domain.WalletWithBalance
	for {
		list = recvList(t, listCh)
		if len(list) == 1 && !list[0].Coins.IsZero() {
			break
		}
	}

	// Wallet count change replaces the whole list reference.
	source.subj.Publish([]*domain.Wallet{
		{ID: "w1", Addresses: []string{"a1"}},
		{ID: "w2", Addresses: []string{"b1"}},
	})
	updated := recvList(t, listCh)
	require.Len(t, updated, 2)
	require.False(t, &updated[0] == &list[0], "list must have been replaced")

	// Id change at the same position replaces it as well.
	for {
		if len(updated) == 2 && !updated[1].Coins.IsZero() {
			break
		}
		updated = recvList(t, listCh)
	}
	source.subj.Publish([]*domain.Wallet{
		{ID: "w2", Addresses: []string{"b1"}},
		{ID: "w1", Addresses: []string{"a1"}},
	})
	swapped := recvList(t, listCh)
	require.Equal(t, "w2", swapped[0].ID)
	require.False(t, &swapped[0] == &updated[0])
}

func TestAtMostOneActiveCycle(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {1, 1}}))
	gate := make(chan struct{})
	fetcher.gate = gate

	r := NewRefresher(testCoin, fetcher, source, testPeriods)
	defer r.Dispose()

	updateCh, cancel := r.LastBalancesUpdateTime().Subscribe()
	defer cancel()

	source.subj.Publish([]*domain.Wallet{{ID: "w1", Addresses: []string{"a1"}}})

	// Trigger a second cycle while the first is blocked in its network
	// fetch, then release both. Only the superseding cycle may complete.
	time.Sleep(50 * time.Millisecond)
	r.RefreshBalance()
	close(gate)

	select {
	case <-updateCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no cycle completed")
	}
	select {
	case <-updateCh:
		t.Fatal("superseded cycle also completed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestQuickModeCacheFallback(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	fetchErr := errors.New("node unreachable")
	fetcher.fail(fetchErr)

	r := NewRefresher(testCoin, fetcher, source, testPeriods)
	defer r.Dispose()

	listCh, cancel := r.WalletsWithBalance().Subscribe()
	defer cancel()
	errCh, cancelErr := r.HadErrorRefreshingBalance().Subscribe()
	defer cancelErr()

	// Before any successful network pass the quick list carries zeros and
	// the failed network pass raises the error flag.
	source.subj.Publish([]*domain.Wallet{{ID: "w1", Addresses: []string{"a1"}}})
	list := recvList(t, listCh)
	require.True(t, list[0].Coins.IsZero())

	select {
	case hadErr := <-errCh:
		require.True(t, hadErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error flag not raised")
	}

	// One successful pass populates the cache.
	fetcher.set("w1", balanceFor(map[string][2]int64{"a1": {4, 4}}))
	r.RefreshBalance()
	for {
		list = recvList(t, listCh)
		if !list[0].Coins.IsZero() {
			break
		}
	}

	// A structural change while the node is down again: the quick pass
	// serves w1 from cache and the new wallet with zeros.
	fetcher.fail(fetchErr)
	source.subj.Publish([]*domain.Wallet{
		{ID: "w1", Addresses: []string{"a1"}},
		{ID: "w2", Addresses: []string{"b1"}},
	})
	list = recvList(t, listCh)
	require.Len(t, list, 2)
	require.Equal(t, "4", list[0].Coins.String())
	require.True(t, list[1].Coins.IsZero())
}

func TestIdempotentDisposal(t *testing.T) {
	t.Parallel()

	source := newMockWalletSource()
	fetcher := &mockFetcher{}
	r := NewRefresher(testCoin, fetcher, source, testPeriods)

	r.Dispose()
	r.Dispose()

	// Late subscribers observe immediate completion.
	ch, _ := r.WalletsWithBalance().Subscribe()
	_, ok := <-ch
	require.False(t, ok)

	_, err := r.GetWalletUnspentOutputs(context.Background(), &domain.Wallet{})
	require.ErrorIs(t, err, domain.ErrOperatorDisposed)

	// Triggers after disposal are dropped.
	r.RefreshBalance()
	source.subj.Publish([]*domain.Wallet{{ID: "w1"}})
	time.Sleep(100 * time.Millisecond)
	_, has := r.LastBalancesUpdateTime().Value()
	require.False(t, has)
}
