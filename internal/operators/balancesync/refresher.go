package balancesync

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// Fetcher is the per-coin-family backend of the refresher. It knows how to
// query the node for one wallet's balances and, for UTXO coins, its unspent
// outputs. Implementations must be safe for concurrent use.
type Fetcher interface {
	FetchWalletBalance(
		ctx context.Context, wallet *domain.Wallet,
	) (domain.WalletBalance, error)
	WalletOutputs(
		ctx context.Context, wallet *domain.Wallet,
	) ([]domain.Output, error)
}

// Refresher runs the balance refresh state machine shared by every coin
// family and implements ports.BalanceAndOutputsOperator around a family
// Fetcher.
//
// A cycle is triggered by a wallet-set change (quick pass first, then a
// network pass), by RefreshBalance or by the reschedule timer (network pass
// only). Triggering a cycle supersedes any scheduled or running one: the
// generation counter is bumped and every continuation of an older cycle
// checks it before touching state, so two cycles never interleave writes to
// the published list (debounce, not queue).
type Refresher struct {
	coin    domain.Coin
	fetcher Fetcher
	periods ports.RefreshPeriods

	walletsWithBalance *observable.Subject[[]*domain.WalletWithBalance]
	lastUpdate         *observable.Subject[time.Time]
	hasPending         *observable.Subject[bool]
	firstFullUpdate    *observable.Subject[bool]
	hadError           *observable.Subject[bool]
	refreshing         *observable.Subject[bool]

	ctx                context.Context
	cancelCtx          context.CancelFunc
	unsubscribeWallets func()

	mtx        sync.Mutex
	disposed   bool
	generation uint64
	timer      *time.Timer
	wallets    []*domain.Wallet
	published  []*domain.WalletWithBalance
	// saved is the last-known-good balance per wallet id, read by quick
	// passes and preserved across failed cycles.
	saved     map[string]domain.WalletBalance
	firstDone bool
}

// NewRefresher builds the operator and starts following the wallet source.
// No network activity happens until the source publishes a wallet set or
// RefreshBalance is called.
func NewRefresher(
	coin domain.Coin,
	fetcher Fetcher,
	wallets ports.WalletSource,
	periods ports.RefreshPeriods,
) *Refresher {
	r := &Refresher{
		coin:               coin,
		fetcher:            fetcher,
		periods:            periods,
		walletsWithBalance: observable.NewSubject[[]*domain.WalletWithBalance](),
		lastUpdate:         observable.NewSubject[time.Time](),
		hasPending:         observable.NewSubject[bool](),
		firstFullUpdate:    observable.NewSubject[bool](),
		hadError:           observable.NewSubject[bool](),
		refreshing:         observable.NewSubject[bool](),
		saved:              map[string]domain.WalletBalance{},
	}
	r.ctx, r.cancelCtx = context.WithCancel(context.Background())

	ch, cancel := wallets.Wallets().Subscribe()
	r.unsubscribeWallets = cancel
	go r.watchWallets(ch)

	log.Debugf("balance operator for %s started", coin.Name)
	return r
}

func (r *Refresher) WalletsWithBalance() *observable.Subject[[]*domain.WalletWithBalance] {
	return r.walletsWithBalance
}

func (r *Refresher) LastBalancesUpdateTime() *observable.Subject[time.Time] {
	return r.lastUpdate
}

func (r *Refresher) HasPendingTransactions() *observable.Subject[bool] {
	return r.hasPending
}

func (r *Refresher) FirstFullUpdateMade() *observable.Subject[bool] {
	return r.firstFullUpdate
}

func (r *Refresher) HadErrorRefreshingBalance() *observable.Subject[bool] {
	return r.hadError
}

func (r *Refresher) RefreshingBalance() *observable.Subject[bool] {
	return r.refreshing
}

// RefreshBalance forces an immediate network pass, superseding any scheduled
// or in-flight cycle.
func (r *Refresher) RefreshBalance() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.disposed {
		return
	}
	r.startCycleLocked(false)
}

func (r *Refresher) GetWalletUnspentOutputs(
	ctx context.Context, wallet *domain.Wallet,
) ([]domain.Output, error) {
	r.mtx.Lock()
	disposed := r.disposed
	r.mtx.Unlock()
	if disposed {
		return nil, domain.ErrOperatorDisposed
	}
	return r.fetcher.WalletOutputs(ctx, wallet)
}

// Dispose cancels the running and scheduled work, detaches from the wallet
// source and completes every subject. Idempotent; continuations of cycles
// started before disposal are dropped silently.
func (r *Refresher) Dispose() {
	r.mtx.Lock()
	if r.disposed {
		r.mtx.Unlock()
		return
	}
	r.disposed = true
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mtx.Unlock()

	r.cancelCtx()
	r.unsubscribeWallets()

	r.walletsWithBalance.Close()
	r.lastUpdate.Close()
	r.hasPending.Close()
	r.firstFullUpdate.Close()
	r.hadError.Close()
	r.refreshing.Close()

	log.Debugf("balance operator for %s disposed", r.coin.Name)
}

func (r *Refresher) watchWallets(ch <-chan []*domain.Wallet) {
	for wallets := range ch {
		r.mtx.Lock()
		if r.disposed {
			r.mtx.Unlock()
			return
		}
		r.wallets = wallets
		r.startCycleLocked(true)
		r.mtx.Unlock()
	}
}

func (r *Refresher) startCycleLocked(quick bool) {
	r.generation++
	gen := r.generation
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	wallets := r.wallets
	publishDistinct(r.refreshing, true)
	go r.runCycle(gen, quick, wallets)
}

func (r *Refresher) runCycle(
	gen uint64, quick bool, wallets []*domain.Wallet,
) {
	if quick {
		// Cache-only pass so the UI reflects structural wallet changes
		// without waiting on the network.
		if !r.applyQuick(gen, r.buildFromCache(wallets)) {
			return
		}
	}

	fresh := make([]*domain.WalletWithBalance, 0, len(wallets))
	temporal := make(map[string]domain.WalletBalance, len(wallets))
	for _, w := range wallets {
		bal, err := r.fetcher.FetchWalletBalance(r.ctx, w)
		if err != nil {
			r.failCycle(gen, err)
			return
		}
		temporal[w.ID] = bal
		fresh = append(fresh, walletWithBalance(w, bal))
	}
	r.finishCycle(gen, fresh, temporal)
}

// applyQuick publishes a cache-built list. It reports whether the cycle is
// still current so the caller knows to proceed with the network pass.
func (r *Refresher) applyQuick(
	gen uint64, fresh []*domain.WalletWithBalance,
) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.disposed || gen != r.generation {
		return false
	}
	if r.reconcileLocked(fresh) {
		r.walletsWithBalance.Publish(r.published)
	}
	return true
}

func (r *Refresher) finishCycle(
	gen uint64,
	fresh []*domain.WalletWithBalance,
	temporal map[string]domain.WalletBalance,
) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.disposed || gen != r.generation {
		return
	}

	if r.reconcileLocked(fresh) {
		r.walletsWithBalance.Publish(r.published)
	}
	r.saved = temporal

	pending := false
	for _, b := range temporal {
		if b.HasPending() {
			pending = true
			break
		}
	}
	publishDistinct(r.hasPending, pending)
	publishDistinct(r.hadError, false)
	if !r.firstDone {
		r.firstDone = true
		r.firstFullUpdate.Publish(true)
	}
	r.lastUpdate.Publish(time.Now())
	publishDistinct(r.refreshing, false)

	r.scheduleLocked(r.periods.For(r.coin))
}

func (r *Refresher) failCycle(gen uint64, err error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	// A cycle superseded or disposed mid-flight drops its outcome without
	// logging, its failure is not news.
	if r.disposed || gen != r.generation {
		return
	}

	log.WithError(err).Warnf("could not refresh balances for %s", r.coin.Name)
	publishDistinct(r.hadError, true)
	publishDistinct(r.refreshing, false)
	r.scheduleLocked(r.periods.Error)
}

func (r *Refresher) scheduleLocked(after time.Duration) {
	gen := r.generation
	r.timer = time.AfterFunc(after, func() {
		r.mtx.Lock()
		defer r.mtx.Unlock()
		if r.disposed || gen != r.generation {
			return
		}
		r.startCycleLocked(false)
	})
}

// reconcileLocked merges a freshly computed list into the published one.
// A wallet count or id mismatch replaces the whole list; otherwise numeric
// fields are updated in place so downstream identity-based consumers are not
// invalidated by irrelevant changes. Returns whether anything changed.
func (r *Refresher) reconcileLocked(fresh []*domain.WalletWithBalance) bool {
	if r.published == nil || len(r.published) != len(fresh) {
		r.published = fresh
		return true
	}
	for i := range fresh {
		if r.published[i].ID != fresh[i].ID {
			r.published = fresh
			return true
		}
	}

	changed := false
	for i := range fresh {
		cur, upd := r.published[i], fresh[i]

		if len(cur.Addresses) != len(upd.Addresses) {
			cur.Addresses = upd.Addresses
			changed = true
		} else {
			for j := range upd.Addresses {
				if !sameAddressBalance(cur.Addresses[j], upd.Addresses[j]) {
					*cur.Addresses[j] = *upd.Addresses[j]
					changed = true
				}
			}
		}

		if !cur.Coins.Equal(upd.Coins) ||
			!cur.ConfirmedCoins.Equal(upd.ConfirmedCoins) ||
			!cur.Hours.Equal(upd.Hours) ||
			!cur.ConfirmedHours.Equal(upd.ConfirmedHours) {
			cur.Coins = upd.Coins
			cur.ConfirmedCoins = upd.ConfirmedCoins
			cur.Hours = upd.Hours
			cur.ConfirmedHours = upd.ConfirmedHours
			changed = true
		}
		if cur.HasPendingTransactions != upd.HasPendingTransactions {
			cur.HasPendingTransactions = upd.HasPendingTransactions
			changed = true
		}
		if cur.Label != upd.Label {
			cur.Label = upd.Label
			changed = true
		}
	}
	return changed
}

func (r *Refresher) buildFromCache(
	wallets []*domain.Wallet,
) []*domain.WalletWithBalance {
	r.mtx.Lock()
	saved := r.saved
	r.mtx.Unlock()

	list := make([]*domain.WalletWithBalance, 0, len(wallets))
	for _, w := range wallets {
		// Zero balances for wallets never seen by a network pass.
		list = append(list, walletWithBalance(w, saved[w.ID]))
	}
	return list
}

func walletWithBalance(
	w *domain.Wallet, bal domain.WalletBalance,
) *domain.WalletWithBalance {
	addrs := make([]*domain.AddressWithBalance, 0, len(w.Addresses))
	for _, a := range w.Addresses {
		ab := bal.Addresses[a]
		addrs = append(addrs, &domain.AddressWithBalance{
			Address:        a,
			Coins:          ab.Predicted,
			ConfirmedCoins: ab.Current,
			Hours:          ab.PredictedHours,
			ConfirmedHours: ab.CurrentHours,
		})
	}
	return &domain.WalletWithBalance{
		ID:                     w.ID,
		Label:                  w.Label,
		Encrypted:              w.Encrypted,
		Type:                   w.Type,
		IsHardware:             w.IsHardware,
		Coins:                  bal.Predicted,
		ConfirmedCoins:         bal.Current,
		Hours:                  bal.PredictedHours,
		ConfirmedHours:         bal.CurrentHours,
		HasPendingTransactions: bal.HasPending(),
		Addresses:              addrs,
	}
}

func sameAddressBalance(a, b *domain.AddressWithBalance) bool {
	return a.Address == b.Address &&
		a.Coins.Equal(b.Coins) &&
		a.ConfirmedCoins.Equal(b.ConfirmedCoins) &&
		a.Hours.Equal(b.Hours) &&
		a.ConfirmedHours.Equal(b.ConfirmedHours)
}

func publishDistinct(s *observable.Subject[bool], v bool) {
	if cur, ok := s.Value(); ok && cur == v {
		return
	}
	s.Publish(v)
}
