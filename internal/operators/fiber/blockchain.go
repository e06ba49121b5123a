package fiber

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// blockchainOperator polls the fiber node block head progress. Like its
// account-family sibling it resolves the balance operator from the bundle
// stream and forces a refresh once the chain catches up.
type blockchainOperator struct {
	caller
	periods ports.RefreshPeriods

	progress *observable.Subject[domain.ProgressEvent]

	ctx               context.Context
	cancelCtx         context.CancelFunc
	unsubscribeBundle func()

	mtx      sync.Mutex
	disposed bool
	timer    *time.Timer
	balance  ports.BalanceAndOutputsOperator
	synced   bool
}

func newBlockchainOperator(
	node ports.NodeClient,
	coin domain.Coin,
	periods ports.RefreshPeriods,
	bundles *observable.Subject[*ports.OperatorBundle],
) *blockchainOperator {
	o := &blockchainOperator{
		caller:   caller{node: node, coin: coin},
		periods:  periods,
		progress: observable.NewSubject[domain.ProgressEvent](),
	}
	o.ctx, o.cancelCtx = context.WithCancel(context.Background())

	ch, cancel := bundles.Subscribe()
	o.unsubscribeBundle = cancel
	go o.watchBundle(ch)

	go o.poll()
	return o
}

func (o *blockchainOperator) Progress() *observable.Subject[domain.ProgressEvent] {
	return o.progress
}

func (o *blockchainOperator) Dispose() {
	o.mtx.Lock()
	if o.disposed {
		o.mtx.Unlock()
		return
	}
	o.disposed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mtx.Unlock()

	o.cancelCtx()
	o.unsubscribeBundle()
	o.progress.Close()
}

func (o *blockchainOperator) watchBundle(ch <-chan *ports.OperatorBundle) {
	for bundle := range ch {
		if bundle == nil || bundle.Balance == nil {
			continue
		}
		if bundle.Coin.Name != o.coin.Name {
			continue
		}
		o.mtx.Lock()
		if o.disposed {
			o.mtx.Unlock()
			return
		}
		o.balance = bundle.Balance
		o.mtx.Unlock()
	}
}

type progressResult struct {
	Current uint64 `json:"current"`
	Highest uint64 `json:"highest"`
}

func (o *blockchainOperator) poll() {
	var res progressResult
	err := o.callInto(o.ctx, &res, "blockchain.Progress")

	o.mtx.Lock()
	if o.disposed {
		o.mtx.Unlock()
		return
	}
	if err != nil {
		log.WithError(err).Warnf(
			"could not get sync status for %s", o.coin.Name,
		)
		o.scheduleLocked(o.periods.Error)
		o.mtx.Unlock()
		return
	}

	event := domain.ProgressEvent{
		CurrentBlock: res.Current,
		HighestBlock: res.Highest,
		Synchronized: res.Highest > 0 && res.Current >= res.Highest,
	}
	if cur, ok := o.progress.Value(); !ok || cur != event {
		o.progress.Publish(event)
	}

	justSynced := event.Synchronized && !o.synced
	o.synced = event.Synchronized
	balance := o.balance
	o.scheduleLocked(o.periods.For(o.coin))
	o.mtx.Unlock()

	if justSynced && balance != nil {
		balance.RefreshBalance()
	}
}

func (o *blockchainOperator) scheduleLocked(after time.Duration) {
	o.timer = time.AfterFunc(after, o.poll)
}
