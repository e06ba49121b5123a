package evm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// blockchainOperator polls the node sync state. It depends on the balance
// operator of its own coin generation, which it resolves asynchronously from
// the registry's bundle stream: when the chain finishes synchronizing, the
// balance operator is told to refresh.
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

// watchBundle resolves the balance operator dependency once the registry
// publishes the bundle this operator belongs to.
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

func (o *blockchainOperator) poll() {
	event, err := o.fetchProgress(o.ctx)

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

	if cur, ok := o.progress.Value(); !ok || cur != event {
		o.progress.Publish(event)
	}

	justSynced := event.Synchronized && !o.synced
	o.synced = event.Synchronized
	balance := o.balance
	o.scheduleLocked(o.periods.For(o.coin))
	o.mtx.Unlock()

	// A freshly synchronized chain means balances may have moved while we
	// were behind.
	if justSynced && balance != nil {
		balance.RefreshBalance()
	}
}

func (o *blockchainOperator) scheduleLocked(after time.Duration) {
	o.timer = time.AfterFunc(after, o.poll)
}

// syncingStatus mirrors the eth_syncing result object.
type syncingStatus struct {
	CurrentBlock string `json:"currentBlock"`
	HighestBlock string `json:"highestBlock"`
}

func (o *blockchainOperator) fetchProgress(
	ctx context.Context,
) (domain.ProgressEvent, error) {
	raw, err := o.call(ctx, "eth_syncing")
	if err != nil {
		return domain.ProgressEvent{}, err
	}

	// A false reply means the backend is not syncing, which this surface
	// reports as fully synchronized.
	var notSyncing bool
	if err := json.Unmarshal(raw, &notSyncing); err == nil {
		return domain.ProgressEvent{Synchronized: true}, nil
	}

	var status syncingStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.ProgressEvent{}, err
	}
	current, err := quantityUint64(status.CurrentBlock)
	if err != nil {
		return domain.ProgressEvent{}, err
	}
	highest, err := quantityUint64(status.HighestBlock)
	if err != nil {
		return domain.ProgressEvent{}, err
	}
	return domain.ProgressEvent{
		CurrentBlock: current,
		HighestBlock: highest,
		Synchronized: false,
	}, nil
}
