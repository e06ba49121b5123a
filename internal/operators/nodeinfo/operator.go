package nodeinfo

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// maxRawVersionLength bounds what gets displayed when the node-info reply
// does not match the expected "name/version" shape.
const maxRawVersionLength = 32

// Operator polls the node version string. Both coin families share it, only
// the RPC method name differs.
type Operator struct {
	node    ports.NodeClient
	coin    domain.Coin
	method  string
	periods ports.RefreshPeriods

	version *observable.Subject[domain.NodeVersion]

	ctx       context.Context
	cancelCtx context.CancelFunc

	mtx      sync.Mutex
	disposed bool
	timer    *time.Timer
}

func NewOperator(
	node ports.NodeClient,
	coin domain.Coin,
	method string,
	periods ports.RefreshPeriods,
) *Operator {
	o := &Operator{
		node:    node,
		coin:    coin,
		method:  method,
		periods: periods,
		version: observable.NewSubject[domain.NodeVersion](),
	}
	o.ctx, o.cancelCtx = context.WithCancel(context.Background())
	go o.poll()
	return o
}

func (o *Operator) NodeVersion() *observable.Subject[domain.NodeVersion] {
	return o.version
}

func (o *Operator) Dispose() {
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
	o.version.Close()
}

func (o *Operator) poll() {
	raw, err := o.node.Call(o.ctx, o.coin.NodeURL, o.method, nil)
	var reply string
	if err == nil {
		if uerr := json.Unmarshal(raw, &reply); uerr != nil {
			// Some backends answer with a bare object; show what we
			// got rather than failing.
			reply = string(raw)
		}
	}

	o.mtx.Lock()
	defer o.mtx.Unlock()
	if o.disposed {
		return
	}
	if err != nil {
		log.WithError(err).Debugf(
			"could not get node version for %s", o.coin.Name,
		)
		o.scheduleLocked(o.periods.Error)
		return
	}

	o.version.Publish(ParseVersion(reply))
	o.scheduleLocked(o.periods.For(o.coin))
}

func (o *Operator) scheduleLocked(after time.Duration) {
	o.timer = time.AfterFunc(after, o.poll)
}

// ParseVersion splits a "name/version" node-info reply. Anything else is
// kept raw, truncated to a bounded display length.
func ParseVersion(reply string) domain.NodeVersion {
	parts := strings.SplitN(reply, "/", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return domain.NodeVersion{Name: parts[0], Version: parts[1]}
	}
	raw := reply
	if len(raw) > maxRawVersionLength {
		raw = raw[:maxRawVersionLength]
	}
	return domain.NodeVersion{Raw: raw}
}
