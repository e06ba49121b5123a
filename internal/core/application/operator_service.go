package application

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// BundleFactory builds the operator bundle of one coin. It receives the
// registry's bundle stream so that operators depending on siblings (the
// blockchain operator needs the balance operator) can subscribe for it
// instead of assuming immediate availability.
type BundleFactory func(
	coin domain.Coin, bundles *observable.Subject[*ports.OperatorBundle],
) (*ports.OperatorBundle, error)

// OperatorService is the process-wide registry holding the operator set of
// the active coin behind a replay-latest stream. On coin change it builds
// the new bundle, publishes it and only then disposes the previous one, so
// consumers resubscribing synchronously never observe a window with zero
// valid operators.
type OperatorService struct {
	mtx       sync.Mutex
	factories map[domain.CoinFamily]BundleFactory
	bundles   *observable.Subject[*ports.OperatorBundle]
	current   *ports.OperatorBundle
	disposed  bool
}

// NewOperatorService returns a registry with one bundle factory per coin
// family. No bundle exists until the first SetActiveCoin call.
func NewOperatorService(
	factories map[domain.CoinFamily]BundleFactory,
) *OperatorService {
	return &OperatorService{
		factories: factories,
		bundles:   observable.NewSubject[*ports.OperatorBundle](),
	}
}

// Bundles streams the current operator bundle. Consumers must tolerate a nil
// bundle, published while the registry shuts down.
func (s *OperatorService) Bundles() *observable.Subject[*ports.OperatorBundle] {
	return s.bundles
}

// Current returns the live bundle, nil if no coin is active.
func (s *OperatorService) Current() *ports.OperatorBundle {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.current
}

// SetActiveCoin swaps the operator set to the given coin. The swap is atomic
// from the consumer's point of view: no capability call ever spans two coin
// generations.
func (s *OperatorService) SetActiveCoin(coin domain.Coin) error {
	s.mtx.Lock()
	if s.disposed {
		s.mtx.Unlock()
		return domain.ErrOperatorDisposed
	}

	factory, ok := s.factories[coin.Family]
	if !ok {
		s.mtx.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownCoinFamily, coin.Family)
	}

	bundle, err := factory(coin, s.bundles)
	if err != nil {
		s.mtx.Unlock()
		return fmt.Errorf("building operators for %s: %w", coin.Name, err)
	}

	previous := s.current
	s.current = bundle
	s.bundles.Publish(bundle)
	s.mtx.Unlock()

	if previous != nil {
		log.Debugf("disposing operators of %s", previous.Coin.Name)
		previous.Dispose()
	}
	log.Infof("active coin is now %s", coin.Name)
	return nil
}

// Dispose tears down the live bundle and completes the bundle stream.
// Idempotent.
func (s *OperatorService) Dispose() {
	s.mtx.Lock()
	if s.disposed {
		s.mtx.Unlock()
		return
	}
	s.disposed = true
	previous := s.current
	s.current = nil
	s.bundles.Publish(nil)
	s.bundles.Close()
	s.mtx.Unlock()

	if previous != nil {
		previous.Dispose()
	}
}
