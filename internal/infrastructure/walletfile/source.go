package walletfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/pkg/observable"
)

// Source is a minimal read-only wallet source backed by a JSON file. The
// real write path (creating wallets, deriving addresses, encryption) belongs
// to a separate persistence collaborator; this source only loads and
// publishes.
type Source struct {
	subj *observable.Subject[[]*domain.Wallet]
}

type walletRecord struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Addresses  []string `json:"addresses"`
	Encrypted  bool     `json:"encrypted"`
	Type       string   `json:"type"`
	IsHardware bool     `json:"is_hardware"`
}

// NewSource loads the wallet list from path and publishes it. A missing file
// yields an empty list rather than an error, a fresh install has no wallets
// yet.
func NewSource(path string) (ports.WalletSource, error) {
	s := &Source{subj: observable.NewSubject[[]*domain.Wallet]()}

	wallets, err := load(path)
	if err != nil {
		return nil, err
	}
	s.subj.Publish(wallets)
	log.Debugf("loaded %d wallets from %s", len(wallets), path)
	return s, nil
}

func (s *Source) Wallets() *observable.Subject[[]*domain.Wallet] {
	return s.subj
}

func load(path string) ([]*domain.Wallet, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Wallet{}, nil
		}
		return nil, fmt.Errorf("reading wallets file: %w", err)
	}

	var records []walletRecord
	if err := json.Unmarshal(buf, &records); err != nil {
		return nil, fmt.Errorf("parsing wallets file: %w", err)
	}

	wallets := make([]*domain.Wallet, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		wallets = append(wallets, &domain.Wallet{
			ID:         r.ID,
			Label:      r.Label,
			Addresses:  r.Addresses,
			Encrypted:  r.Encrypted,
			Type:       domain.WalletType(r.Type),
			IsHardware: r.IsHardware,
		})
	}
	return wallets, nil
}
