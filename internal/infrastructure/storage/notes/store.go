package notestore

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// TxNote is a user note attached to an injected transaction. Notes are kept
// locally, they never reach the node.
type TxNote struct {
	ID        string
	TxID      string `badgerhold:"key"`
	Note      string
	CreatedAt time.Time
}

type noteStore struct {
	store *badgerhold.Store
}

// NewNoteStore opens (or creates if not exists) the badger store on disk
// under the given data directory and returns it as a ports.NoteStore.
func NewNoteStore(dbDir string, logger badger.Logger) (ports.NoteStore, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening notes db: %w", err)
	}
	return &noteStore{store: store}, nil
}

func (s *noteStore) SaveNote(txID, note string) error {
	record := TxNote{
		ID:        uuid.New().String(),
		TxID:      txID,
		Note:      note,
		CreatedAt: time.Now(),
	}
	return s.store.Upsert(txID, record)
}

func (s *noteStore) GetNote(txID string) (string, error) {
	var record TxNote
	if err := s.store.Get(txID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return record.Note, nil
}

func (s *noteStore) Close() error {
	return s.store.Close()
}
