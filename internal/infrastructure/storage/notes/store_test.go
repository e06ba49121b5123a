package notestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndGetNote(t *testing.T) {
	store, err := NewNoteStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()

	txid := "2f842516bbc23fc62414b43e8f34320764d5c8acf1544dc2ca35dcf17e4b75b8"

	note, err := store.GetNote(txid)
	require.NoError(t, err)
	require.Empty(t, note)

	require.NoError(t, store.SaveNote(txid, "rent payment"))

	note, err = store.GetNote(txid)
	require.NoError(t, err)
	require.Equal(t, "rent payment", note)

	// Saving again overwrites.
	require.NoError(t, store.SaveNote(txid, "rent payment (march)"))
	note, err = store.GetNote(txid)
	require.NoError(t, err)
	require.Equal(t, "rent payment (march)", note)
}
