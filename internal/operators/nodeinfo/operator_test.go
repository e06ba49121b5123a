package nodeinfo

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	v := ParseVersion("Geth/v1.10.26-stable")
	require.Equal(t, "Geth", v.Name)
	require.Equal(t, "v1.10.26-stable", v.Version)
	require.Empty(t, v.Raw)

	v = ParseVersion("skycoin:0.27.1")
	require.Empty(t, v.Name)
	require.Equal(t, "skycoin:0.27.1", v.Raw)

	v = ParseVersion("/leading-slash")
	require.Empty(t, v.Name)
	require.Equal(t, "/leading-slash", v.Raw)

	long := strings.Repeat("x", 100)
	v = ParseVersion(long)
	require.Len(t, v.Raw, 32)
}

type staticNode struct {
	reply string
}

func (n staticNode) Call(
	ctx context.Context, nodeURL, method string, params []interface{},
) (json.RawMessage, error) {
	return json.Marshal(n.reply)
}

func TestOperatorPublishesVersion(t *testing.T) {
	t.Parallel()

	op := NewOperator(
		staticNode{reply: "Geth/v1.10.26"},
		domain.Coin{Name: "ethereum"},
		"web3_clientVersion",
		ports.RefreshPeriods{
			Local: time.Hour, Remote: time.Hour, Error: time.Hour,
		},
	)
	defer op.Dispose()

	ch, cancel := op.NodeVersion().Subscribe()
	defer cancel()

	select {
	case v := <-ch:
		require.Equal(t, "Geth", v.Name)
		require.Equal(t, "v1.10.26", v.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("no version emission")
	}
}
