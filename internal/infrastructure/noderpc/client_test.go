package noderpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCallReturnsResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "2.0", req["jsonrpc"])
		require.Equal(t, "eth_blockNumber", req["method"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x64"}`))
	}))
	defer srv.Close()

	client := NewClient(Opts{Timeout: time.Second})
	res, err := client.Call(context.Background(), srv.URL, "eth_blockNumber", nil)
	require.NoError(t, err)

	var height string
	require.NoError(t, json.Unmarshal(res, &height))
	require.Equal(t, "0x64", height)
}

func TestCallMapsRPCError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	client := NewClient(Opts{Timeout: time.Second})
	_, err := client.Call(context.Background(), srv.URL, "nope", []interface{}{1})
	require.Error(t, err)

	rpcErr, ok := err.(*RPCError)
	require.True(t, ok)
	require.Equal(t, -32601, rpcErr.Code)
}

func TestCallFailsOnBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Opts{Timeout: time.Second})
	_, err := client.Call(context.Background(), srv.URL, "version", nil)
	require.Error(t, err)
}

func TestCallHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"result":true}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(Opts{Timeout: time.Second})
	_, err := client.Call(ctx, srv.URL, "version", nil)
	require.Error(t, err)
}
