package noderpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
)

// RPCError is a wire-level error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	nextID     uint64
}

// Opts defines the parameters needed for creating a node client with
// NewClient.
type Opts struct {
	Timeout time.Duration
	// RequestsPerSecond and TokenBurst bound the call rate towards any
	// node; zero values disable the limiter.
	RequestsPerSecond float64
	TokenBurst        int
}

// NewClient returns a JSON-RPC 2.0 client implementing ports.NodeClient.
// Every call goes through a shared rate limiter and a circuit breaker so a
// flapping node does not get hammered by the refresh loops.
func NewClient(opts Opts) ports.NodeClient {
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = opts.TokenBurst
		if burst < 1 {
			burst = 1
		}
	}
	return &client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		breaker:    NewCircuitBreaker(),
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *client) Call(
	ctx context.Context, nodeURL, method string, params []interface{},
) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	// The breaker only counts transport failures; an rpc-level error is a
	// healthy node answering.
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, nodeURL, body)
	})
	if err != nil {
		log.WithError(err).Debugf("node call %s failed", method)
		return nil, err
	}
	parsed := res.(*response)
	if parsed.Error != nil {
		return nil, parsed.Error
	}
	return parsed.Result, nil
}

func (c *client) post(
	ctx context.Context, nodeURL string, body []byte,
) (*response, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, nodeURL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node returned status %d", resp.StatusCode)
	}

	parsed := &response{}
	if err := json.NewDecoder(resp.Body).Decode(parsed); err != nil {
		return nil, fmt.Errorf("decoding node response: %w", err)
	}
	return parsed, nil
}
