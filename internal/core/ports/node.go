package ports

import (
	"context"
	"encoding/json"
)

// NodeClient is the raw RPC transport consumed by every operator. All node
// communication is a named remote method with positional parameters; the
// result is backend specific and decoded per coin family by the caller.
type NodeClient interface {
	Call(
		ctx context.Context, nodeURL, method string, params []interface{},
	) (json.RawMessage, error)
}
