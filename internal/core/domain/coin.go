package domain

// CoinFamily identifies the transaction/account model a coin belongs to.
// Every operator is implemented once per family and selected at coin
// activation time.
type CoinFamily string

const (
	// FiberFamily groups the UTXO-based fiber coins. Balances carry coins
	// and hours and transactions spend discrete unspent outputs.
	FiberFamily CoinFamily = "fiber"
	// EVMFamily groups the account-based coins with EVM-like JSON-RPC
	// backends. Balances are per-account and amounts travel as hex
	// quantities in the smallest unit.
	EVMFamily CoinFamily = "evm"
)

// Coin is the immutable descriptor of an activatable coin. It is constructed
// once, handed to every operator of the active set and replaced wholesale on
// coin switch.
type Coin struct {
	Family CoinFamily
	// Name is the human readable coin name, Ticker the short symbol.
	Name   string
	Ticker string
	// IsLocal reports whether NodeURL points at a node running on this
	// machine. Local nodes are polled more aggressively than remote or
	// public ones.
	IsLocal bool
	NodeURL string
	// ConfirmationsNeeded is the block depth after which a transaction is
	// considered confirmed for this coin.
	ConfirmationsNeeded uint64
	// Decimals is the exponent converting the smallest unit to display
	// units.
	Decimals int32
}
