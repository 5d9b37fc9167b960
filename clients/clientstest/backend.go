// Package clientstest provides an in-process EVM backend that answers
// ERC-20 reads from scripted state.
package clientstest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paygate/clients"
)

// ErrReverted is returned for calls into a token marked as broken.
var ErrReverted = errors.New("execution reverted")

var _ clients.Backend = (*Backend)(nil)

// Token is the scripted state of one ERC-20 contract.
type Token struct {
	Symbol   string
	Decimals uint8

	// Reverts every call when set.
	Broken bool

	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
}

// Backend implements clients.Backend. Addresses without a token answer with
// empty data, like an account without code.
type Backend struct {
	mu     sync.Mutex
	tokens map[common.Address]*Token
	calls  []ethereum.CallMsg
	closed bool

	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64

	// Returned by every RPC when set.
	Err error
}

func NewBackend() *Backend {
	return &Backend{
		tokens:   make(map[common.Address]*Token),
		GasPrice: big.NewInt(25_000_000_000),
		Gas:      210_000,
	}
}

// AddToken registers an ERC-20 at address.
func (b *Backend) AddToken(address, symbol string, decimals uint8) *Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &Token{
		Symbol:     symbol,
		Decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[[2]common.Address]*big.Int),
	}
	b.tokens[common.HexToAddress(address)] = t
	return t
}

func (b *Backend) SetBalance(token, owner string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[common.HexToAddress(token)].balances[common.HexToAddress(owner)] = amount
}

func (b *Backend) SetAllowance(token, owner, spender string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := [2]common.Address{common.HexToAddress(owner), common.HexToAddress(spender)}
	b.tokens[common.HexToAddress(token)].allowances[key] = amount
}

// Calls returns the eth_call messages received so far.
func (b *Backend) Calls() []ethereum.CallMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ethereum.CallMsg(nil), b.calls...)
}

func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, msg)
	if b.Err != nil {
		return nil, b.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errors.New("missing call target")
	}

	token, ok := b.tokens[*msg.To]
	if !ok {
		return []byte{}, nil
	}
	if token.Broken || len(msg.Data) < 4 {
		return nil, ErrReverted
	}

	method, err := clients.ERC20ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, ErrReverted
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, ErrReverted
	}

	switch method.Name {
	case "symbol":
		return method.Outputs.Pack(token.Symbol)
	case "decimals":
		return method.Outputs.Pack(token.Decimals)
	case "balanceOf":
		return method.Outputs.Pack(orZero(token.balances[args[0].(common.Address)]))
	case "allowance":
		key := [2]common.Address{args[0].(common.Address), args[1].(common.Address)}
		return method.Outputs.Pack(orZero(token.allowances[key]))
	}
	return nil, ErrReverted
}

func (b *Backend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nonce, b.Err
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(ctx context.Context, _ ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Gas, b.Err
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
