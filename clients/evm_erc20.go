package clients

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20 reads token state through plain eth_call requests.
type ERC20 interface {
	Symbol(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

type erc20Caller struct {
	address common.Address
	backend Backend
}

func newERC20(token common.Address, backend Backend) *erc20Caller {
	return &erc20Caller{address: token, backend: backend}
}

func (e *erc20Caller) Symbol(ctx context.Context) (string, error) {
	out, err := callView(ctx, e.backend, e.address, ERC20ABI, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: symbol is %T", ReasonDecodeFailed, out[0])
	}
	return symbol, nil
}

func (e *erc20Caller) Decimals(ctx context.Context) (uint8, error) {
	out, err := callView(ctx, e.backend, e.address, ERC20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s: decimals is %T", ReasonDecodeFailed, out[0])
	}
	return decimals, nil
}

func (e *erc20Caller) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := callView(ctx, e.backend, e.address, ERC20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigResult(out)
}

func (e *erc20Caller) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := callView(ctx, e.backend, e.address, ERC20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return bigResult(out)
}

func bigResult(out []interface{}) (*big.Int, error) {
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: expected uint256, got %T", ReasonDecodeFailed, out[0])
	}
	return v, nil
}

// callView packs method, runs eth_call against the latest block and unpacks
// the result. An address without code answers with empty data, which is
// reported as errEmptyReturn.
func callView(ctx context.Context, backend Backend, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", ReasonEncodeFailed, method, err)
	}

	res, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", ReasonCallFailed, method, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s: %w", method, errEmptyReturn)
	}

	out, err := parsed.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", ReasonDecodeFailed, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", method, errEmptyReturn)
	}
	return out, nil
}
