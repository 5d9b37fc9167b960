package clients

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paygate/types"
)

// ChainClient is the chain adapter used by the payment lifecycle.
type ChainClient interface {
	GetTokenInfo(ctx context.Context, token string) (*types.TokenInfo, error)
	CheckUserBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error)
	BuildExecutionTransaction(ctx context.Context, details *types.PaymentDetails) (*types.ExecutionTransaction, error)
	GetNetwork() types.Network
	ChainID() *big.Int
	Close()
}

// Backend is the subset of *ethclient.Client the adapter needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	Close()
}
