package clients

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
	"golang.org/x/sync/errgroup"
)

var _ ChainClient = (*EVMClient)(nil)

// EVMClient builds payment transactions for a single EVM network
type EVMClient struct {
	network   types.Network
	chainID   *big.Int
	gateway   common.Address
	multicall common.Address
	mode      types.ExecutionMode
	fillGas   bool
	backend   Backend
}

// NewEVMClient dials cfg.RPCUrl and returns a client bound to that node.
func NewEVMClient(cfg types.ChainConfig) (*EVMClient, error) {
	if cfg.RPCUrl == "" {
		return nil, types.NewError(types.ErrConfigError, "rpc url is required", nil)
	}

	client, err := ethclient.Dial(cfg.RPCUrl)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to connect to EVM RPC", err)
	}

	c, err := NewEVMClientWithBackend(cfg, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// NewEVMClientWithBackend builds a client on top of an existing backend.
func NewEVMClientWithBackend(cfg types.ChainConfig, backend Backend) (*EVMClient, error) {
	chainID := cfg.Network.ChainID()
	if cfg.ChainID != 0 {
		chainID = big.NewInt(cfg.ChainID)
	}
	if chainID == nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("unsupported network %q", cfg.Network), nil)
	}

	if !common.IsHexAddress(cfg.GatewayContract) {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("invalid gateway contract %q", cfg.GatewayContract), nil)
	}

	multicall := cfg.MulticallAddress
	if multicall == "" {
		multicall = types.DefaultMulticallAddress
	}
	if !common.IsHexAddress(multicall) {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("invalid multicall address %q", multicall), nil)
	}

	mode := cfg.Mode
	switch mode {
	case "":
		mode = types.ExecutionModeTransfer
	case types.ExecutionModeTransfer, types.ExecutionModeGateway:
	default:
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("%s: %q", ReasonUnsupportedMode, mode), nil)
	}

	return &EVMClient{
		network:   cfg.Network,
		chainID:   chainID,
		gateway:   common.HexToAddress(cfg.GatewayContract),
		multicall: common.HexToAddress(multicall),
		mode:      mode,
		fillGas:   cfg.FillGasParams,
		backend:   backend,
	}, nil
}

// Close implements ChainClient.
func (e *EVMClient) Close() {
	e.backend.Close()
}

// GetNetwork implements ChainClient.
func (e *EVMClient) GetNetwork() types.Network {
	return e.network
}

// ChainID implements ChainClient.
func (e *EVMClient) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

// Mode returns the multicall recipe this client builds.
func (e *EVMClient) Mode() types.ExecutionMode {
	return e.mode
}

// ERC20 returns a reader for token.
func (e *EVMClient) ERC20(token string) ERC20 {
	return newERC20(common.HexToAddress(token), e.backend)
}

// GetTokenInfo reads symbol() and decimals() concurrently. Any failure means
// the address is not a usable token.
func (e *EVMClient) GetTokenInfo(ctx context.Context, token string) (*types.TokenInfo, error) {
	if !common.IsHexAddress(token) {
		return nil, invalidAddressError("token", token)
	}

	erc20 := e.ERC20(token)

	var (
		symbol   string
		decimals uint8
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		symbol, err = erc20.Symbol(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		decimals, err = erc20.Decimals(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, invalidTokenError(token, err)
	}

	return &types.TokenInfo{
		Address:  utils.NormalizeAddress(token),
		Symbol:   symbol,
		Decimals: int(decimals),
	}, nil
}

// CheckUserBalance compares the user's token balance with amount. An
// insufficient balance is reported in the result, not as an error.
func (e *EVMClient) CheckUserBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error) {
	if !common.IsHexAddress(user) {
		return nil, invalidAddressError("user", user)
	}
	if !common.IsHexAddress(token) {
		return nil, invalidAddressError("token", token)
	}

	required, err := utils.ValidateAmount(amount)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAmount, err.Error(), nil)
	}

	balance, err := e.ERC20(token).BalanceOf(ctx, common.HexToAddress(user))
	if err != nil {
		return nil, chainCallError(ReasonCallFailed, "balanceOf", err)
	}

	res := &types.BalanceCheck{
		HasBalance: balance.Cmp(required) >= 0,
		Balance:    balance.String(),
		Required:   required.String(),
	}

	// Formatting is best effort, a token without decimals() still has a balance.
	if info, err := e.GetTokenInfo(ctx, token); err == nil {
		res.Symbol = info.Symbol
		res.FormattedBalance = utils.FormatAmountFromBigInt(balance, info.Decimals)
		res.FormattedRequired = utils.FormatAmountFromBigInt(required, info.Decimals)
	}

	return res, nil
}

// BuildExecutionTransaction assembles the multicall that fulfils a payment
// and returns it as an unsigned legacy transaction addressed to Multicall3.
func (e *EVMClient) BuildExecutionTransaction(ctx context.Context, details *types.PaymentDetails) (*types.ExecutionTransaction, error) {
	if details == nil {
		return nil, chainCallError(ReasonEncodeFailed, "missing payment details", nil)
	}
	if !common.IsHexAddress(details.PayerAddress) {
		return nil, invalidAddressError("payer", details.PayerAddress)
	}
	if !common.IsHexAddress(details.Merchant) {
		return nil, invalidAddressError("merchant", details.Merchant)
	}
	if !common.IsHexAddress(details.Token) {
		return nil, invalidAddressError("token", details.Token)
	}

	amount, err := utils.ValidateAmount(details.Amount)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAmount, err.Error(), nil)
	}

	paymentID, err := utils.ToBytes32(details.PaymentID)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "paymentId", err)
	}

	payer := common.HexToAddress(details.PayerAddress)
	merchant := common.HexToAddress(details.Merchant)
	token := common.HexToAddress(details.Token)

	var calls []multicallCall
	switch e.mode {
	case types.ExecutionModeGateway:
		calls, err = e.gatewayCalls(ctx, paymentID, payer, merchant, token, amount, details.Metadata)
	default:
		calls, err = e.transferCalls(paymentID, payer, merchant, token, amount)
	}
	if err != nil {
		return nil, err
	}

	data, err := encodeAggregate3(calls)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "aggregate3", err)
	}

	legacy := &ethtypes.LegacyTx{
		To:       &e.multicall,
		Value:    big.NewInt(0),
		GasPrice: big.NewInt(0),
		Data:     data,
	}
	if e.fillGas {
		if err := e.fillGasParams(ctx, payer, legacy); err != nil {
			return nil, err
		}
	}

	serialized, err := SerializeUnsigned(ethtypes.NewTx(legacy), e.chainID)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "serialize", err)
	}

	views := make([]types.Call3, 0, len(calls))
	for _, c := range calls {
		views = append(views, c.view())
	}

	return &types.ExecutionTransaction{
		Serialized: serialized,
		To:         e.multicall.Hex(),
		Data:       hexutil.Encode(data),
		ChainID:    e.chainID.String(),
		Calls:      views,
	}, nil
}

// transferCalls: token.transfer(merchant, amount) then gateway.executePayment.
func (e *EVMClient) transferCalls(paymentID [32]byte, payer, merchant, token common.Address, amount *big.Int) ([]multicallCall, error) {
	transfer, err := ERC20ABI.Pack("transfer", merchant, amount)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "transfer", err)
	}

	execute, err := PaymentGatewayABI.Pack("executePayment", paymentID, payer)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "executePayment", err)
	}

	return []multicallCall{
		{Target: token, CallData: transfer},
		{Target: e.gateway, CallData: execute},
	}, nil
}

// gatewayCalls: gateway.createPayment, token.approve when the allowance is
// short, then gateway.executePayment pulling the funds.
func (e *EVMClient) gatewayCalls(ctx context.Context, paymentID [32]byte, payer, merchant, token common.Address, amount *big.Int, metadata string) ([]multicallCall, error) {
	create, err := PaymentGatewayABI.Pack("createPayment", paymentID, merchant, token, amount, [32]byte(utils.HashMetadata(metadata)))
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "createPayment", err)
	}
	calls := []multicallCall{{Target: e.gateway, CallData: create}}

	allowance, err := newERC20(token, e.backend).Allowance(ctx, payer, e.gateway)
	if err != nil {
		return nil, chainCallError(ReasonCallFailed, "allowance", err)
	}
	if allowance.Cmp(amount) < 0 {
		approve, err := ERC20ABI.Pack("approve", e.gateway, amount)
		if err != nil {
			return nil, chainCallError(ReasonEncodeFailed, "approve", err)
		}
		calls = append(calls, multicallCall{Target: token, CallData: approve})
	}

	execute, err := PaymentGatewayABI.Pack("executePayment", paymentID, payer)
	if err != nil {
		return nil, chainCallError(ReasonEncodeFailed, "executePayment", err)
	}
	return append(calls, multicallCall{Target: e.gateway, CallData: execute}), nil
}

func (e *EVMClient) fillGasParams(ctx context.Context, payer common.Address, tx *ethtypes.LegacyTx) error {
	nonce, err := e.backend.PendingNonceAt(ctx, payer)
	if err != nil {
		return chainCallError(ReasonGasFillFailed, "nonce", err)
	}

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return chainCallError(ReasonGasFillFailed, "gasPrice", err)
	}

	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: payer,
		To:   tx.To,
		Data: tx.Data,
	})
	if err != nil {
		return chainCallError(ReasonGasFillFailed, "estimateGas", err)
	}

	tx.Nonce = nonce
	tx.GasPrice = gasPrice
	tx.Gas = gas
	return nil
}
