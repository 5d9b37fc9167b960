package clients_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paygate/clients"
	"github.com/vitwit/paygate/clients/clientstest"
	"github.com/vitwit/paygate/types"
)

const (
	tokenAddr    = "0x5425890298aed601595a70AB815c96711a31Bc65"
	merchantAddr = "0x1111111111111111111111111111111111111111"
	payerAddr    = "0x2222222222222222222222222222222222222222"
	gatewayAddr  = "0x3333333333333333333333333333333333333333"
	paymentID    = "0x8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"
)

func newClient(t *testing.T, mode types.ExecutionMode, fillGas bool) (*clients.EVMClient, *clientstest.Backend) {
	t.Helper()

	backend := clientstest.NewBackend()
	backend.AddToken(tokenAddr, "USDC", 6)

	c, err := clients.NewEVMClientWithBackend(types.ChainConfig{
		Network:         types.NetworkFuji,
		RPCUrl:          "http://localhost:8545",
		GatewayContract: gatewayAddr,
		Mode:            mode,
		FillGasParams:   fillGas,
	}, backend)
	require.NoError(t, err)
	return c, backend
}

func details() *types.PaymentDetails {
	return &types.PaymentDetails{
		PaymentID:    paymentID,
		Merchant:     merchantAddr,
		Token:        tokenAddr,
		Amount:       "1000000",
		Metadata:     `{"order":"42"}`,
		PayerAddress: payerAddr,
	}
}

func TestNewEVMClientWithBackendConfig(t *testing.T) {
	backend := clientstest.NewBackend()

	_, err := clients.NewEVMClientWithBackend(types.ChainConfig{Network: "unknown", GatewayContract: gatewayAddr}, backend)
	assert.ErrorIs(t, err, types.ConfigError)

	_, err = clients.NewEVMClientWithBackend(types.ChainConfig{Network: types.NetworkFuji, GatewayContract: "nope"}, backend)
	assert.ErrorIs(t, err, types.ConfigError)

	_, err = clients.NewEVMClientWithBackend(types.ChainConfig{Network: types.NetworkFuji, GatewayContract: gatewayAddr, Mode: "push"}, backend)
	assert.ErrorIs(t, err, types.ConfigError)

	c, err := clients.NewEVMClientWithBackend(types.ChainConfig{Network: "anvil", ChainID: 31337, GatewayContract: gatewayAddr}, backend)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), c.ChainID().Int64())
	assert.Equal(t, types.ExecutionModeTransfer, c.Mode())

	c.Close()
	assert.True(t, backend.Closed())
}

func TestGetTokenInfo(t *testing.T) {
	c, _ := newClient(t, types.ExecutionModeTransfer, false)

	info, err := c.GetTokenInfo(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "USDC", info.Symbol)
	assert.Equal(t, 6, info.Decimals)
	assert.Equal(t, common.HexToAddress(tokenAddr).Hex(), info.Address)
}

func TestGetTokenInfoInvalidToken(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeTransfer, false)

	// no code at the address
	_, err := c.GetTokenInfo(context.Background(), merchantAddr)
	assert.ErrorIs(t, err, types.InvalidTokenError)

	// reverting contract
	broken := "0x4444444444444444444444444444444444444444"
	backend.AddToken(broken, "X", 18).Broken = true
	_, err = c.GetTokenInfo(context.Background(), broken)
	assert.ErrorIs(t, err, types.InvalidTokenError)

	// node failure
	backend.Err = errors.New("dial tcp: connection refused")
	_, err = c.GetTokenInfo(context.Background(), tokenAddr)
	assert.ErrorIs(t, err, types.InvalidTokenError)

	_, err = c.GetTokenInfo(context.Background(), "0x12")
	assert.ErrorIs(t, err, types.InvalidAddressError)
}

func TestCheckUserBalance(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeTransfer, false)
	backend.SetBalance(tokenAddr, payerAddr, big.NewInt(2_500_000))

	res, err := c.CheckUserBalance(context.Background(), payerAddr, tokenAddr, "1000000")
	require.NoError(t, err)
	assert.True(t, res.HasBalance)
	assert.Equal(t, "2500000", res.Balance)
	assert.Equal(t, "1000000", res.Required)
	assert.Equal(t, "2.5", res.FormattedBalance)
	assert.Equal(t, "1", res.FormattedRequired)
	assert.Equal(t, "USDC", res.Symbol)

	res, err = c.CheckUserBalance(context.Background(), payerAddr, tokenAddr, "3000000")
	require.NoError(t, err)
	assert.False(t, res.HasBalance)

	res, err = c.CheckUserBalance(context.Background(), merchantAddr, tokenAddr, "1")
	require.NoError(t, err)
	assert.False(t, res.HasBalance)
	assert.Equal(t, "0", res.Balance)
}

func TestCheckUserBalanceErrors(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeTransfer, false)

	_, err := c.CheckUserBalance(context.Background(), payerAddr, tokenAddr, "0")
	assert.ErrorIs(t, err, types.InvalidAmountError)

	_, err = c.CheckUserBalance(context.Background(), "bad", tokenAddr, "1")
	assert.ErrorIs(t, err, types.InvalidAddressError)

	backend.Err = errors.New("timeout")
	_, err = c.CheckUserBalance(context.Background(), payerAddr, tokenAddr, "1")
	assert.ErrorIs(t, err, types.ChainCallError)
}

func TestBuildExecutionTransactionTransferMode(t *testing.T) {
	c, _ := newClient(t, types.ExecutionModeTransfer, false)

	tx, err := c.BuildExecutionTransaction(context.Background(), details())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMulticallAddress, tx.To)
	assert.Equal(t, "43113", tx.ChainID)
	require.Len(t, tx.Calls, 2)

	assert.Equal(t, common.HexToAddress(tokenAddr).Hex(), tx.Calls[0].Target)
	assert.Equal(t, common.HexToAddress(gatewayAddr).Hex(), tx.Calls[1].Target)
	for _, call := range tx.Calls {
		assert.False(t, call.AllowFailure)
	}

	transfer := hexutil.MustDecode(tx.Calls[0].CallData)
	assert.Equal(t, clients.ERC20ABI.Methods["transfer"].ID, transfer[:4])
	args, err := clients.ERC20ABI.Methods["transfer"].Inputs.Unpack(transfer[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(merchantAddr), args[0])
	assert.Equal(t, "1000000", args[1].(*big.Int).String())

	execute := hexutil.MustDecode(tx.Calls[1].CallData)
	assert.Equal(t, clients.PaymentGatewayABI.Methods["executePayment"].ID, execute[:4])
	args, err = clients.PaymentGatewayABI.Methods["executePayment"].Inputs.Unpack(execute[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(paymentID), common.Hash(args[0].([32]byte)))
	assert.Equal(t, common.HexToAddress(payerAddr), args[1])
}

func TestBuildExecutionTransactionSerialization(t *testing.T) {
	c, _ := newClient(t, types.ExecutionModeTransfer, false)

	built, err := c.BuildExecutionTransaction(context.Background(), details())
	require.NoError(t, err)

	tx, chainID, err := clients.DecodeUnsignedTransaction(built.Serialized)
	require.NoError(t, err)
	assert.Equal(t, int64(43113), chainID.Int64())
	assert.Equal(t, common.HexToAddress(types.DefaultMulticallAddress), *tx.To())
	assert.Zero(t, tx.Value().Sign())
	assert.Zero(t, tx.Nonce())
	assert.Equal(t, built.Data, hexutil.Encode(tx.Data()))

	calls, err := clients.DecodeAggregate3(tx.Data())
	require.NoError(t, err)
	assert.Equal(t, built.Calls, calls)
}

func TestBuildExecutionTransactionGatewayMode(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeGateway, false)

	// no allowance: createPayment, approve, executePayment
	tx, err := c.BuildExecutionTransaction(context.Background(), details())
	require.NoError(t, err)
	require.Len(t, tx.Calls, 3)

	create := hexutil.MustDecode(tx.Calls[0].CallData)
	assert.Equal(t, clients.PaymentGatewayABI.Methods["createPayment"].ID, create[:4])
	args, err := clients.PaymentGatewayABI.Methods["createPayment"].Inputs.Unpack(create[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(merchantAddr), args[1])
	assert.Equal(t, common.HexToAddress(tokenAddr), args[2])

	approve := hexutil.MustDecode(tx.Calls[1].CallData)
	assert.Equal(t, clients.ERC20ABI.Methods["approve"].ID, approve[:4])
	assert.Equal(t, common.HexToAddress(tokenAddr).Hex(), tx.Calls[1].Target)

	// enough allowance: approval is skipped
	backend.SetAllowance(tokenAddr, payerAddr, gatewayAddr, big.NewInt(1_000_000))
	tx, err = c.BuildExecutionTransaction(context.Background(), details())
	require.NoError(t, err)
	require.Len(t, tx.Calls, 2)
	assert.Equal(t, common.HexToAddress(gatewayAddr).Hex(), tx.Calls[0].Target)
	assert.Equal(t, common.HexToAddress(gatewayAddr).Hex(), tx.Calls[1].Target)
}

func TestBuildExecutionTransactionFillsGas(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeTransfer, true)
	backend.Nonce = 7

	built, err := c.BuildExecutionTransaction(context.Background(), details())
	require.NoError(t, err)

	tx, _, err := clients.DecodeUnsignedTransaction(built.Serialized)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(210_000), tx.Gas())
	assert.Equal(t, backend.GasPrice.String(), tx.GasPrice().String())
}

func TestBuildExecutionTransactionErrors(t *testing.T) {
	c, backend := newClient(t, types.ExecutionModeGateway, true)

	d := details()
	d.PayerAddress = ""
	_, err := c.BuildExecutionTransaction(context.Background(), d)
	assert.ErrorIs(t, err, types.InvalidAddressError)

	d = details()
	d.PaymentID = "0x1234"
	_, err = c.BuildExecutionTransaction(context.Background(), d)
	assert.ErrorIs(t, err, types.ChainCallError)

	backend.Err = errors.New("rpc down")
	_, err = c.BuildExecutionTransaction(context.Background(), details())
	assert.ErrorIs(t, err, types.ChainCallError)
}
