package paygate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paygate"
	"github.com/vitwit/paygate/clients"
	"github.com/vitwit/paygate/clients/clientstest"
	"github.com/vitwit/paygate/types"
)

const (
	tokenAddr    = "0x5425890298aed601595a70AB815c96711a31Bc65"
	merchantAddr = "0x1111111111111111111111111111111111111111"
	payerAddr    = "0x2222222222222222222222222222222222222222"
	gatewayAddr  = "0x3333333333333333333333333333333333333333"
)

func newGateway(t *testing.T) (*paygate.Gateway, *clientstest.Backend) {
	t.Helper()

	backend := clientstest.NewBackend()
	backend.AddToken(tokenAddr, "USDC", 6)

	client, err := clients.NewEVMClientWithBackend(types.ChainConfig{
		Network:         types.NetworkFuji,
		GatewayContract: gatewayAddr,
	}, backend)
	require.NoError(t, err)

	g, err := paygate.New(&types.GatewayConfig{
		Payments: types.PaymentConfig{EnforcePendingStatus: true},
	}, paygate.WithChainClient(client), paygate.WithTimeout(time.Second))
	require.NoError(t, err)
	return g, backend
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := paygate.New(nil)
	assert.ErrorIs(t, err, types.ConfigError)

	_, err = paygate.New(&types.GatewayConfig{Chain: types.ChainConfig{Network: types.NetworkFuji}})
	assert.ErrorIs(t, err, types.ConfigError)
}

func TestGatewayLifecycle(t *testing.T) {
	g, backend := newGateway(t)
	ctx := context.Background()

	created, err := g.CreatePayment(ctx, &types.CreatePaymentRequest{
		MerchantAddress: merchantAddr,
		TokenAddress:    tokenAddr,
		Amount:          "1000000",
	})
	require.NoError(t, err)

	d, err := g.Describe(ctx, "http://localhost:3000")
	require.NoError(t, err)
	require.Len(t, d.Actions[0].Params[0].Options, 1)
	assert.Equal(t, created.PaymentID, d.Actions[0].Params[0].Options[0].Value)

	res, err := g.ExecutePayment(ctx, &types.ExecutePaymentRequest{PaymentID: created.PaymentID, PayerAddress: payerAddr})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SerializedTransaction)
	assert.Equal(t, "Avalanche Fuji", res.ChainID)

	list, err := g.ListPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, types.NetworkFuji, g.Network())
	assert.Equal(t, types.IntentVariantPayments, g.IntentVariant())

	g.Close()
	assert.True(t, backend.Closed())
}

func TestGetVersion(t *testing.T) {
	v := paygate.GetVersion()
	assert.Equal(t, paygate.Version, v["version"])
	assert.Contains(t, v["supported_networks"], "fuji")
}
