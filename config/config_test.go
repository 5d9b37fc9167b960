package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paygate/types"
)

func setRequired(t *testing.T) {
	t.Setenv("RPC_URL", "https://api.avax-test.network/ext/bc/C/rpc")
	t.Setenv("GATEWAY_CONTRACT", "0x3333333333333333333333333333333333333333")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fuji", c.Network)
	assert.Equal(t, 30*time.Minute, c.PaymentTTL)
	assert.True(t, c.EnforcePendingStatus)
	assert.Equal(t, StoreMemory, c.StoreBackend)
	assert.Equal(t, "/api/gateway", c.Intent.Path)

	g := c.GatewayConfig()
	assert.Equal(t, types.NetworkFuji, g.Chain.Network)
	assert.Equal(t, types.ExecutionModeTransfer, g.Chain.Mode)
	assert.Equal(t, types.DefaultMulticallAddress, g.Chain.MulticallAddress)
	assert.Equal(t, 30*time.Second, g.DefaultTimeout)
	assert.Equal(t, types.IntentVariantPayments, g.Intent.Variant)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("GATEWAY_CONTRACT", "")

	_, err := Load()
	assert.ErrorIs(t, err, types.ConfigError)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"gateway":       {"GATEWAY_CONTRACT", "0x123"},
		"mode":          {"EXECUTION_MODE", "push"},
		"store backend": {"STORE_BACKEND", "redis"},
		"unknown chain": {"NETWORK", "anvil"},
		"intent path":   {"INTENT_PATH", "api/gateway"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.ErrorIs(t, err, types.ConfigError)
		})
	}
}

func TestCustomChainNeedsChainID(t *testing.T) {
	setRequired(t)
	t.Setenv("NETWORK", "anvil")
	t.Setenv("CHAIN_ID", "31337")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(31337), c.GatewayConfig().Chain.ChainID)
}

func TestDepositVariant(t *testing.T) {
	setRequired(t)
	t.Setenv("INTENT_VARIANT", "deposit")

	_, err := Load()
	assert.ErrorIs(t, err, types.ConfigError)

	t.Setenv("DEPOSIT_MERCHANT", "0x1111111111111111111111111111111111111111")
	t.Setenv("SUPPORTED_TOKENS", "USDC=0x5425890298aed601595a70ab815c96711a31bc65; DAI=0x6666666666666666666666666666666666666666")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TokenMap{
		"USDC": "0x5425890298aed601595a70AB815c96711a31Bc65",
		"DAI":  "0x6666666666666666666666666666666666666666",
	}, c.Intent.SupportedTokens)
}

func TestTokenMapDecode(t *testing.T) {
	var tm TokenMap
	require.NoError(t, tm.Decode(""))
	assert.Empty(t, tm)

	assert.Error(t, tm.Decode("USDC"))
	assert.Error(t, tm.Decode("USDC=0x12"))
	assert.Error(t, tm.Decode("=0x6666666666666666666666666666666666666666"))
}
