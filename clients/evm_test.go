package clients

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectors(t *testing.T) {
	assert.Equal(t, "0x82ad56cb", hexutil.Encode(Multicall3ABI.Methods["aggregate3"].ID))
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(ERC20ABI.Methods["transfer"].ID))
	assert.Equal(t, "0x095ea7b3", hexutil.Encode(ERC20ABI.Methods["approve"].ID))
}

func TestSerializeUnsignedMatchesSigningHash(t *testing.T) {
	to := common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")
	chainID := big.NewInt(43113)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    3,
		GasPrice: big.NewInt(25_000_000_000),
		Gas:      100_000,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     []byte{0xde, 0xad, 0xbe, 0xef},
	})

	serialized, err := SerializeUnsigned(tx, chainID)
	require.NoError(t, err)

	raw := hexutil.MustDecode(serialized)
	assert.Equal(t, ethtypes.NewEIP155Signer(chainID).Hash(tx), crypto.Keccak256Hash(raw))

	decoded, decodedChain, err := DecodeUnsignedTransaction(serialized)
	require.NoError(t, err)
	assert.Equal(t, chainID.String(), decodedChain.String())
	assert.Equal(t, tx.Nonce(), decoded.Nonce())
	assert.Equal(t, tx.Gas(), decoded.Gas())
	assert.Equal(t, tx.Data(), decoded.Data())
}

func TestSerializeUnsignedRejectsTypedTx(t *testing.T) {
	to := common.Address{}
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{To: &to})
	_, err := SerializeUnsigned(tx, big.NewInt(1))
	assert.Error(t, err)
}

func TestDecodeAggregate3Rejects(t *testing.T) {
	_, err := DecodeAggregate3([]byte{1, 2})
	assert.Error(t, err)

	_, err = DecodeAggregate3(append([]byte{}, ERC20ABI.Methods["transfer"].ID...))
	assert.Error(t, err)

	_, _, err = DecodeUnsignedTransaction("0xzz")
	assert.Error(t, err)
}

func TestEncodeAggregate3Roundtrip(t *testing.T) {
	calls := []multicallCall{
		{Target: common.HexToAddress("0x01"), CallData: []byte{1}},
		{Target: common.HexToAddress("0x02"), AllowFailure: true, CallData: []byte{}},
	}
	data, err := encodeAggregate3(calls)
	require.NoError(t, err)

	out, err := DecodeAggregate3(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "0x01", out[0].CallData)
	assert.True(t, out[1].AllowFailure)
	assert.Equal(t, "0x", out[1].CallData)
}
