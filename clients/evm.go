package clients

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vitwit/paygate/types"
)

const erc20JSON = `[
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const paymentGatewayJSON = `[
  {"type":"function","name":"createPayment","stateMutability":"nonpayable","inputs":[
    {"name":"paymentId","type":"bytes32"},{"name":"merchant","type":"address"},{"name":"token","type":"address"},
    {"name":"amount","type":"uint256"},{"name":"metadata","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"executePayment","stateMutability":"nonpayable","inputs":[
    {"name":"paymentId","type":"bytes32"},{"name":"payer","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getPayment","stateMutability":"view","inputs":[{"name":"paymentId","type":"bytes32"}],"outputs":[
    {"name":"merchant","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},
    {"name":"executed","type":"bool"},{"name":"metadata","type":"bytes32"}]},
  {"type":"function","name":"canExecutePayment","stateMutability":"view","inputs":[
    {"name":"paymentId","type":"bytes32"},{"name":"payer","type":"address"}],"outputs":[
    {"name":"canExecute","type":"bool"},{"name":"reason","type":"string"}]}
]`

const multicall3JSON = `[
  {"type":"function","name":"aggregate3","stateMutability":"payable",
   "inputs":[{"name":"calls","type":"tuple[]","components":[
     {"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}]}],
   "outputs":[{"name":"returnData","type":"tuple[]","components":[
     {"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}]}]}
]`

var (
	ERC20ABI          = mustParseABI(erc20JSON)
	PaymentGatewayABI = mustParseABI(paymentGatewayJSON)
	Multicall3ABI     = mustParseABI(multicall3JSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid abi: %v", err))
	}
	return parsed
}

// multicallCall is the Go shape of the Multicall3 Call3 tuple, field names
// follow the abi component names.
type multicallCall struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

func (c multicallCall) view() types.Call3 {
	return types.Call3{
		Target:       c.Target.Hex(),
		AllowFailure: c.AllowFailure,
		CallData:     hexutil.Encode(c.CallData),
	}
}

// encodeAggregate3 packs aggregate3(calls).
func encodeAggregate3(calls []multicallCall) ([]byte, error) {
	return Multicall3ABI.Pack("aggregate3", calls)
}

// DecodeAggregate3 reverses encodeAggregate3 on transaction input data.
func DecodeAggregate3(data []byte) ([]types.Call3, error) {
	method := Multicall3ABI.Methods["aggregate3"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return nil, fmt.Errorf("not an aggregate3 call")
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate3: %w", err)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("unexpected aggregate3 arguments: %d", len(args))
	}

	calls := *abi.ConvertType(args[0], new([]multicallCall)).(*[]multicallCall)
	out := make([]types.Call3, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.view())
	}
	return out, nil
}

// SerializeUnsigned encodes tx as the unsigned EIP-155 legacy payload
// rlp([nonce, gasPrice, gas, to, value, data, chainId, 0, 0]).
// Its keccak256 is the hash a wallet signs.
func SerializeUnsigned(tx *ethtypes.Transaction, chainID *big.Int) (string, error) {
	if tx.Type() != ethtypes.LegacyTxType {
		return "", fmt.Errorf("unsupported transaction type %d", tx.Type())
	}

	raw, err := rlp.EncodeToBytes([]interface{}{
		tx.Nonce(),
		tx.GasPrice(),
		tx.Gas(),
		tx.To(),
		tx.Value(),
		tx.Data(),
		chainID,
		uint(0),
		uint(0),
	})
	if err != nil {
		return "", err
	}
	return hexutil.Encode(raw), nil
}

type unsignedLegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
	R, S     uint
}

// DecodeUnsignedTransaction parses the output of SerializeUnsigned.
func DecodeUnsignedTransaction(serialized string) (*ethtypes.Transaction, *big.Int, error) {
	raw, err := hexutil.Decode(serialized)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid transaction hex: %w", err)
	}

	var dec unsignedLegacyTx
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, nil, fmt.Errorf("invalid unsigned transaction: %w", err)
	}

	to := dec.To
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    dec.Nonce,
		GasPrice: dec.GasPrice,
		Gas:      dec.Gas,
		To:       &to,
		Value:    dec.Value,
		Data:     dec.Data,
	})
	return tx, dec.ChainID, nil
}
