package clients

import (
	"errors"
	"fmt"

	"github.com/vitwit/paygate/types"
)

// Failure reasons attached to adapter errors.
const (
	ReasonEmptyReturn     = "empty_return_data"
	ReasonDecodeFailed    = "decode_failed"
	ReasonCallFailed      = "call_failed"
	ReasonEncodeFailed    = "encode_failed"
	ReasonGasFillFailed   = "gas_fill_failed"
	ReasonUnsupportedMode = "unsupported_execution_mode"
)

var errEmptyReturn = errors.New(ReasonEmptyReturn)

func invalidTokenError(token string, cause error) error {
	return types.NewError(types.ErrInvalidToken, fmt.Sprintf("token %s is not a valid ERC-20 contract", token), cause)
}

func chainCallError(reason, op string, cause error) error {
	return types.NewError(types.ErrChainCall, fmt.Sprintf("%s: %s", reason, op), cause)
}

func invalidAddressError(field, value string) error {
	return types.NewError(types.ErrInvalidAddress, fmt.Sprintf("invalid %s address: %q", field, value), nil)
}
