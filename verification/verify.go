package verification

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
)

// CreateParams is a creation request after validation and normalization.
type CreateParams struct {
	Merchant string
	Token    string
	Amount   *big.Int
	Payer    string
}

// ValidateCreateRequest checks addresses and amount of a creation request.
// It touches neither the chain nor the store.
func ValidateCreateRequest(req *types.CreatePaymentRequest) (*CreateParams, error) {
	if req == nil {
		return nil, types.NewError(types.ErrInvalidAddress, "empty request", nil)
	}

	if err := utils.ValidateAddress(req.MerchantAddress); err != nil {
		return nil, types.NewError(types.ErrInvalidAddress, "invalid merchant address", err)
	}
	if err := utils.ValidateAddress(req.TokenAddress); err != nil {
		return nil, types.NewError(types.ErrInvalidAddress, "invalid token address", err)
	}

	params := &CreateParams{
		Merchant: utils.NormalizeAddress(req.MerchantAddress),
		Token:    utils.NormalizeAddress(req.TokenAddress),
	}

	if req.PayerAddress != "" {
		if err := utils.ValidateAddress(req.PayerAddress); err != nil {
			return nil, types.NewError(types.ErrInvalidAddress, "invalid payer address", err)
		}
		params.Payer = utils.NormalizeAddress(req.PayerAddress)
	}

	amount, err := utils.ValidateAmount(req.Amount)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAmount, "invalid amount", err)
	}
	params.Amount = amount

	return params, nil
}

// ValidateRecord checks a record read back from the store against the
// record schema.
func ValidateRecord(r *types.PaymentRecord) error {
	if r == nil {
		return types.NewError(types.ErrInvalidRecord, "missing record", nil)
	}

	if err := utils.ValidateStruct(r); err != nil {
		return types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s", r.PaymentID), describe(err))
	}

	if !strings.HasPrefix(r.PaymentID, "0x") {
		return types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s", r.PaymentID), errors.New("paymentId must be 0x-prefixed"))
	}
	if _, err := utils.ValidateAmount(r.Amount); err != nil {
		return types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s", r.PaymentID), err)
	}
	if r.Status == types.PaymentStatusCompleted && r.ExecutedAt == nil {
		return types.NewError(types.ErrInvalidRecord, fmt.Sprintf("record %s", r.PaymentID), errors.New("completed record without executedAt"))
	}

	return nil
}

// ValidateExecution decides whether record may be executed at now and
// resolves the paying account: the explicit payer wins over the stored one.
func ValidateExecution(r *types.PaymentRecord, now time.Time, enforcePending bool, payer string) (string, error) {
	if r.IsExpired(now) {
		return "", types.NewError(types.ErrPaymentExpired, fmt.Sprintf("payment %s expired at %s", r.PaymentID, r.ExpiresAt.Format(time.RFC3339)), nil)
	}

	if enforcePending && r.Status != types.PaymentStatusPending {
		return "", types.NewError(types.ErrPaymentNotPending, fmt.Sprintf("payment %s is %s", r.PaymentID, r.Status), nil)
	}

	if payer == "" {
		payer = r.PayerAddress
	}
	if err := utils.ValidateAddress(payer); err != nil {
		return "", types.NewError(types.ErrInvalidAddress, "invalid payer address", err)
	}

	return utils.NormalizeAddress(payer), nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
