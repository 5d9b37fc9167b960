package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vitwit/paygate/intent"
	"github.com/vitwit/paygate/types"
)

// GatewayController serves the action descriptor and its submissions.
type GatewayController struct {
	gw Gateway
}

func NewGatewayController(gw Gateway) *GatewayController {
	return &GatewayController{gw: gw}
}

// GatewayRequestBody is either an execution ({paymentId}) or a creation
// ({tokenAddress, amount, ...}).
type GatewayRequestBody struct {
	PaymentID       string          `json:"paymentId"`
	PayerAddress    string          `json:"payerAddress"`
	MerchantAddress string          `json:"merchantAddress"`
	TokenAddress    string          `json:"tokenAddress"`
	Amount          string          `json:"amount"`
	Metadata        json.RawMessage `json:"metadata"`
}

// CreatePaymentResponse is returned for every successful creation.
type CreatePaymentResponse struct {
	Success bool                  `json:"success"`
	Payment *types.CreatedPayment `json:"payment"`
}

// Describe : GET /api/gateway
func (controller *GatewayController) Describe(c echo.Context) error {
	descriptor, err := controller.gw.Describe(c.Request().Context(), baseURL(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, descriptor)
}

// Submit : POST /api/gateway
func (controller *GatewayController) Submit(c echo.Context) error {
	var body GatewayRequestBody
	if err := c.Bind(&body); err != nil {
		return err
	}

	// Action hosts send the selected parameters and the connected wallet
	// in the query string.
	if body.PaymentID == "" {
		body.PaymentID = c.QueryParam(intent.PaymentParam)
	}
	if body.PayerAddress == "" {
		body.PayerAddress = c.QueryParam("account")
	}
	if body.TokenAddress == "" {
		body.TokenAddress = c.QueryParam(intent.TokenParam)
	}
	if body.Amount == "" {
		body.Amount = c.QueryParam(intent.AmountParam)
	}

	ctx := c.Request().Context()

	switch {
	case body.PaymentID != "":
		return controller.execute(c, body.PaymentID, body.PayerAddress)

	case body.TokenAddress != "" || body.Amount != "":
		merchant := body.MerchantAddress
		if merchant == "" {
			merchant = controller.gw.DepositMerchant()
		}
		created, err := controller.gw.CreatePayment(ctx, &types.CreatePaymentRequest{
			MerchantAddress: merchant,
			TokenAddress:    body.TokenAddress,
			Amount:          body.Amount,
			Metadata:        body.Metadata,
			PayerAddress:    body.PayerAddress,
		})
		if err != nil {
			return err
		}

		// A deposit submitted from a wallet is settled in the same round trip.
		if controller.gw.IntentVariant() == types.IntentVariantDeposit && body.PayerAddress != "" {
			return controller.execute(c, created.PaymentID, body.PayerAddress)
		}
		return c.JSON(http.StatusOK, &CreatePaymentResponse{Success: true, Payment: created})
	}

	return echo.NewHTTPError(http.StatusBadRequest, "paymentId is required")
}

func (controller *GatewayController) execute(c echo.Context, paymentID, payer string) error {
	result, err := controller.gw.ExecutePayment(c.Request().Context(), &types.ExecutePaymentRequest{
		PaymentID:    paymentID,
		PayerAddress: payer,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
