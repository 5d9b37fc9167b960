package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vitwit/paygate/types"
)

// PaymentController : PaymentController struct
type PaymentController struct {
	gw Gateway
}

func NewPaymentController(gw Gateway) *PaymentController {
	return &PaymentController{gw: gw}
}

// Create : POST /api/payment
func (controller *PaymentController) Create(c echo.Context) error {
	var body types.CreatePaymentRequest
	if err := c.Bind(&body); err != nil {
		return err
	}

	created, err := controller.gw.CreatePayment(c.Request().Context(), &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &CreatePaymentResponse{Success: true, Payment: created})
}

// Get : GET /api/payment/:paymentId
func (controller *PaymentController) Get(c echo.Context) error {
	record, err := controller.gw.GetPayment(c.Request().Context(), c.Param("paymentId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}
