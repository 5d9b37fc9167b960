package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// BalanceController : BalanceController struct
type BalanceController struct {
	gw Gateway
}

func NewBalanceController(gw Gateway) *BalanceController {
	return &BalanceController{gw: gw}
}

type BalanceQuery struct {
	User   string `query:"user" validate:"required"`
	Token  string `query:"token" validate:"required"`
	Amount string `query:"amount" validate:"required"`
}

// Check : GET /api/balance
func (controller *BalanceController) Check(c echo.Context) error {
	var q BalanceQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	res, err := controller.gw.CheckBalance(c.Request().Context(), q.User, q.Token, q.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
