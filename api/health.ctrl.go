package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type HealthController struct {
	gw Gateway
}

func NewHealthController(gw Gateway) *HealthController {
	return &HealthController{gw: gw}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Network string `json:"network"`
}

// Health : GET /health
func (controller *HealthController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:  "ok",
		Network: controller.gw.Network().String(),
	})
}
