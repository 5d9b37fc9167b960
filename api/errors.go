package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/types"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

const internalErrorMessage = "internal server error"

// HTTPErrorHandler renders every error as {"error": "..."}. Caller mistakes
// are 400s, everything else is a 500 reported to Sentry when configured.
func HTTPErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)
		fields := map[string]any{
			"error":     err,
			"status":    status,
			"method":    c.Request().Method,
			"path":      c.Path(),
			"requestId": c.Response().Header().Get(echo.HeaderXRequestID),
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields)
			if hub := sentryecho.GetHubFromContext(c); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("code", types.Code(err))
					hub.CaptureException(err)
				})
			}
		} else {
			log.Debug("request rejected", fields)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, ErrorResponse{Error: message})
		}
		if err != nil {
			log.Error("failed to write error response", map[string]any{"error": err})
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	var ge *types.GatewayError
	if errors.As(err, &ge) {
		if types.IsClientError(ge) {
			return http.StatusBadRequest, ge.Error()
		}
		return http.StatusInternalServerError, ge.Message
	}

	return http.StatusInternalServerError, internalErrorMessage
}
