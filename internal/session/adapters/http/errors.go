package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"sessiongate/internal/session/domain"
)

// Тексты ошибок в ответах.
const (
	ErrorSessionExpired     = "session expired"
	ErrorNotAuthenticated   = "not authenticated"
	ErrorServiceUnavailable = "service unavailable"
	ErrorGatewayTimeout     = "upstream timeout"
	ErrorBadUpstream        = "malformed upstream response"
	ErrorInvalidRequest     = "invalid request"
	ErrorInternal           = "internal server error"

	redirectLogin = "login"
)

// sendErrorResponse отправляет JSON с ошибкой.
func sendErrorResponse(ctx fiber.Ctx, statusCode int, body ErrorResponse) error {
	if err := ctx.Status(statusCode).JSON(body); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// sendDomainError переводит доменную ошибку в HTTP ответ.
// Ошибки клиента передаются со статусом и телом исходного ответа.
func sendDomainError(ctx fiber.Ctx, err error) error {
	var derr *domain.Error
	errors.As(err, &derr)

	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return sendErrorResponse(ctx, fiber.StatusUnauthorized,
			ErrorResponse{Error: ErrorSessionExpired, Redirect: redirectLogin})
	case errors.Is(err, domain.ErrNotAuthenticated):
		return sendErrorResponse(ctx, fiber.StatusUnauthorized,
			ErrorResponse{Error: ErrorNotAuthenticated, Redirect: redirectLogin})
	case errors.Is(err, domain.ErrTimeout):
		return sendErrorResponse(ctx, fiber.StatusGatewayTimeout, ErrorResponse{Error: ErrorGatewayTimeout})
	case errors.Is(err, domain.ErrTransient):
		return sendErrorResponse(ctx, fiber.StatusServiceUnavailable, ErrorResponse{Error: ErrorServiceUnavailable})
	case errors.Is(err, domain.ErrMalformedResponse):
		return sendErrorResponse(ctx, fiber.StatusBadGateway, ErrorResponse{Error: ErrorBadUpstream})
	case errors.Is(err, domain.ErrClientError) && derr != nil && derr.StatusCode != 0:
		if len(derr.Body) == 0 {
			return sendErrorResponse(ctx, derr.StatusCode, ErrorResponse{Error: fiber.ErrBadRequest.Message})
		}
		if err := ctx.Status(derr.StatusCode).Send(derr.Body); err != nil {
			return fmt.Errorf("error sending response: %w", err)
		}
		return nil
	default:
		return sendErrorResponse(ctx, fiber.StatusInternalServerError, ErrorResponse{Error: ErrorInternal})
	}
}
