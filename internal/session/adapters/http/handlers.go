package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerLogin  = "session handler: login"
	LogHandlerLogout = "session handler: logout"
	LogHandlerToken  = "session handler: token" // #nosec G101 - not a credential
	LogHandlerProxy  = "session handler: proxy"

	ErrorFailedToServeRequest = "failed to serve request"
)

// Заголовки, передаваемые backend при проксировании.
var forwardedHeaders = []string{
	fiber.HeaderContentType,
	fiber.HeaderAccept,
	fiber.HeaderAcceptLanguage,
	fiber.HeaderXRequestID,
}

// SessionService - операции сессии, доступные через HTTP.
type SessionService interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	GetValidAccessToken(ctx context.Context) (domain.AccessToken, error)
	Execute(ctx context.Context, req domain.Request) (*domain.Response, error)
	State() domain.StateKind
}

// Handler содержит HTTP обработчики локального API сессии.
type Handler struct {
	session  SessionService
	validate *validator.Validate
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(session SessionService) *Handler {
	return &Handler{
		session:  session,
		validate: validator.New(),
	}
}

// Login обрабатывает вход пользователя.
func (h *Handler) Login(ctx fiber.Ctx) error {
	requestCtx := requestContext(ctx)
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerLogin)

	var req LoginRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Debug(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return sendErrorResponse(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrorInvalidRequest})
	}
	if err := h.validate.Struct(req); err != nil {
		log.Debug(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return sendErrorResponse(ctx, fiber.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if err := h.session.Login(requestCtx, req.Email, req.Password); err != nil {
		log.Warn(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return sendDomainError(ctx, err)
	}
	return h.State(ctx)
}

// Logout завершает сессию. Повторный вызов тоже успешен.
func (h *Handler) Logout(ctx fiber.Ctx) error {
	requestCtx := requestContext(ctx)
	logger.Log(requestCtx).Info(requestCtx, LogHandlerLogout)

	if err := h.session.Logout(requestCtx); err != nil {
		return sendDomainError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// Token возвращает действующий access-токен.
func (h *Handler) Token(ctx fiber.Ctx) error {
	requestCtx := requestContext(ctx)
	logger.Log(requestCtx).Debug(requestCtx, LogHandlerToken)

	token, err := h.session.GetValidAccessToken(requestCtx)
	if err != nil {
		return sendDomainError(ctx, err)
	}

	resp := TokenResponse{AccessToken: token.Value}
	if !token.ExpiresAt.IsZero() {
		exp := token.ExpiresAt.UTC().Truncate(time.Second)
		resp.ExpiresAt = &exp
	}
	if err := ctx.JSON(resp); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// State возвращает состояние сессии.
func (h *Handler) State(ctx fiber.Ctx) error {
	if err := ctx.JSON(StateResponse{State: h.session.State().String()}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Proxy выполняет запрос к backend от имени сессии.
// Путь после префикса и строка запроса передаются как endpoint.
func (h *Handler) Proxy(ctx fiber.Ctx) error {
	requestCtx := requestContext(ctx)
	log := logger.Log(requestCtx)

	endpoint := "/" + strings.TrimPrefix(ctx.Params("*"), "/")
	if query := ctx.Request().URI().QueryString(); len(query) > 0 {
		endpoint += "?" + string(query)
	}
	log.Debug(requestCtx, LogHandlerProxy, zap.String("endpoint", endpoint), zap.String("method", ctx.Method()))

	header := http.Header{}
	for _, name := range forwardedHeaders {
		if v := ctx.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	if id, ok := logger.GetRequestID(requestCtx); ok {
		header.Set(fiber.HeaderXRequestID, id)
	}

	resp, err := h.session.Execute(requestCtx, domain.Request{
		Endpoint: endpoint,
		Method:   ctx.Method(),
		Body:     bytes.Clone(ctx.Body()),
		Header:   header,
	})
	if err != nil {
		log.Debug(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return sendDomainError(ctx, err)
	}

	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "" {
		ctx.Set(fiber.HeaderContentType, ct)
	}
	if err := ctx.Status(resp.StatusCode).Send(resp.Body); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}
