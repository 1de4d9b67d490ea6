package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sessiongate/pkg/logger"
)

const localRequestID = "request_id"

// requestContext возвращает контекст запроса с идентификатором из RequestID.
func requestContext(ctx fiber.Ctx) context.Context {
	var requestCtx context.Context = ctx.Context()
	if id, ok := ctx.Locals(localRequestID).(string); ok {
		requestCtx = logger.NewRequestIDContext(requestCtx, id)
	}
	return requestCtx
}

// NewRequestIDMiddleware принимает X-Request-ID клиента или создает новый.
func NewRequestIDMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		id := ctx.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = logger.GenerateRequestID()
		}
		ctx.Locals(localRequestID, id)
		ctx.Set(fiber.HeaderXRequestID, id)
		return ctx.Next()
	}
}

// NewLoggerMiddleware создает новое промежуточное ПО для логирования HTTP запросов.
func NewLoggerMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := requestContext(ctx)
		start := time.Now()

		log := logger.Log(requestCtx).With(
			zap.String("path", ctx.Path()),
			zap.String("method", ctx.Method()),
			zap.String("ip", ctx.IP()),
		)

		log.Debug(requestCtx, "request started")

		err := ctx.Next()

		logFields := []zap.Field{
			zap.Int("status", ctx.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}

		if err != nil {
			log.Error(requestCtx, "request failed", append(logFields, zap.Error(err))...)
			return fmt.Errorf("request processing error: %w", err)
		}

		log.Info(requestCtx, "request completed", logFields...)
		return nil
	}
}

// NewRecoveryMiddleware создает новое промежуточное ПО для восстановления после паники.
func NewRecoveryMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) (err error) {
		requestCtx := requestContext(ctx)

		defer func() {
			if r := recover(); r != nil {
				log := logger.Log(requestCtx)
				log.Error(requestCtx, "server panic",
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())),
				)
				err = sendErrorResponse(ctx, fiber.StatusInternalServerError, ErrorResponse{Error: ErrorInternal})
			}
		}()

		return ctx.Next()
	}
}
