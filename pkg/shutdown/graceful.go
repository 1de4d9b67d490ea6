// Package shutdown предоставляет функциональность для корректного завершения приложения
// путем ожидания и обработки сигналов SIGINT и SIGTERM.
package shutdown

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sessiongate/pkg/logger"
)

const (
	logShutdownStarted = "shutdown started"
	logHookFailed      = "shutdown hook failed"
	logHooksTimedOut   = "shutdown hooks did not finish in time"
)

// Hook освобождает один ресурс при завершении.
type Hook func(context.Context) error

// Wait блокирует выполнение до получения SIGINT или SIGTERM,
// затем выполняет все хуки в рамках заданного timeout.
func Wait(ctx context.Context, timeout time.Duration, hooks ...Hook) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	WaitContext(sigCtx, timeout, hooks...)
}

// WaitContext блокирует выполнение до отмены ctx, затем параллельно выполняет хуки.
func WaitContext(ctx context.Context, timeout time.Duration, hooks ...Hook) {
	<-ctx.Done()

	log := logger.Log(ctx)
	log.Info(ctx, logShutdownStarted, zap.Int("hooks", len(hooks)))

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(fn Hook) {
			defer wg.Done()
			if err := fn(hookCtx); err != nil {
				log.Warn(hookCtx, logHookFailed, zap.Error(err))
			}
		}(hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-hookCtx.Done():
		log.Warn(ctx, logHooksTimedOut, zap.Duration("timeout", timeout))
	}
}
