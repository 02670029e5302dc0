package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/currencybot/core/logger"
)

// Service is a background component that runs next to the bot until its
// context is cancelled.
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

type serviceFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (s serviceFunc) Name() string                  { return s.name }
func (s serviceFunc) Run(ctx context.Context) error { return s.run(ctx) }

// NewService adapts a bare function to the Service interface.
func NewService(name string, run func(ctx context.Context) error) Service {
	return serviceFunc{name: name, run: run}
}

// Modules groups optional services started with the bot.
type Modules struct {
	Services []Service
}

// Start runs every service in its own goroutine. The returned function
// cancels them, waits for them to return and joins their failures. A failing
// service is logged and does not stop the bot.
func (m Modules) Start(ctx context.Context) (stop func() error) {
	ctx, cancel := context.WithCancel(ctx)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, svc := range m.Services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			err := svc.Run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error(ctx, logger.APP, "service.stopped",
				slog.String("status", "fail"),
				slog.String("service", svc.Name()),
				slog.String("err", err.Error()),
			)
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", svc.Name(), err))
			mu.Unlock()
		}(svc)
	}
	return func() error {
		cancel()
		wg.Wait()
		return errors.Join(errs...)
	}
}
