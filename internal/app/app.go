// Package app runs long-lived services as one group: the first to return stops the rest.
package app

import (
	"context"

	"github.com/oklog/run"
)

// Service is a long-running component.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// App is a group of services sharing one lifetime. Each service gets its own
// context, cancelled with the cause once any member of the group returns.
type App struct {
	services []Service
	runner   *run.Group
}

// NewApp returns an empty App.
func NewApp() *App {
	return &App{
		services: make([]Service, 0),
		runner:   &run.Group{},
	}
}

// WithService registers s to run with the group and returns a for chaining.
// Services must be registered before Run.
func (a *App) WithService(s Service) *App {
	a.services = append(a.services, s)
	return a
}

// Run starts every registered service and blocks until all of them returned.
// The first service to return, with or without error, interrupts the rest;
// its error is the one reported. Cancelling ctx stops every service.
func (a *App) Run(ctx context.Context) error {
	for _, service := range a.services {
		a.runner.Add(actor(ctx, service))
	}

	return a.runner.Run()
}

func actor(ctx context.Context, service Service) (func() error, func(err error)) {
	ctx, cancel := context.WithCancelCause(ctx)

	return func() error {
			return service.Run(ctx)
		}, func(err error) {
			cancel(err)
		}
}
