package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Interface is implemented by every long-running component
type Interface interface {
	Start(ctx context.Context) error
	Stop()
}

type namedService struct {
	name    string
	service Interface
}

// Registry starts services in registration order and stops them in reverse
type Registry struct {
	services []namedService
	started  int
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		services: make([]namedService, 0),
		logger:   logger.With(zap.String("component", "registry")),
	}
}

// Register adds a service under name
func (sr *Registry) Register(name string, service Interface) {
	sr.services = append(sr.services, namedService{name: name, service: service})
}

// Names lists the registered services in start order
func (sr *Registry) Names() []string {
	names := make([]string, len(sr.services))
	for i, s := range sr.services {
		names[i] = s.name
	}
	return names
}

// StartAll starts every service. If one fails, the services already
// started are stopped again and the error is returned.
func (sr *Registry) StartAll(ctx context.Context) error {
	for i, s := range sr.services {
		if err := s.service.Start(ctx); err != nil {
			sr.logger.Error("service failed to start", zap.String("service", s.name), zap.Error(err))
			sr.started = i
			sr.StopAll()
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}
		sr.logger.Debug("service started", zap.String("service", s.name))
	}
	sr.started = len(sr.services)
	return nil
}

// StopAll stops the started services in reverse order
func (sr *Registry) StopAll() {
	for i := sr.started - 1; i >= 0; i-- {
		s := sr.services[i]
		s.service.Stop()
		sr.logger.Debug("service stopped", zap.String("service", s.name))
	}
	sr.started = 0
}
