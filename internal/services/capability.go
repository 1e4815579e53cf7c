package services

import (
	"context"
	"sync"

	"github.com/gramshiksha/gramshiksha-client/internal/device"
	"github.com/gramshiksha/gramshiksha-client/internal/logger"
)

// CapabilityService answers "what kind of device are we on". The probe runs
// once per session; Refresh forces a re-read (e.g. after the host reports a
// connection change).
type CapabilityService interface {
	Capabilities(ctx context.Context) device.Capabilities
	Refresh(ctx context.Context) device.Capabilities
}

type capabilityService struct {
	probe device.Probe
	log   *logger.Logger

	mu     sync.Mutex
	cached *device.Capabilities
}

func NewCapabilityService(probe device.Probe, baseLog *logger.Logger) CapabilityService {
	return &capabilityService{
		probe: probe,
		log:   baseLog.With("service", "CapabilityService"),
	}
}

func (s *capabilityService) Capabilities(ctx context.Context) device.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached
	}
	caps := s.probe.Detect(ctx)
	s.cached = &caps
	s.log.Info("Device tier resolved", "tier", caps.Tier().String())
	return caps
}

func (s *capabilityService) Refresh(ctx context.Context) device.Capabilities {
	caps := s.probe.Detect(ctx)
	s.mu.Lock()
	s.cached = &caps
	s.mu.Unlock()
	return caps
}
