package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

var (
	// ErrServiceNotFound is returned for names that were never registered
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceRunning is returned when starting a running service
	ErrServiceRunning = errors.New("service is already running")

	// ErrServiceNotRunning is returned when stopping a stopped service
	ErrServiceNotRunning = errors.New("service is not running")
)

// ManagedService defines a service that runs until its context is cancelled.
type ManagedService interface {
	Start(ctx context.Context) error
}

// startupGrace is how long StartService waits for an immediate failure
const startupGrace = 100 * time.Millisecond

type serviceRun struct {
	cancel context.CancelFunc
}

// ServiceManager manages multiple services and their lifecycles as background tasks.
type ServiceManager struct {
	services    map[string]ManagedService
	runs        map[string]*serviceRun
	serviceInfo map[string]*interfaces.ServiceInfo

	logger *internal.Logger

	mu         sync.Mutex
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewServiceManager creates a new service manager
func NewServiceManager(logger *internal.Logger) *ServiceManager {
	if logger == nil {
		logger = internal.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &ServiceManager{
		services:    make(map[string]ManagedService),
		runs:        make(map[string]*serviceRun),
		serviceInfo: make(map[string]*interfaces.ServiceInfo),
		logger:      logger,
		rootCtx:     ctx,
		rootCancel:  cancel,
	}
}

// Register adds a new service with a unique name to the manager.
func (m *ServiceManager) Register(name string, service ManagedService) {
	if service == nil {
		m.logger.Error(internal.ComponentService, "Attempted to register nil service: %s", name)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.services[name] = service
	m.serviceInfo[name] = &interfaces.ServiceInfo{
		Name:   name,
		Status: interfaces.ServiceStatusStopped,
	}

	m.logger.Debug(internal.ComponentService, "Service %s registered", name)
}

// StartService starts a specific service by name in the background. An
// error returned by the service within a short grace period is returned.
func (m *ServiceManager) StartService(name string) error {
	m.mu.Lock()
	errChan, err := m.launch(name)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("service %s failed to start: %w", name, err)
		}
	case <-time.After(startupGrace):
		m.logger.Debug(internal.ComponentService, "Service %s started successfully", name)
	}
	return nil
}

// launch starts name in a goroutine. The caller holds m.mu.
func (m *ServiceManager) launch(name string) (<-chan error, error) {
	svc, exists := m.services[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	if _, running := m.runs[name]; running {
		return nil, fmt.Errorf("%w: %s", ErrServiceRunning, name)
	}

	ctx, cancel := context.WithCancel(m.rootCtx)
	run := &serviceRun{cancel: cancel}
	m.runs[name] = run

	info := m.serviceInfo[name]
	info.Status = interfaces.ServiceStatusRunning
	info.StartTime = time.Now()

	errChan := make(chan error, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(errChan)
		defer cancel()

		m.logger.Info(internal.ComponentService, "Starting service %s", name)
		err := svc.Start(ctx)
		failed := err != nil && !errors.Is(err, context.Canceled)

		m.mu.Lock()
		current := m.runs[name] == run
		if current {
			delete(m.runs, name)
		}
		if failed {
			info.Status = interfaces.ServiceStatusError
			info.ErrorCount++
			info.LastError = err.Error()
			info.LastErrorTime = time.Now()
		} else if current {
			info.Status = interfaces.ServiceStatusStopped
		}
		m.mu.Unlock()

		if failed {
			m.logger.Error(internal.ComponentService, "Service %s error: %v", name, err)
			errChan <- err
		}
		m.logger.Info(internal.ComponentService, "Service %s stopped", name)
	}()
	return errChan, nil
}

// StopService stops a specific service by name.
func (m *ServiceManager) StopService(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.services[name]; !exists {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	run, running := m.runs[name]
	if !running {
		return fmt.Errorf("%w: %s", ErrServiceNotRunning, name)
	}
	run.cancel()
	delete(m.runs, name)
	m.serviceInfo[name].Status = interfaces.ServiceStatusStopped
	return nil
}

// StartAll starts all registered services that are not running.
func (m *ServiceManager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.namesLocked() {
		if _, running := m.runs[name]; running {
			continue
		}
		if _, err := m.launch(name); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops all running services.
func (m *ServiceManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, run := range m.runs {
		run.cancel()
		delete(m.runs, name)
		if info, ok := m.serviceInfo[name]; ok {
			info.Status = interfaces.ServiceStatusStopped
		}
	}
	return nil
}

// Shutdown stops all services, cancels the root context and waits up to
// timeout for the service goroutines to return.
func (m *ServiceManager) Shutdown(timeout time.Duration) error {
	_ = m.StopAll()
	m.rootCancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info(internal.ComponentService, "All services stopped")
		return nil
	case <-time.After(timeout):
		m.logger.Warn(internal.ComponentService, "Timed out waiting for services to stop")
		return context.DeadlineExceeded
	}
}

// Wait blocks until every launched service has returned.
func (m *ServiceManager) Wait() {
	m.wg.Wait()
}

// GetRootContext returns the root context of the service manager
func (m *ServiceManager) GetRootContext() context.Context {
	return m.rootCtx
}

// GetService returns the registered service called name
func (m *ServiceManager) GetService(name string) (ManagedService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, exists := m.services[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// GetServiceInfo returns information about a specific service
func (m *ServiceManager) GetServiceInfo(name string) (*interfaces.ServiceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.serviceInfo[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	infoCopy := *info
	return &infoCopy, nil
}

// GetAllServicesInfo returns information about all registered services, sorted by name
func (m *ServiceManager) GetAllServicesInfo() []*interfaces.ServiceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*interfaces.ServiceInfo, 0, len(m.serviceInfo))
	for _, name := range m.namesLocked() {
		infoCopy := *m.serviceInfo[name]
		result = append(result, &infoCopy)
	}
	return result
}

// RecordServiceError records an error for the specified service
func (m *ServiceManager) RecordServiceError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, exists := m.serviceInfo[name]; exists {
		info.ErrorCount++
		info.LastErrorTime = time.Now()
		if err != nil {
			info.LastError = err.Error()
		}
	}
}

func (m *ServiceManager) namesLocked() []string {
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
