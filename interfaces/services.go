package interfaces

import (
	"time"
)

// ServiceStatus represents the current status of a service
type ServiceStatus = string

const (
	// ServiceStatusRunning indicates the service is currently running
	ServiceStatusRunning ServiceStatus = "RUNNING"
	// ServiceStatusStopped indicates the service is currently stopped
	ServiceStatusStopped ServiceStatus = "STOPPED"
	// ServiceStatusError indicates the service has encountered an error
	ServiceStatusError ServiceStatus = "ERROR"
)

// ServiceInfo contains metadata about a service
type ServiceInfo struct {
	Name          string        `json:"name"`
	Status        ServiceStatus `json:"status"`
	StartTime     time.Time     `json:"start_time,omitempty"`
	ErrorCount    int           `json:"error_count,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
	LastErrorTime time.Time     `json:"last_error_time,omitempty"`
}
