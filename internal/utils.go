package internal

import (
	"os"

	"github.com/google/uuid"
)

// GenerateUUID returns a random identifier used for poll cycle ids.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateClientID names this process towards message brokers.
func GenerateClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		GetLogger().Warn(ComponentGeneral, "Error getting hostname: %v", err)
		return DefaultAppName + "-" + GenerateUUID()[:8]
	}
	return DefaultAppName + "-" + host
}
