package nats_common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// RequestControl sends a control command to a running poller and returns
// its reply.
func RequestControl(natsURL, subject, command string, timeout time.Duration) ([]byte, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	msg, err := nc.Request(subject, []byte(command), timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s command: %w", command, err)
	}
	if reply := string(msg.Data); strings.HasPrefix(reply, "error: ") {
		return nil, errors.New(strings.TrimPrefix(reply, "error: "))
	}
	return msg.Data, nil
}
