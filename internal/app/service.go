package app

import (
	"time"

	"hubclean/internal/ports"
)

// Service wires the cleanup use case to its collaborators. Registry may
// be preset (tests do this); otherwise it is built from the request.
// Clock is injected so age boundaries are testable.
type Service struct {
	Registry ports.RegistryPort
	Clock    func() time.Time
}

func NewService() Service {
	return Service{Clock: time.Now}
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
