// Package backend opens the expense store selected by configuration together
// with the optional change-event publisher.
package backend

import (
	"context"

	"kakeibo/internal/amqp"
	"kakeibo/internal/ports"
	"kakeibo/internal/services"
)

// CheckFunc reports whether an opened dependency is usable.
type CheckFunc func(ctx context.Context) error

// Result holds the opened backend. AMQP is nil when publishing is disabled.
type Result struct {
	Store  ports.Store
	AMQP   *amqp.Client
	Checks map[string]CheckFunc
}

// Publisher returns the AMQP client as a services.Publisher, or a nil
// interface when publishing is disabled.
func (r *Result) Publisher() services.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Memory backend seed file; optional.
	MemorySeedFile string

	// Empty AMQPURL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
