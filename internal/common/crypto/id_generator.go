package crypto

import (
	"strings"

	"github.com/google/uuid"
)

type IDGenerator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTraceID returns a random 32-char hex id for request tracing.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
