package idgen

import (
	"github.com/google/uuid"

	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

var _ ports.IDGenerator = UUID{}

// UUID generates random (version 4) UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }
