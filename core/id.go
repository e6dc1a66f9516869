package core

import (
	"github.com/google/uuid"

	"pkt.systems/glimmer/schema"
)

// NewSessionID returns a random session id.
func NewSessionID() schema.SessionID {
	return schema.SessionID(uuid.NewString())
}
