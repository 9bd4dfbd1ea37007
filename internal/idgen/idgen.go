package idgen

import (
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewNode creates the snowflake node used for audit log IDs.
func NewNode(nodeID int64) (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}

// ClientID returns a new opaque client identifier.
func ClientID() string {
	return uuid.NewString()
}

// RequestID returns a new lexicographically sortable request identifier.
func RequestID() string {
	return ulid.Make().String()
}
