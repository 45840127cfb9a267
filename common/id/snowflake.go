package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// Init initializes the Snowflake node with the given node ID.
// Later calls return the result of the first one.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New returns a time-ordered int64 ID. Used to correlate a reminder across
// its acceptance log, delivery span and dead-letter entry.
// Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// NewActivityID returns an ID for an activity originated by the bot.
func NewActivityID() string {
	return uuid.NewString()
}
