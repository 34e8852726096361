package bus

import (
	"errors"
	"time"
)

// Subscription is one listener bound to one channel.
// Cancel or the topic's Unregister removes it; both are safe to repeat.
type Subscription interface {
	// ID is a unique identifier for this subscription, used in logs.
	ID() string
	// Channel returns the channel name this subscription listens on.
	Channel() string
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel removes the subscription from the bus.
	Cancel() error
}

// Observer is notified about publishes and deliveries. Observers must return quickly.
type Observer interface {
	OnPublish(channel string)
	OnDelivered(channel string, listeners int, duration time.Duration)
}

// Metrics is a minimal set of counters; it is updated only while at least
// one observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Channels          uint64
	SubscribersActive uint64
}

// ChannelInfo is a snapshot of a single channel.
type ChannelInfo struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

var (
	ErrDuplicateListener = errors.New("listener already registered on channel")
	ErrNilListener       = errors.New("listener is nil")
	ErrEmptyChannel      = errors.New("channel name is empty")
)
