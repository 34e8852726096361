package bus

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeusync/fxdemo/internal/core/observability/log"
)

// Bus is an in-process publish/subscribe registry keyed by channel name.
//
// Key characteristics:
//   - Flat namespace: "Player.LevelUp" is just a string; the bus never parses it.
//   - Synchronous delivery: Publish runs every listener in the caller goroutine,
//     in registration order, before it returns.
//   - Typed channels: listeners and publishers meet through Topic0..Topic4 values
//     which fix the payload arity and types for a channel name.
//   - Snapshot dispatch: listeners cancelled while a Publish is running are skipped
//     if not yet reached; listeners added during a Publish wait for the next one.
//   - Listener panics are not recovered.
//
// The mutex only guards the channel map; it is never held while listeners run,
// so listeners may publish, register and unregister freely.
type Bus struct {
	mu        sync.RWMutex
	channels  map[string]*channel
	observers map[Observer]struct{}
	metrics   Metrics
	logger    log.Log
}

type channel struct {
	name string
	subs []*subscription
}

// subscription implements Subscription. listener holds the typed listener
// pointer (e.g. *Listener2[int, string]) and doubles as its identity.
type subscription struct {
	id       string
	channel  string
	listener any
	active   atomic.Bool
	bus      *Bus
}

func (s *subscription) ID() string      { return s.id }
func (s *subscription) Channel() string { return s.channel }
func (s *subscription) IsActive() bool  { return s.active.Load() }
func (s *subscription) Cancel() error {
	if s.active.Load() {
		s.bus.remove(s)
	}
	return nil
}

// New creates an empty bus. A nil logger discards diagnostics.
func New(logger log.Log) *Bus {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Bus{
		channels:  make(map[string]*channel),
		observers: make(map[Observer]struct{}),
		logger:    logger.With(log.String("component", "eventbus")),
	}
}

func (b *Bus) rejectNil(name string) error {
	b.logger.Error("register with nil listener", log.String("channel", name))
	return ErrNilListener
}

func (b *Bus) register(name string, listener any) (*subscription, error) {
	if name == "" {
		b.logger.Error("register on empty channel name")
		return nil, ErrEmptyChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[name]
	if !ok {
		ch = &channel{name: name}
		b.channels[name] = ch
	}
	for _, s := range ch.subs {
		if s.listener == listener {
			b.logger.Error("duplicate listener registration",
				log.String("channel", name),
				log.String("subscription", s.id),
			)
			return nil, ErrDuplicateListener
		}
	}

	s := &subscription{id: uuid.NewString(), channel: name, listener: listener, bus: b}
	s.active.Store(true)
	ch.subs = append(ch.subs, s)
	return s, nil
}

func (b *Bus) unregister(name string, listener any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[name]
	if !ok {
		return false
	}
	idx := slices.IndexFunc(ch.subs, func(s *subscription) bool { return s.listener == listener })
	if idx < 0 {
		return false
	}
	b.deleteAt(ch, idx)
	return true
}

// remove drops exactly s, never a later subscription of the same listener.
func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[s.channel]
	if !ok {
		return
	}
	if idx := slices.Index(ch.subs, s); idx >= 0 {
		b.deleteAt(ch, idx)
	}
}

func (b *Bus) deleteAt(ch *channel, idx int) {
	ch.subs[idx].active.Store(false)
	ch.subs = slices.Delete(ch.subs, idx, idx+1)
	if len(ch.subs) == 0 {
		delete(b.channels, ch.name)
	}
}

// dispatch delivers to a snapshot of the channel's subscribers. invoke reports
// whether the listener matched the publishing topic's signature and was called.
func (b *Bus) dispatch(name string, invoke func(listener any) bool) {
	start := time.Now()

	b.mu.RLock()
	var subs []*subscription
	if ch, ok := b.channels[name]; ok {
		subs = slices.Clone(ch.subs)
	}
	observed := len(b.observers) > 0
	var observers []Observer
	if observed {
		observers = make([]Observer, 0, len(b.observers))
		for obs := range b.observers {
			observers = append(observers, obs)
		}
	}
	b.mu.RUnlock()

	for _, obs := range observers {
		obs.OnPublish(name)
	}

	delivered := 0
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		if invoke(s.listener) {
			delivered++
		}
	}

	if !observed {
		return
	}
	dur := time.Since(start)
	for _, obs := range observers {
		obs.OnDelivered(name, delivered, dur)
	}

	b.mu.Lock()
	b.metrics.Published++
	b.metrics.DeliveredHandlers += uint64(delivered)
	b.metrics.Channels = uint64(len(b.channels))
	var active uint64
	for _, ch := range b.channels {
		active += uint64(len(ch.subs))
	}
	b.metrics.SubscribersActive = active
	b.mu.Unlock()
}

// HasSubscribers reports whether the channel currently has any subscription.
func (b *Bus) HasSubscribers(name string) bool {
	return b.SubscriberCount(name) > 0
}

// SubscriberCount returns the number of subscriptions on a channel, across all signatures.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ch, ok := b.channels[name]; ok {
		return len(ch.subs)
	}
	return 0
}

// Channels returns a snapshot of live channels sorted by name.
func (b *Bus) Channels() []ChannelInfo {
	b.mu.RLock()
	out := make([]ChannelInfo, 0, len(b.channels))
	for name, ch := range b.channels {
		out = append(out, ChannelInfo{Name: name, Subscribers: len(ch.subs)})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear cancels every subscription and drops all channels.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, ch := range b.channels {
		for _, s := range ch.subs {
			s.active.Store(false)
		}
		delete(b.channels, name)
	}
}

func (b *Bus) AddObserver(obs Observer) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *Bus) RemoveObserver(obs Observer) {
	b.mu.Lock()
	delete(b.observers, obs)
	b.mu.Unlock()
}

// GetMetrics returns a snapshot of the counters collected while observed.
func (b *Bus) GetMetrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}
