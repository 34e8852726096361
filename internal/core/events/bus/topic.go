package bus

// Topics bind a channel name to a payload signature. A channel name may be
// shared by topics of different signatures; each Publish only reaches
// listeners whose signature matches its own topic exactly.
//
// Listeners are pointer handles and their pointer is their identity: keep the
// value returned by ListenN to Unregister later. Registering the same handle
// twice on a channel is rejected.

type (
	Topic0                 struct{ name string }
	Topic1[A any]          struct{ name string }
	Topic2[A, B any]       struct{ name string }
	Topic3[A, B, C any]    struct{ name string }
	Topic4[A, B, C, D any] struct{ name string }
)

type (
	Listener0                 struct{ fn func() }
	Listener1[A any]          struct{ fn func(A) }
	Listener2[A, B any]       struct{ fn func(A, B) }
	Listener3[A, B, C any]    struct{ fn func(A, B, C) }
	Listener4[A, B, C, D any] struct{ fn func(A, B, C, D) }
)

func NewTopic0(name string) Topic0 {
	return Topic0{name: name}
}

func NewTopic1[A any](name string) Topic1[A] {
	return Topic1[A]{name: name}
}

func NewTopic2[A, B any](name string) Topic2[A, B] {
	return Topic2[A, B]{name: name}
}

func NewTopic3[A, B, C any](name string) Topic3[A, B, C] {
	return Topic3[A, B, C]{name: name}
}

func NewTopic4[A, B, C, D any](name string) Topic4[A, B, C, D] {
	return Topic4[A, B, C, D]{name: name}
}

func Listen0(fn func()) *Listener0 {
	return &Listener0{fn: fn}
}

func Listen1[A any](fn func(A)) *Listener1[A] {
	return &Listener1[A]{fn: fn}
}

func Listen2[A, B any](fn func(A, B)) *Listener2[A, B] {
	return &Listener2[A, B]{fn: fn}
}

func Listen3[A, B, C any](fn func(A, B, C)) *Listener3[A, B, C] {
	return &Listener3[A, B, C]{fn: fn}
}

func Listen4[A, B, C, D any](fn func(A, B, C, D)) *Listener4[A, B, C, D] {
	return &Listener4[A, B, C, D]{fn: fn}
}

func (t Topic0) Name() string             { return t.name }
func (t Topic1[A]) Name() string          { return t.name }
func (t Topic2[A, B]) Name() string       { return t.name }
func (t Topic3[A, B, C]) Name() string    { return t.name }
func (t Topic4[A, B, C, D]) Name() string { return t.name }

// Register adds l to the topic's channel.
func (t Topic0) Register(b *Bus, l *Listener0) (Subscription, error) {
	if l == nil || l.fn == nil {
		return nil, b.rejectNil(t.name)
	}
	return wrap(b.register(t.name, l))
}

// Unregister removes l if present and reports whether it was registered.
func (t Topic0) Unregister(b *Bus, l *Listener0) bool { return b.unregister(t.name, l) }

// On registers a fresh listener for fn. Use the returned Subscription to cancel.
func (t Topic0) On(b *Bus, fn func()) (Subscription, error) { return t.Register(b, Listen0(fn)) }

func (t Topic0) Publish(b *Bus) {
	b.dispatch(t.name, func(l any) bool {
		h, ok := l.(*Listener0)
		if ok {
			h.fn()
		}
		return ok
	})
}

func (t Topic1[A]) Register(b *Bus, l *Listener1[A]) (Subscription, error) {
	if l == nil || l.fn == nil {
		return nil, b.rejectNil(t.name)
	}
	return wrap(b.register(t.name, l))
}

func (t Topic1[A]) Unregister(b *Bus, l *Listener1[A]) bool { return b.unregister(t.name, l) }

func (t Topic1[A]) On(b *Bus, fn func(A)) (Subscription, error) {
	return t.Register(b, Listen1(fn))
}

func (t Topic1[A]) Publish(b *Bus, a A) {
	b.dispatch(t.name, func(l any) bool {
		h, ok := l.(*Listener1[A])
		if ok {
			h.fn(a)
		}
		return ok
	})
}

func (t Topic2[A, B]) Register(b *Bus, l *Listener2[A, B]) (Subscription, error) {
	if l == nil || l.fn == nil {
		return nil, b.rejectNil(t.name)
	}
	return wrap(b.register(t.name, l))
}

func (t Topic2[A, B]) Unregister(b *Bus, l *Listener2[A, B]) bool { return b.unregister(t.name, l) }

func (t Topic2[A, B]) On(b *Bus, fn func(A, B)) (Subscription, error) {
	return t.Register(b, Listen2(fn))
}

func (t Topic2[A, B]) Publish(b *Bus, a A, bb B) {
	b.dispatch(t.name, func(l any) bool {
		h, ok := l.(*Listener2[A, B])
		if ok {
			h.fn(a, bb)
		}
		return ok
	})
}

func (t Topic3[A, B, C]) Register(b *Bus, l *Listener3[A, B, C]) (Subscription, error) {
	if l == nil || l.fn == nil {
		return nil, b.rejectNil(t.name)
	}
	return wrap(b.register(t.name, l))
}

func (t Topic3[A, B, C]) Unregister(b *Bus, l *Listener3[A, B, C]) bool {
	return b.unregister(t.name, l)
}

func (t Topic3[A, B, C]) On(b *Bus, fn func(A, B, C)) (Subscription, error) {
	return t.Register(b, Listen3(fn))
}

func (t Topic3[A, B, C]) Publish(b *Bus, a A, bb B, c C) {
	b.dispatch(t.name, func(l any) bool {
		h, ok := l.(*Listener3[A, B, C])
		if ok {
			h.fn(a, bb, c)
		}
		return ok
	})
}

func (t Topic4[A, B, C, D]) Register(b *Bus, l *Listener4[A, B, C, D]) (Subscription, error) {
	if l == nil || l.fn == nil {
		return nil, b.rejectNil(t.name)
	}
	return wrap(b.register(t.name, l))
}

func (t Topic4[A, B, C, D]) Unregister(b *Bus, l *Listener4[A, B, C, D]) bool {
	return b.unregister(t.name, l)
}

func (t Topic4[A, B, C, D]) On(b *Bus, fn func(A, B, C, D)) (Subscription, error) {
	return t.Register(b, Listen4(fn))
}

func (t Topic4[A, B, C, D]) Publish(b *Bus, a A, bb B, c C, d D) {
	b.dispatch(t.name, func(l any) bool {
		h, ok := l.(*Listener4[A, B, C, D])
		if ok {
			h.fn(a, bb, c, d)
		}
		return ok
	})
}

// wrap keeps a nil *subscription from turning into a non-nil Subscription.
func wrap(s *subscription, err error) (Subscription, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
