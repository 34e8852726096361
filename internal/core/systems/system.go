package systems

// System is the contract every gameplay module exposes to the orchestrator.
// All calls happen on the host's frame goroutine and must not block.
type System interface {
	// Identity

	Name() string
	// Priority is an ordering hint only; the orchestrator runs systems in
	// registration order.
	Priority() int

	// State

	State() State
	IsInitialized() bool
	IsRunning() bool
	IsPaused() bool

	// Lifecycle

	Initialize() error
	Start() error
	Shutdown() error
	Reset() error
	Pause() error
	Resume() error

	// Execution

	Update(deltaTime float64) error
	FixedUpdate(fixedDeltaTime float64) error
}

// FailureReporter is implemented by systems that log and swallow hook
// failures instead of returning them. TakeFailure returns the most recent
// swallowed failure and clears it; the orchestrator drains it after each call.
type FailureReporter interface {
	TakeFailure() error
}

// Hooks are the behaviour a concrete system plugs into Base.
type Hooks interface {
	OnInitialize() error
	OnStart() error
	OnUpdate(deltaTime float64) error
}

// Optional hooks. Base calls them when the hooks value implements them.
type (
	FixedUpdater interface {
		OnFixedUpdate(fixedDeltaTime float64) error
	}
	Shutdowner interface {
		OnShutdown() error
	}
	Resetter interface {
		OnReset() error
	}
	Pauser interface {
		OnPause() error
	}
	Resumer interface {
		OnResume() error
	}
)

// State is the lifecycle state of a single system.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
