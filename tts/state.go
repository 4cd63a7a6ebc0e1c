package tts

import "sync"

// StateType represents the current state of a Speaker.
type StateType int

const (
	// StateUninitialized indicates the engine has not finished initializing.
	StateUninitialized StateType = iota
	// StateReady indicates the engine accepts requests.
	StateReady
	// StateSpeaking indicates an utterance is playing.
	StateSpeaking
	// StateSavingToFile indicates a file synthesis is running.
	StateSavingToFile
	// StateShutDown indicates the engine was released. Terminal.
	StateShutDown
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSpeaking:
		return "speaking"
	case StateSavingToFile:
		return "saving"
	case StateShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// IsBusy returns true if the engine is producing audio.
func (s StateType) IsBusy() bool {
	return s == StateSpeaking || s == StateSavingToFile
}

// StateMachine manages state transitions for a Speaker. It is safe for
// concurrent use; engine events arrive on their own goroutines.
type StateMachine struct {
	mu          sync.Mutex
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateUninitialized,
		transitions: map[StateType][]StateType{
			StateUninitialized: {StateReady, StateShutDown},
			StateReady:         {StateSpeaking, StateSavingToFile, StateShutDown},
			StateSpeaking:      {StateReady, StateSpeaking, StateSavingToFile, StateShutDown},
			StateSavingToFile:  {StateReady, StateSpeaking, StateSavingToFile, StateShutDown},
			StateShutDown:      {},
		},
		onEnter: make(map[StateType]func()),
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	sm.mu.Lock()
	from := sm.current
	if !sm.canTransition(from, to) {
		sm.mu.Unlock()
		return false
	}
	sm.current = to
	enterFn := sm.onEnter[to]
	sm.mu.Unlock()

	// Hooks run outside the lock so they may query the machine.
	if enterFn != nil {
		enterFn()
	}
	return true
}

func (sm *StateMachine) canTransition(from, to StateType) bool {
	for _, state := range sm.transitions[from] {
		if state == to {
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = fn
}
