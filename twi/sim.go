package twi

import "sync"

// SimBus is an in-process two-wire peripheral for tests and host tools.
// Slaves register by 7-bit address; every master operation produces the
// status code real hardware would, and the registered event handler is
// invoked synchronously in place of the interrupt. Faults can be injected at
// any phase to exercise the abort paths.
type SimBus struct {
	mu      sync.Mutex
	slaves  map[uint8]*SimSlave
	handler func()

	// FailPhase injects FailCode in place of the real status code on the
	// n-th phase (1-based, counted from Start). Zero disables injection.
	FailPhase int
	FailCode  Code

	phase     int
	code      Code
	pending   bool
	data      byte
	started   bool
	expectSLA bool
	dirRead   bool
	active    *SimSlave
}

// NewSimBus returns an empty simulated bus.
func NewSimBus() *SimBus {
	return &SimBus{slaves: make(map[uint8]*SimSlave)}
}

// AddSlave registers a slave at the given 7-bit address and returns it.
func (sb *SimBus) AddSlave(addr uint8) *SimSlave {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	s := &SimSlave{}
	sb.slaves[addr] = s
	return s
}

// SimSlave records the bytes written to it and serves queued bytes to reads.
type SimSlave struct {
	mu       sync.Mutex
	received []byte
	queue    []byte
}

// Received returns a copy of everything written to the slave so far.
func (s *SimSlave) Received() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.received))
	copy(out, s.received)
	return out
}

// QueueReads appends bytes for the slave to serve on master reads.
func (s *SimSlave) QueueReads(p []byte) {
	s.mu.Lock()
	s.queue = append(s.queue, p...)
	s.mu.Unlock()
}

func (s *SimSlave) takeByte(b byte) {
	s.mu.Lock()
	s.received = append(s.received, b)
	s.mu.Unlock()
}

func (s *SimSlave) serveByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	b := s.queue[0]
	s.queue = s.queue[1:]
	return b, true
}

// ---- Bus implementation ----

func (sb *SimBus) Start() {
	sb.mu.Lock()
	code := CodeStart
	if sb.started {
		code = CodeRepStart
	}
	sb.started = true
	sb.expectSLA = true
	sb.active = nil
	sb.raise(code)
	sb.mu.Unlock()
	sb.fire()
}

func (sb *SimBus) WriteData(b byte) {
	sb.mu.Lock()
	sb.data = b
	sb.mu.Unlock()
}

func (sb *SimBus) ReadData() byte {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.data
}

// Proceed completes the phase the master just set up: address decode after a
// START, otherwise one data byte in the current direction.
func (sb *SimBus) Proceed() {
	sb.mu.Lock()
	switch {
	case sb.expectSLA:
		sb.expectSLA = false
		sb.dirRead = sb.data&1 == 1
		sb.active = sb.slaves[sb.data>>1]
		switch {
		case sb.active == nil && sb.dirRead:
			sb.raise(CodeSlaRNack)
		case sb.active == nil:
			sb.raise(CodeSlaWNack)
		case sb.dirRead:
			sb.raise(CodeSlaRAck)
		default:
			sb.raise(CodeSlaWAck)
		}
	case sb.dirRead:
		if b, ok := sb.serve(); ok {
			sb.data = b
			sb.raise(CodeDataRAck)
		} else {
			sb.raise(CodeDataRNack)
		}
	default:
		if sb.active != nil {
			sb.active.takeByte(sb.data)
			sb.raise(CodeDataWAck)
		} else {
			sb.raise(CodeDataWNack)
		}
	}
	sb.mu.Unlock()
	sb.fire()
}

func (sb *SimBus) Stop() {
	sb.mu.Lock()
	sb.started = false
	sb.pending = false
	sb.active = nil
	sb.mu.Unlock()
}

func (sb *SimBus) Code() Code {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.code
}

func (sb *SimBus) EventPending() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.pending
}

func (sb *SimBus) SetEventHandler(fn func()) {
	sb.mu.Lock()
	sb.handler = fn
	sb.mu.Unlock()
}

// raise records the status code for the completed phase, applying fault
// injection. Callers hold sb.mu.
func (sb *SimBus) raise(code Code) {
	sb.phase++
	if sb.FailPhase != 0 && sb.phase == sb.FailPhase {
		code = sb.FailCode
	}
	sb.code = code
	sb.pending = true
}

func (sb *SimBus) serve() (byte, bool) {
	if sb.active == nil {
		return 0, false
	}
	return sb.active.serveByte()
}

// fire delivers the pending event to the handler, if one is attached. The
// delivery is synchronous: the handler runs in the caller's goroutine the
// way an interrupt preempts the foreground.
func (sb *SimBus) fire() {
	sb.mu.Lock()
	fn := sb.handler
	sb.mu.Unlock()
	if fn != nil {
		fn()
	}
}
