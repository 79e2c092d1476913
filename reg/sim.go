package reg

import "sync"

// Write is one software store recorded by Sim.
type Write struct {
	Seq  int
	Addr uint32
	Old  uint32 // register value before the store
	Val  uint32 // value software wrote
}

// Mem gives hooks raw access to the register file. It neither locks nor
// traces; it is only valid inside a hook call.
type Mem struct{ s *Sim }

func (m Mem) Peek(addr uint32) uint32    { return m.s.regs[addr] }
func (m Mem) Poke(addr uint32, v uint32) { m.s.regs[addr] = v }

// StoreHook runs after a store is traced and returns the value the register
// actually holds afterwards (write-1-to-clear, set/reset registers, ...).
type StoreHook func(m Mem, old, v uint32) uint32

// LoadHook runs on every load and returns the value software observes.
type LoadHook func(m Mem, v uint32) uint32

// Sim is an in-memory register file for host builds. It records every store
// in order so tests can assert on exactly which fields were written.
type Sim struct {
	mu     sync.Mutex
	regs   map[uint32]uint32
	trace  []Write
	seq    int
	stores map[uint32]StoreHook
	loads  map[uint32]LoadHook
}

func NewSim() *Sim {
	return &Sim{
		regs:   make(map[uint32]uint32),
		stores: make(map[uint32]StoreHook),
		loads:  make(map[uint32]LoadHook),
	}
}

func (s *Sim) Load(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.regs[addr]
	if h, ok := s.loads[addr]; ok {
		v = h(Mem{s}, v)
	}
	return v
}

func (s *Sim) Store(addr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.regs[addr]
	s.seq++
	s.trace = append(s.trace, Write{Seq: s.seq, Addr: addr, Old: old, Val: v})
	if h, ok := s.stores[addr]; ok {
		v = h(Mem{s}, old, v)
	}
	s.regs[addr] = v
}

// Preset sets a register without tracing it (reset values, hardware state).
func (s *Sim) Preset(addr, v uint32) {
	s.mu.Lock()
	s.regs[addr] = v
	s.mu.Unlock()
}

// Peek reads a register without running load hooks.
func (s *Sim) Peek(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

func (s *Sim) OnStore(addr uint32, h StoreHook) {
	s.mu.Lock()
	s.stores[addr] = h
	s.mu.Unlock()
}

func (s *Sim) OnLoad(addr uint32, h LoadHook) {
	s.mu.Lock()
	s.loads[addr] = h
	s.mu.Unlock()
}

// Trace returns a copy of the recorded stores.
func (s *Sim) Trace() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.trace...)
}

// ClearTrace drops the recorded stores; register contents are kept.
func (s *Sim) ClearTrace() {
	s.mu.Lock()
	s.trace = s.trace[:0]
	s.mu.Unlock()
}

// WritesTo returns the recorded stores to addr, oldest first.
func (s *Sim) WritesTo(addr uint32) []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Write
	for _, w := range s.trace {
		if w.Addr == addr {
			out = append(out, w)
		}
	}
	return out
}

// Touched returns the set of addresses stored to since the last ClearTrace.
func (s *Sim) Touched() map[uint32]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[uint32]bool, len(s.trace))
	for _, w := range s.trace {
		m[w.Addr] = true
	}
	return m
}

// Changed returns old^new over all stores to addr since the last ClearTrace.
func (s *Sim) Changed(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var diff uint32
	for _, w := range s.trace {
		if w.Addr == addr {
			diff |= w.Old ^ w.Val
		}
	}
	return diff
}
