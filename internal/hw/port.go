package hw

import (
	"sync"
	"sync/atomic"

	"github.com/comalice/synchsm/internal/logx"
)

// MemoryPort records every byte written to it.
type MemoryPort struct {
	mu     sync.Mutex
	values []byte
}

// WriteByte implements OutputPort.
func (p *MemoryPort) WriteByte(b byte) error {
	p.mu.Lock()
	p.values = append(p.values, b)
	p.mu.Unlock()
	return nil
}

// Values returns a copy of all written bytes in order.
func (p *MemoryPort) Values() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.values...)
}

// Last returns the most recent write.
func (p *MemoryPort) Last() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.values) == 0 {
		return 0, false
	}
	return p.values[len(p.values)-1], true
}

// Len returns the number of writes.
func (p *MemoryPort) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.values)
}

// LogPort writes every committed byte to a logger, one line per write.
type LogPort struct {
	log   logx.Logger
	count atomic.Uint64
}

// NewLogPort returns a port that logs under the given logger.
func NewLogPort(log logx.Logger) *LogPort {
	return &LogPort{log: log}
}

// WriteByte implements OutputPort.
func (p *LogPort) WriteByte(b byte) error {
	n := p.count.Add(1)
	p.log.Info("port write", logx.Uint64("n", n), logx.Byte("value", b), logx.Bits("bits", b))
	return nil
}

// StaticInput is an InputPort holding a value set by the caller, standing in
// for switches wired to the input pins.
type StaticInput struct {
	v atomic.Uint32
}

// Set changes the sampled value.
func (p *StaticInput) Set(b byte) { p.v.Store(uint32(b)) }

// ReadByte implements InputPort.
func (p *StaticInput) ReadByte() (byte, error) {
	return byte(p.v.Load()), nil
}
