package production

import "sync/atomic"

// ChannelPublisher is an OutputPort that forwards every written byte to a Go
// channel. Non-blocking: writes are dropped (and counted) when the channel is
// full, so a slow consumer never stalls the main loop.
type ChannelPublisher struct {
	ch      chan<- byte
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- byte) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// WriteByte implements hw.OutputPort.
func (p *ChannelPublisher) WriteByte(b byte) error {
	select {
	case p.ch <- b:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of writes lost to a full channel.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the output channel. No writes may follow.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
