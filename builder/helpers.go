// Package builder provides shortcuts for common synchronous state machine
// shapes.
package builder

import (
	"fmt"

	"github.com/comalice/synchsm"
)

// Option pattern for configuring generated states
type Option func(*options)

type options struct {
	prefix   string
	holdMask byte
}

// WithPrefix sets the prefix of generated state names (default "L").
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithHold makes every state hold (skip its transition) while any input bit
// in mask is set.
func WithHold(mask byte) Option {
	return func(o *options) { o.holdMask = mask }
}

// Cycle builds a table whose operating states emit codes in order and wrap
// back to the first: Start -> L0 -> L1 -> ... -> Ln-1 -> L0.
func Cycle(name string, codes []synchsm.Code, opts ...Option) (*synchsm.Table, error) {
	o := options{prefix: "L"}
	for _, opt := range opts {
		opt(&o)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("cycle %q: %w", name, synchsm.ErrNoStates)
	}

	stateName := func(i int) string { return fmt.Sprintf("%s%d", o.prefix, i) }

	b := synchsm.NewMachineBuilder(name, stateName(0))
	for i, code := range codes {
		sb := b.State(stateName(i)).Emit(code).Next(stateName((i + 1) % len(codes)))
		if o.holdMask != 0 {
			// any held bit set: stay; all clear falls through to Next
			for bit := byte(1); bit != 0; bit <<= 1 {
				if o.holdMask&bit != 0 {
					sb.When(bit, bit, stateName(i))
				}
			}
		}
	}
	return b.Build()
}

// MustCycle is like Cycle but panics on error. Intended for package-level
// tables with constant codes.
func MustCycle(name string, codes ...synchsm.Code) *synchsm.Table {
	t, err := Cycle(name, codes)
	if err != nil {
		panic(err)
	}
	return t
}

// Reference returns the two three-state cyclers of the reference board setup,
// each emitting 0x01, 0x02, 0x04.
func Reference() []*synchsm.Table {
	return []*synchsm.Table{
		MustCycle("ssm1", 0x01, 0x02, 0x04),
		MustCycle("ssm2", 0x01, 0x02, 0x04),
	}
}
