package synchsm

import (
	"fmt"
	"strings"
)

// Aggregator combines the output slots of all machines into the single byte
// committed to the output port. Slots are passed in registration order.
type Aggregator func(slots []Code) Code

// Or sets every bit set by any machine.
func Or(slots []Code) Code {
	var v Code
	for _, c := range slots {
		v |= c
	}
	return v
}

// Xor toggles bits, so two machines driving the same line cancel out.
func Xor(slots []Code) Code {
	var v Code
	for _, c := range slots {
		v ^= c
	}
	return v
}

// LastWriter commits the slot of the last registered machine and ignores the
// others. It only exists to reproduce single shared output variable setups.
func LastWriter(slots []Code) Code {
	if len(slots) == 0 {
		return Neutral
	}
	return slots[len(slots)-1]
}

// AggregatorNames lists the names accepted by ParseAggregator.
var AggregatorNames = []string{"or", "xor", "last"}

// ParseAggregator returns the aggregator registered under name.
// The empty name selects Or.
func ParseAggregator(name string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "or":
		return Or, nil
	case "xor":
		return Xor, nil
	case "last", "last-writer", "lastwriter":
		return LastWriter, nil
	default:
		return nil, fmt.Errorf("unknown aggregator %q: must be one of %v", name, AggregatorNames)
	}
}
