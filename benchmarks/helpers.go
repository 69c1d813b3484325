// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/builder"
	"github.com/comalice/synchsm/internal/config"
)

// GenCycle creates a table with n operating states cycling in order, each
// emitting a single bit.
func GenCycle(n int) *synchsm.Table {
	if n < 1 {
		n = 1
	}
	codes := make([]synchsm.Code, n)
	for i := range codes {
		codes[i] = 1 << (i % 8)
	}
	return builder.MustCycle(fmt.Sprintf("cycle_%d", n), codes...)
}

// GenWideRules creates one main state with numRules input rules, none of
// which match a zero input, so every tick scans them all before falling
// through to the default transition.
func GenWideRules(numRules int) *synchsm.Table {
	if numRules < 1 {
		numRules = 1
	}
	b := synchsm.NewMachineBuilder(fmt.Sprintf("wide_%d", numRules), "main")
	main := b.State("main").Emit(0x01).Stay()
	for i := 0; i < numRules; i++ {
		target := fmt.Sprintf("target%d", i)
		bit := byte(1) << (i % 8)
		main.When(bit, bit, target)
		b.State(target).Emit(bit).Next("main")
	}
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// GenMachines creates n independent machines over the same cycle table.
func GenMachines(n, states int) []*synchsm.Machine {
	t := GenCycle(states)
	ms := make([]*synchsm.Machine, n)
	for i := range ms {
		ms[i] = synchsm.MustMachine(t)
	}
	return ms
}

// GenConfigYAML generates a config file declaring numMachines cyclers of
// numStates states each.
func GenConfigYAML(numMachines, numStates int) []byte {
	cfg := config.Default()
	cfg.Machines = make([]config.MachineConfig, numMachines)
	for i := range cfg.Machines {
		codes := make([]uint8, numStates)
		for j := range codes {
			codes[j] = 1 << (j % 8)
		}
		cfg.Machines[i] = config.MachineConfig{Name: fmt.Sprintf("m%d", i), Cycle: codes}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	return data
}
