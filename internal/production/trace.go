package production

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/synchsm/internal/hw"
)

// Record is one committed port write. Boundary 0 is the idle write made at
// initialization.
type Record struct {
	Boundary uint64    `json:"boundary" yaml:"boundary"`
	Value    byte      `json:"value" yaml:"value"`
	At       time.Time `json:"at" yaml:"at"`
}

// Trace is the serializable history of one scheduler run.
type Trace struct {
	RunID    string   `json:"runID" yaml:"runID"`
	PeriodMs uint32   `json:"periodMs" yaml:"periodMs"`
	Records  []Record `json:"records" yaml:"records"`
}

// Values returns the written values in order.
func (t Trace) Values() []byte {
	vs := make([]byte, len(t.Records))
	for i, r := range t.Records {
		vs[i] = r.Value
	}
	return vs
}

// TraceRecorder is an OutputPort decorator recording every write before
// forwarding it.
type TraceRecorder struct {
	next hw.OutputPort
	now  func() time.Time

	mu    sync.Mutex
	trace Trace
}

// NewTraceRecorder wraps next. next may be nil to only record.
func NewTraceRecorder(next hw.OutputPort, runID string, periodMs uint32) *TraceRecorder {
	return &TraceRecorder{
		next:  next,
		now:   time.Now,
		trace: Trace{RunID: runID, PeriodMs: periodMs},
	}
}

// WriteByte implements hw.OutputPort. The write is recorded even if the
// wrapped port fails.
func (r *TraceRecorder) WriteByte(b byte) error {
	var err error
	if r.next != nil {
		err = r.next.WriteByte(b)
	}

	r.mu.Lock()
	r.trace.Records = append(r.trace.Records, Record{
		Boundary: uint64(len(r.trace.Records)),
		Value:    b,
		At:       r.now(),
	})
	r.mu.Unlock()
	return err
}

// Trace returns a copy of the recorded trace.
func (r *TraceRecorder) Trace() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.trace
	t.Records = append([]Record(nil), r.trace.Records...)
	return t
}

// SaveTrace writes t to path as YAML (.yaml, .yml) or JSON (anything else).
func SaveTrace(path string, t Trace) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(t)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
	} else {
		data, err = json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadTrace reads a trace written by SaveTrace.
func LoadTrace(path string) (Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Trace{}, fmt.Errorf("trace %q: %w", path, os.ErrNotExist)
		}
		return Trace{}, fmt.Errorf("read %s: %w", path, err)
	}

	var t Trace
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Trace{}, fmt.Errorf("yaml unmarshal: %w", err)
		}
	} else if err := json.Unmarshal(data, &t); err != nil {
		return Trace{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return t, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
