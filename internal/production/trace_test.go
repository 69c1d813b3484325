// Tests for TraceRecorder and trace files.
package production

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comalice/synchsm/internal/hw"
)

type failingPort struct{ err error }

func (p failingPort) WriteByte(byte) error { return p.err }

func TestTraceRecorder_Forwards(t *testing.T) {
	mem := &hw.MemoryPort{}
	rec := NewTraceRecorder(mem, "run-1", 100)

	for _, b := range []byte{0x00, 0x01, 0x02} {
		if err := rec.WriteByte(b); err != nil {
			t.Fatal(err)
		}
	}

	if !bytes.Equal(mem.Values(), []byte{0x00, 0x01, 0x02}) {
		t.Errorf("forwarded % X", mem.Values())
	}
	tr := rec.Trace()
	if tr.RunID != "run-1" || tr.PeriodMs != 100 {
		t.Errorf("header = %q/%d", tr.RunID, tr.PeriodMs)
	}
	for i, r := range tr.Records {
		if r.Boundary != uint64(i) {
			t.Errorf("record %d has boundary %d", i, r.Boundary)
		}
	}
}

func TestTraceRecorder_RecordsFailedWrites(t *testing.T) {
	boom := errors.New("bus fault")
	rec := NewTraceRecorder(failingPort{boom}, "r", 1)
	if err := rec.WriteByte(0x04); !errors.Is(err, boom) {
		t.Fatalf("WriteByte = %v, want %v", err, boom)
	}
	if got := rec.Trace().Values(); !bytes.Equal(got, []byte{0x04}) {
		t.Fatalf("recorded % X", got)
	}
}

func TestTraceRecorder_TraceIsCopy(t *testing.T) {
	rec := NewTraceRecorder(nil, "r", 1)
	_ = rec.WriteByte(0x01)
	tr := rec.Trace()
	tr.Records[0].Value = 0xFF
	if rec.Trace().Records[0].Value != 0x01 {
		t.Fatal("Trace() exposed internal storage")
	}
}

func TestSaveLoadTrace(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := Trace{
		RunID:    "run-7",
		PeriodMs: 100,
		Records: []Record{
			{Boundary: 0, Value: 0x00, At: at},
			{Boundary: 1, Value: 0x01, At: at.Add(100 * time.Millisecond)},
			{Boundary: 2, Value: 0x02, At: at.Add(200 * time.Millisecond)},
		},
	}

	for _, name := range []string{"trace.json", "trace.yaml", "nested/dir/trace.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveTrace(path, want); err != nil {
				t.Fatal(err)
			}
			got, err := LoadTrace(path)
			if err != nil {
				t.Fatal(err)
			}
			if got.RunID != want.RunID || got.PeriodMs != want.PeriodMs {
				t.Errorf("header = %q/%d", got.RunID, got.PeriodMs)
			}
			if !bytes.Equal(got.Values(), want.Values()) {
				t.Errorf("values = % X", got.Values())
			}
			if !got.Records[2].At.Equal(want.Records[2].At) {
				t.Errorf("timestamp = %v", got.Records[2].At)
			}
		})
	}
}

func TestLoadTrace_Missing(t *testing.T) {
	_, err := LoadTrace(filepath.Join(t.TempDir(), "none.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadTrace = %v, want ErrNotExist", err)
	}
}

func TestLoadTrace_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrace(path); err == nil {
		t.Fatal("expected error for corrupt trace")
	}
}
