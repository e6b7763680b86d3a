package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

func TestRecordWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 8, 1)
	for _, id := range []string{"run-1", "run-2"} {
		if err := w.Record(types.RunReport{RunID: id, WindowID: 3, TabCount: 2}); err != nil {
			t.Fatalf("Record(%s) error = %v", id, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(Path(dir, time.Now()))
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r types.RunReport
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q is not a report: %v", sc.Text(), err)
		}
		ids = append(ids, r.RunID)
	}
	if len(ids) != 2 || ids[0] != "run-1" || ids[1] != "run-2" {
		t.Fatalf("run ids = %v; want [run-1 run-2]", ids)
	}
}

func TestRecordAfterClose(t *testing.T) {
	w := New(t.TempDir(), 1, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Record(types.RunReport{RunID: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Record() error = %v; want ErrClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
