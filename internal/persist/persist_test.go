package persist_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"pt/internal/persist"
	"pt/internal/task"
)

func openTemp(t *testing.T) *persist.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".pt", "tasks.json")
	f, err := persist.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpenCreatesFileAndDir(t *testing.T) {
	f := openTemp(t)
	if _, err := os.Stat(f.Path()); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	f := openTemp(t)
	st, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("store len = %d, want 0", st.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := openTemp(t)
	st, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tk := st.Add("write report")
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tk.StartPomodoro(start)
	if err := f.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("len = %d, want 1", got.Len())
	}
	rt, err := got.Find(1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rt.Description != "write report" || !rt.PomodoroActive() {
		t.Fatalf("round trip task: %+v", rt)
	}
	if !rt.Pomodoros[0].Start.Equal(start) {
		t.Fatalf("start = %v, want %v", rt.Pomodoros[0].Start, start)
	}
}

func TestSaveShrinksFile(t *testing.T) {
	// a rewrite smaller than the previous contents must not leave stale bytes
	f := openTemp(t)
	st, _ := f.Load()
	for i := 0; i < 20; i++ {
		st.Add(strings.Repeat("long description ", 10))
	}
	if err := f.Save(st); err != nil {
		t.Fatalf("save big: %v", err)
	}
	small := task.NewStore()
	small.Add("tiny")
	if err := f.Save(small); err != nil {
		t.Fatalf("save small: %v", err)
	}
	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("file not valid json after shrink: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("got %d tasks, want 1", len(raw))
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := persist.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	in := `[{"id":1,"description":"a","done":false,"archived":false,"pomodoros":[]},
	        {"id":1,"description":"b","done":false,"archived":false,"pomodoros":[]}]`
	if err := os.WriteFile(path, []byte(in), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := persist.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.Load(); err == nil {
		t.Fatalf("expected check error")
	}
}

func TestLoadRejectsMalformedShapes(t *testing.T) {
	cases := []struct{ name, in string }{
		{"null list", `null`},
		{"null entry", `[null]`},
		{"missing start time", `[{"id":1,"description":"a","done":false,"archived":false,"pomodoros":[{"end_time":null}]}]`},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "tasks.json")
		if err := os.WriteFile(path, []byte(tc.in), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := persist.Open(path)
		if err != nil {
			t.Fatalf("%s: open: %v", tc.name, err)
		}
		if _, err := f.Load(); err == nil {
			t.Fatalf("%s: expected load error", tc.name)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("%s: close: %v", tc.name, err)
		}
	}
}

func TestExclusiveLock(t *testing.T) {
	f := openTemp(t)
	other := flock.New(f.Path())
	ok, err := other.TryLock()
	if err != nil {
		t.Fatalf("trylock: %v", err)
	}
	if ok {
		other.Unlock()
		t.Fatalf("second lock acquired while store open")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ok, err = other.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock after close: ok=%v err=%v", ok, err)
	}
	other.Unlock()
}

func TestCloseIdempotent(t *testing.T) {
	f := openTemp(t)
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
