package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoad_NoFile_ReturnsEmptyRecord(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"), testLogger())
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != Empty() {
		t.Errorf("expected Empty(), got %+v", rec)
	}
}

func TestLoad_CorruptFile_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := NewStore(path, testLogger())
	if _, err := s.Load(); err == nil {
		t.Fatal("expected error for corrupt record file")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())

	want := Record{Running: true, Port: 47821}
	want.BeginReload(47821)
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Running != want.Running || got.Port != want.Port || got.InReload != want.InReload {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped by Save")
	}
}

func TestSave_SetsFilePermissions0600(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())
	if err := s.Save(Record{Running: true, Port: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("mode = %04o, want 0600", mode)
	}
}

func TestSave_CreatesBackupOfPriorContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())

	if err := s.Save(Record{Running: true, Port: 1}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(Record{Running: true, Port: 2}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	bakData, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("ReadFile .bak: %v", err)
	}
	if len(bakData) == 0 {
		t.Error("expected non-empty backup file")
	}
}

func TestSave_AtomicWrite_NoTmpFileLeftBehind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())
	if err := s.Save(Record{Running: true, Port: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected .tmp file to be gone, stat err = %v", err)
	}
}

func TestClear_ResetsToEmptyRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())

	rec := Record{Running: true, Port: 9}
	rec.BeginReload(9)
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Running || got.InReload || got.Port != 0 {
		t.Errorf("expected cleared record, got %+v", got)
	}
}

func TestConcurrentSaves_DoNotCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			_ = s.Save(Record{Running: true, Port: port})
		}(i)
	}
	wg.Wait()

	if _, err := s.Load(); err != nil {
		t.Fatalf("Load after concurrent saves: %v", err)
	}
}

func TestBeginReload_SetsTransitionalFlags(t *testing.T) {
	rec := Record{Running: true}
	rec.BeginReload(8080)
	if !rec.InReload || !rec.AfterReload || !rec.Reconnecting || !rec.ShowReconnectingUI {
		t.Errorf("expected all transitional flags set, got %+v", rec)
	}
	if rec.Port != 8080 {
		t.Errorf("Port = %d, want 8080", rec.Port)
	}
}

func TestCompleteReload_ClearsTransitionalFlagsKeepsRunning(t *testing.T) {
	rec := Record{Running: true}
	rec.BeginReload(8080)
	rec.CompleteReload()
	if rec.InReload || rec.AfterReload || rec.Reconnecting || rec.ShowReconnectingUI {
		t.Errorf("expected transitional flags cleared, got %+v", rec)
	}
	if !rec.Running {
		t.Error("expected Running to remain true")
	}
	if !rec.ShowPostReloadUI {
		t.Error("expected ShowPostReloadUI to be set")
	}
}
