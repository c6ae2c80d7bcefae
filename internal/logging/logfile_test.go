package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateLogFilename(t *testing.T) {
	cases := map[string]time.Time{
		"kprotect-20251213-095105-123.log": time.Date(2025, 12, 13, 9, 51, 5, 123000000, time.UTC),
		"kprotect-20250101-000000-000.log": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"kprotect-20250615-123045-456.log": time.Date(2025, 6, 15, 12, 30, 45, 456789000, time.UTC),
	}
	for want, ts := range cases {
		if got := GenerateLogFilename(ts); got != want {
			t.Errorf("GenerateLogFilename(%v) = %q, want %q", ts, got, want)
		}
	}
}

func TestNewLogFileOutputs(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		output   string
		wantPath string
		stderr   bool
	}{
		{output: "none"},
		{output: "NONE"},
		{output: "-", stderr: true},
		{output: filepath.Join(dir, "abs.log"), wantPath: filepath.Join(dir, "abs.log")},
		{output: "sub/rel.log", wantPath: filepath.Join(dir, "sub", "rel.log")},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			lf, err := NewLogFile(&LogConfig{Output: tt.output, Dir: dir})
			if err != nil {
				t.Fatalf("NewLogFile: %v", err)
			}
			defer lf.Close()
			if lf.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", lf.Path, tt.wantPath)
			}
			if tt.stderr && lf.Writer() != os.Stderr {
				t.Error("writer is not stderr")
			}
			if tt.wantPath != "" {
				if _, err := os.Stat(tt.wantPath); err != nil {
					t.Errorf("log file not created: %v", err)
				}
			}
		})
	}
}

func TestNewLogFileGeneratedName(t *testing.T) {
	dir := t.TempDir()
	lf, err := NewLogFile(&LogConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewLogFile: %v", err)
	}
	if _, err := lf.Writer().Write([]byte("{}\n")); err != nil {
		t.Fatal(err)
	}
	if err := lf.Close(); err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(lf.Path)
	if filepath.Dir(lf.Path) != dir || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		t.Errorf("unexpected path %q", lf.Path)
	}
}

func TestDirWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	if !dirWritable(dir) {
		t.Fatal("temp dir should be writable")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestCleanupOldLogFiles(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string, age time.Duration) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := time.Now().Add(-age)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
		return p
	}
	day := 24 * time.Hour
	expired := touch("kprotect-20251201-120000-000.log", 10*day)
	recent := touch("kprotect-20251210-120000-000.log", 3*day)
	foreign := touch("install.log", 10*day)

	if err := CleanupOldLogFiles(dir, 7); err != nil {
		t.Fatalf("CleanupOldLogFiles: %v", err)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Error("expired log was kept")
	}
	for _, p := range []string{recent, foreign} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s was removed", filepath.Base(p))
		}
	}

	// zero retention keeps everything
	if err := CleanupOldLogFiles(dir, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("zero retention removed a file")
	}
	if err := CleanupOldLogFiles(filepath.Join(dir, "missing"), 7); err != nil {
		t.Errorf("missing dir: %v", err)
	}
}
