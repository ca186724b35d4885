package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateEnv points all config lookups at a temp directory so tests never
// read the developer's real config.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Root != DefaultRoot {
		t.Errorf("Root = %q, want %q", cfg.Root, DefaultRoot)
	}
	if cfg.MaxDirs != DefaultMaxDirs {
		t.Errorf("MaxDirs = %d, want %d", cfg.MaxDirs, DefaultMaxDirs)
	}
	if cfg.MaxBytes != DefaultMaxBytes {
		t.Errorf("MaxBytes = %q, want %q", cfg.MaxBytes, DefaultMaxBytes)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if cfg.MaxSleep != DefaultMaxSleep {
		t.Errorf("MaxSleep = %v, want %v", cfg.MaxSleep, DefaultMaxSleep)
	}
	if !cfg.Isolate {
		t.Error("Isolate should default to true")
	}
	if cfg.Probabilities.Mkfile != DefaultProbMkfile {
		t.Errorf("Probabilities.Mkfile = %v, want %v", cfg.Probabilities.Mkfile, DefaultProbMkfile)
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled should default to true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := isolateEnv(t)

	configDir := filepath.Join(dir, "churn")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	content := `root: /srv/stress/tree
max_dirs: 100
max_bytes: 1G
workers: 4
max_sleep: 250ms
probabilities:
  mkdir: 0.1
  append: 0.4
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Root != "/srv/stress/tree" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.MaxDirs != 100 {
		t.Errorf("MaxDirs = %d, want 100", cfg.MaxDirs)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.MaxSleep != 250*time.Millisecond {
		t.Errorf("MaxSleep = %v, want 250ms", cfg.MaxSleep)
	}
	if cfg.Probabilities.Mkdir != 0.1 {
		t.Errorf("Probabilities.Mkdir = %v, want 0.1", cfg.Probabilities.Mkdir)
	}
	// Unspecified probability falls back to the default.
	if cfg.Probabilities.Rmdir != DefaultProbRmdir {
		t.Errorf("Probabilities.Rmdir = %v, want default %v", cfg.Probabilities.Rmdir, DefaultProbRmdir)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CHURN_MAX_DIRS", "42")
	t.Setenv("CHURN_ROOT", "/tmp/churn/envroot")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxDirs != 42 {
		t.Errorf("MaxDirs = %d, want 42 from env", cfg.MaxDirs)
	}
	if cfg.Root != "/tmp/churn/envroot" {
		t.Errorf("Root = %q, want env value", cfg.Root)
	}
}

func TestLoadExpandsTildeRoot(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("CHURN_ROOT", "~/churn/data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := filepath.Join(dir, "churn", "data")
	if cfg.Root != want {
		t.Errorf("Root = %q, want %q", cfg.Root, want)
	}
}

func TestWriteDefault(t *testing.T) {
	dir := isolateEnv(t)

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	configPath := filepath.Join(dir, "churn", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("written config is empty")
	}

	// A second call must not clobber an existing file.
	if err := os.WriteFile(configPath, []byte("root: /custom\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault failed: %v", err)
	}
	data, err = os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("re-reading config: %v", err)
	}
	if string(data) != "root: /custom\n" {
		t.Error("WriteDefault overwrote an existing config file")
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/sub/dir")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if want := filepath.Join(home, "sub", "dir"); got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}

	got, err = ExpandPath("/abs/path")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != "/abs/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}
