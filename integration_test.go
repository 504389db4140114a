//go:build integration
// +build integration

package mortem

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/victoralfred/mortem/config"
	"github.com/victoralfred/mortem/guard"
	"github.com/victoralfred/mortem/hooks"
	"github.com/victoralfred/mortem/resilience"
)

// writeBinary creates a fake executable in dir and returns its path.
func writeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("Failed to write binary: %v", err)
	}
	return path
}

// TestIntegration_CompleteWorkflow tests the complete end-to-end workflow.
func TestIntegration_CompleteWorkflow(t *testing.T) {
	path := writeBinary(t, t.TempDir(), "victim")

	g, err := NewBuilder().
		WithPolicy(PolicySoft).
		WithPath(path).
		Build()
	if err != nil {
		t.Fatalf("Failed to build guard: %v", err)
	}

	if !g.Armed() {
		t.Error("Expected guard to be armed after build")
	}
	if g.Path() != path {
		t.Errorf("Expected guarded path %q, got %q", path, g.Path())
	}

	func() {
		defer g.Release()
		// Guarded scope: the file must still exist while we work.
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("File vanished inside the guarded scope: %v", err)
		}
	}()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file deleted after scope exit, stat err: %v", err)
	}
	if g.Armed() {
		t.Error("Expected guard disarmed after release")
	}
}

// TestIntegration_Defuse tests that a defused guard keeps the binary.
func TestIntegration_Defuse(t *testing.T) {
	path := writeBinary(t, t.TempDir(), "survivor")

	g, err := NewBuilder().WithPolicy(PolicyHard).WithPath(path).Build()
	if err != nil {
		t.Fatalf("Failed to build guard: %v", err)
	}

	func() {
		defer g.Release()
		g.Defuse()
		g.Defuse() // idempotent
	}()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected defused guard to keep the file: %v", err)
	}
}

// TestIntegration_HardRetries tests that a hard guard survives transient
// failures and eventually deletes the file.
func TestIntegration_HardRetries(t *testing.T) {
	dir := t.TempDir()
	path := writeBinary(t, dir, "stubborn")

	// Make the directory read-only so deletion fails, then restore it
	// from another goroutine while the hard guard is retrying.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("Failed to chmod dir: %v", err)
	}
	if os.Geteuid() == 0 {
		t.Skip("Running as root; directory permissions are not enforced")
	}

	g, err := NewBuilder().
		WithPolicy(PolicyHard).
		WithPath(path).
		WithBackoff(resilience.NewConstantBackoff(5*time.Millisecond, 0)).
		WithThrottle(resilience.Unlimited()).
		Build()
	if err != nil {
		_ = os.Chmod(dir, 0o755)
		t.Fatalf("Failed to build guard: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.Chmod(dir, 0o755)
	}()

	done := make(chan struct{})
	go func() {
		g.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = os.Chmod(dir, 0o755)
		t.Fatal("Hard release did not finish after permissions were restored")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file deleted, stat err: %v", err)
	}
}

// TestIntegration_FromConfig tests guard construction from a YAML file,
// including audit log output.
func TestIntegration_FromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeBinary(t, dir, "configured")
	auditDir := t.TempDir()

	cfgDir := t.TempDir()
	cfgYAML := `
guard:
  policy: hard
  path: ` + path + `
backoff:
  initial_interval: 1ms
  max_interval: 10ms
audit:
  enabled: true
  log_level: all
  base_path: ` + auditDir + `
  file_path: audit.log
`
	if err := os.WriteFile(filepath.Join(cfgDir, "mortem.yaml"), []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loader, err := LoadConfig(cfgDir, "mortem.yaml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	g.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file deleted, stat err: %v", err)
	}

	f, err := os.Open(filepath.Join(auditDir, "audit.log"))
	if err != nil {
		t.Fatalf("Expected audit log file: %v", err)
	}
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("Audit line is not valid JSON: %v", err)
		}
		types = append(types, event["type"].(string))
	}

	if len(types) < 2 {
		t.Fatalf("Expected armed and removed audit events, got %v", types)
	}
	if types[0] != "guard_armed" {
		t.Errorf("Expected first event guard_armed, got %q", types[0])
	}
	if types[len(types)-1] != "removed" {
		t.Errorf("Expected last event removed, got %q", types[len(types)-1])
	}
}

// TestIntegration_Hooks tests lifecycle hook dispatch through a guard.
func TestIntegration_Hooks(t *testing.T) {
	path := writeBinary(t, t.TempDir(), "observed")

	var mu sync.Mutex
	var lines []string
	registry := hooks.NewRegistry()
	registry.Register(hooks.NewLoggingHook(func(format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, format)
	}))

	g, err := NewBuilder().
		WithPolicy(PolicySoft).
		WithPath(path).
		WithObserver(registry).
		Build()
	if err != nil {
		t.Fatalf("Failed to build guard: %v", err)
	}
	g.Release()

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 {
		t.Fatalf("Expected armed and attempt log lines, got %d", len(lines))
	}
}

// TestIntegration_ConcurrentGuards tests many guards releasing at once.
func TestIntegration_ConcurrentGuards(t *testing.T) {
	dir := t.TempDir()

	const n = 16
	guards := make([]*Guard, n)
	paths := make([]string, n)
	for i := range guards {
		paths[i] = writeBinary(t, dir, "bin-"+string(rune('a'+i)))
		g, err := NewBuilder().WithPolicy(PolicySoft).WithPath(paths[i]).Build()
		if err != nil {
			t.Fatalf("Failed to build guard %d: %v", i, err)
		}
		guards[i] = g
	}

	var wg sync.WaitGroup
	for _, g := range guards {
		wg.Add(1)
		go func(g *Guard) {
			defer wg.Done()
			g.Release()
		}(g)
	}
	wg.Wait()

	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Expected %s deleted, stat err: %v", p, err)
		}
	}
}

// TestIntegration_ResolutionFailure tests the error path for a guarded
// path that does not exist.
func TestIntegration_ResolutionFailure(t *testing.T) {
	_, err := NewBuilder().
		WithPolicy(PolicySoft).
		WithPath(filepath.Join(t.TempDir(), "no-such-binary")).
		Build()
	if err == nil {
		t.Fatal("Expected resolution error for missing path")
	}
	if guard.GetErrorCode(err) != guard.ErrCodeResolution {
		t.Errorf("Expected resolution error code, got %q", guard.GetErrorCode(err))
	}
}

// TestIntegration_SelfResolution tests guarding the real test binary
// path by default, defused so the test binary survives.
func TestIntegration_SelfResolution(t *testing.T) {
	g, err := Soft()
	if err != nil {
		t.Fatalf("Soft failed: %v", err)
	}
	defer g.Release()
	g.Defuse()

	self, err := ExecutablePath()
	if err != nil {
		t.Fatalf("ExecutablePath failed: %v", err)
	}
	if g.Path() != self {
		t.Errorf("Expected guard over %q, got %q", self, g.Path())
	}
	if !filepath.IsAbs(g.Path()) {
		t.Errorf("Expected absolute guarded path, got %q", g.Path())
	}
}

// TestIntegration_ConfigPresets tests the shipped preset configurations
// end to end against real files.
func TestIntegration_ConfigPresets(t *testing.T) {
	path := writeBinary(t, t.TempDir(), "preset")

	cfg := config.StrictConfig()
	cfg.Guard.Path = path

	g, err := FromConfig(&cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	g.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file deleted, stat err: %v", err)
	}
}
