package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/warden/internal/process"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeChild(t *testing.T, path, command, args string) {
	t.Helper()
	content := fmt.Sprintf("[child]\ncommand = %q\nargs = %q\n", command, args)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[process.Command]) *Watcher[process.Command] {
	t.Helper()
	opts = append([]WatcherOption[process.Command]{WithDebounce[process.Command](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadChildConfig, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Let the watch loop settle before the first write.
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestConfigWatcher_ReloadsChild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "-jar server.jar")

	received := make(chan process.Command, 1)
	w := startWatcher(t, path)
	w.OnReload(func(cmd process.Command) { received <- cmd })

	writeChild(t, path, "java", "-Xmx4G -jar 'new server.jar' nogui")

	select {
	case cmd := <-received:
		if cmd.Name != "java" || len(cmd.Args) != 4 || cmd.Args[2] != "new server.jar" {
			t.Errorf("got %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_RenameOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.toml")
	writeChild(t, path, "java", "")

	received := make(chan process.Command, 1)
	w := startWatcher(t, path)
	w.OnReload(func(cmd process.Command) { received <- cmd })

	tmp := filepath.Join(dir, ".warden.toml.swp")
	writeChild(t, tmp, "bedrock_server", "")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cmd := <-received:
		if cmd.Name != "bedrock_server" {
			t.Errorf("command = %q, want bedrock_server", cmd.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.toml")
	writeChild(t, path, "java", "")

	var count atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(process.Command) { count.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "")

	var mu sync.Mutex
	var got []process.Command
	w := startWatcher(t, path)
	for range 3 {
		w.OnReload(func(cmd process.Command) {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
		})
	}

	writeChild(t, path, "sh", "-c 'echo hi'")
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 handler calls, got %d", len(got))
	}
	for i, cmd := range got {
		if cmd.Name != "sh" || len(cmd.Args) != 2 || cmd.Args[1] != "echo hi" {
			t.Errorf("handler %d got %+v", i, cmd)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "")

	var count1, count2 atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(process.Command) { count1.Add(1) })
	unsub2 := w.OnReload(func(process.Command) { count2.Add(1) })

	writeChild(t, path, "java", "-a")
	time.Sleep(300 * time.Millisecond)

	unsub2()

	writeChild(t, path, "java", "-b")
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "")

	errs := make(chan error, 1)
	configs := make(chan process.Command, 1)
	w := startWatcher(t, path, WithErrorHandler[process.Command](func(err error) { errs <- err }))
	w.OnReload(func(cmd process.Command) { configs <- cmd })

	// Parses as TOML but the command is empty.
	if err := os.WriteFile(path, []byte("[child]\ncommand = \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-configs:
		t.Fatal("reload handler should not run on an invalid config")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "v0", "")

	var count atomic.Int32
	var last atomic.Value
	w := startWatcher(t, path, WithDebounce[process.Command](200*time.Millisecond))
	w.OnReload(func(cmd process.Command) {
		count.Add(1)
		last.Store(cmd.Name)
	})

	for i := 1; i <= 5; i++ {
		writeChild(t, path, fmt.Sprintf("v%d", i), "")
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got, _ := last.Load().(string); got != "v5" {
		t.Errorf("expected final command v5, got %q", got)
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "")

	var count atomic.Int32
	w := NewConfigWatcher(path, LoadChildConfig, newTestLogger(), WithDebounce[process.Command](50*time.Millisecond))
	w.OnReload(func(process.Command) { count.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	writeChild(t, path, "java", "-late")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestConfigWatcher_StartMissingDir(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing", "warden.toml"), LoadChildConfig, newTestLogger())
	if err := w.Start(); err == nil {
		_ = w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
}

func TestConfigWatcher_ReloadKeepsFlagAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	writeChild(t, path, "java", "-jar old.jar")
	t.Setenv("WARDEN_CHILD_ARGS", "-jar new.jar")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("child-command", "", "")
	if err := cmd.Flags().Set("child-command", "bedrock_server"); err != nil {
		t.Fatal(err)
	}

	base := &testOptions{Config: path, ChildCommand: "bedrock_server"}
	if err := LoadConfig(base, cmd); err != nil {
		t.Fatal(err)
	}
	if base.ChildArgs != "-jar new.jar" {
		t.Fatalf("startup args = %q", base.ChildArgs)
	}

	received := make(chan *testOptions, 1)
	w := NewConfigWatcher(path, ReloadOptions(base, cmd), newTestLogger(), WithDebounce[*testOptions](50*time.Millisecond))
	w.OnReload(func(next *testOptions) { received <- next })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("[child]\ncommand = \"java\"\nargs = \"-jar old.jar\"\n\n[server]\nport = \":9999\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case next := <-received:
		if next.ChildCommand != "bedrock_server" {
			t.Errorf("command = %q, flag should win over the file", next.ChildCommand)
		}
		if next.ChildArgs != "-jar new.jar" {
			t.Errorf("args = %q, env should win over the file", next.ChildArgs)
		}
		if next.Port != ":9999" {
			t.Errorf("port = %q, file edit not applied", next.Port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}

	if base.Port == ":9999" {
		t.Error("reload modified the base options")
	}
}
