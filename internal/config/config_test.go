package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/smazurov/warden/internal/process"
)

// testOptions mirrors the shape of the Options struct in main.go.
type testOptions struct {
	Config string `help:"Config file path"`

	Port             string   `toml:"server.port" env:"PORT"`
	ChildCommand     string   `toml:"child.command" env:"CHILD_COMMAND"`
	ChildArgs        string   `toml:"child.args" env:"CHILD_ARGS"`
	SubscriberBuffer int      `toml:"broadcast.subscriber_buffer" env:"SUBSCRIBER_BUFFER"`
	AuthEnabled      bool     `toml:"auth.enabled" env:"AUTH_ENABLED"`
	Origins          []string `toml:"server.origins" env:"ORIGINS"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleConfig = `
[server]
port = ":9090"
origins = ["http://a", "http://b"]

[child]
command = "java"
args = "-Xmx2G -jar server.jar nogui"
working_dir = "/srv/mc"

[broadcast]
subscriber_buffer = 64

[auth]
enabled = true

[logging]
level = "debug"
format = "json"
process = "warn"
api = "error"
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := testOptions{
		Config:           opts.Config,
		Port:             ":9090",
		ChildCommand:     "java",
		ChildArgs:        "-Xmx2G -jar server.jar nogui",
		SubscriberBuffer: 64,
		AuthEnabled:      true,
		Origins:          []string{"http://a", "http://b"},
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("WARDEN_PORT", ":7000")
	t.Setenv("WARDEN_CHILD_COMMAND", "bedrock_server")
	t.Setenv("WARDEN_SUBSCRIBER_BUFFER", "8")
	t.Setenv("WARDEN_AUTH_ENABLED", "true")
	t.Setenv("WARDEN_ORIGINS", " x , y ")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7000" || opts.ChildCommand != "bedrock_server" || opts.SubscriberBuffer != 8 || !opts.AuthEnabled {
		t.Errorf("got %+v", *opts)
	}
	if !reflect.DeepEqual(opts.Origins, []string{"x", "y"}) {
		t.Errorf("Origins = %q", opts.Origins)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("WARDEN_CHILD_COMMAND", "from-env")
	t.Setenv("WARDEN_PORT", ":1111")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("port", ":8080", "")
	if err := cmd.Flags().Set("port", ":2222"); err != nil {
		t.Fatal(err)
	}

	opts := &testOptions{Config: writeConfig(t, sampleConfig), Port: ":2222"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":2222" {
		t.Errorf("Port = %q, want CLI value", opts.Port)
	}
	if opts.ChildCommand != "from-env" {
		t.Errorf("ChildCommand = %q, want env value", opts.ChildCommand)
	}
	if opts.ChildArgs != "-Xmx2G -jar server.jar nogui" {
		t.Errorf("ChildArgs = %q, want file value", opts.ChildArgs)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "nope.toml"), Port: ":8080"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if opts.Port != ":8080" {
		t.Errorf("default overwritten: %q", opts.Port)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, "[server\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"child": map[string]any{
			"command": "java",
			"env":     map[string]any{"home": "/srv"},
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"child.command", "java"},
		{"child.env.home", "/srv"},
		{"missing", nil},
		{"child.missing", nil},
		{"root.deeper", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValueIgnoresMismatchedTypes(t *testing.T) {
	var s struct {
		Port  string
		Count int
	}
	v := reflect.ValueOf(&s).Elem()

	setFieldValue(v.FieldByName("Port"), int64(8080))
	setFieldValue(v.FieldByName("Count"), "ten")
	setFieldValueFromString(v.FieldByName("Count"), "ten")

	if s.Port != "" || s.Count != 0 {
		t.Errorf("mismatched values were applied: %+v", s)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":             "port",
		"ChildWorkingDir":  "child-working-dir",
		"SubscriberBuffer": "subscriber-buffer",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	cfg := LoadLoggingConfig(writeConfig(t, sampleConfig))

	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("global = %s/%s", cfg.Level, cfg.Format)
	}
	want := map[string]string{"process": "warn", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("modules = %v, want %v", cfg.Modules, want)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("")
	if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadChildConfig(t *testing.T) {
	cmd, err := LoadChildConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadChildConfig: %v", err)
	}
	want := process.Command{
		Name: "java",
		Args: []string{"-Xmx2G", "-jar", "server.jar", "nogui"},
		Dir:  "/srv/mc",
	}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}
}

func TestLoadChildConfigErrors(t *testing.T) {
	if _, err := LoadChildConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadChildConfig(writeConfig(t, "[child]\ncommand = \"java\"\nargs = \"'open\"\n")); err == nil {
		t.Error("expected error for unclosed quote")
	}
	if _, err := LoadChildConfig(writeConfig(t, "[server]\nport = \":1\"\n")); err == nil {
		t.Error("expected error for missing [child] table")
	}
}

func TestMarshalChildRoundTrip(t *testing.T) {
	orig := process.Command{Name: "java", Args: []string{"-jar", "my server.jar", `say "hi"`}, Dir: "/srv"}

	data, err := MarshalChild(orig)
	if err != nil {
		t.Fatalf("MarshalChild: %v", err)
	}
	if !strings.Contains(string(data), "[child]") {
		t.Errorf("missing [child] table:\n%s", data)
	}

	got, err := LoadChildConfig(writeConfig(t, string(data)))
	if err != nil {
		t.Fatalf("LoadChildConfig: %v", err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip = %+v, want %+v", got, orig)
	}
}
