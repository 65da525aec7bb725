package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/warden/internal/logging"
	"github.com/smazurov/warden/internal/process"
)

// EnvPrefix is prepended to every `env` tag when reading overrides.
const EnvPrefix = "WARDEN_"

// LoadConfig fills opts with precedence: CLI args > env vars > config file.
// opts must be a pointer to a flat struct whose fields carry `toml:"section.key"`
// and `env:"KEY"` tags; a string field named Config holds the file path.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	path := ""
	if field := v.FieldByName("Config"); field.IsValid() {
		path = field.String()
	}
	return load(v, path, changedFlags(cmd))
}

// ReloadOptions returns a watcher loader that re-reads path into a copy of
// base with the same precedence as LoadConfig: flags set on cmd keep their
// values and env vars still override the file. base is never modified.
func ReloadOptions[T any](base *T, cmd *cobra.Command) func(path string) (*T, error) {
	changed := changedFlags(cmd)
	return func(path string) (*T, error) {
		next := *base
		if err := load(reflect.ValueOf(&next).Elem(), path, changed); err != nil {
			return nil, err
		}
		return &next, nil
	}
}

func load(v reflect.Value, path string, changed map[string]bool) error {
	if path != "" {
		if err := applyFile(v, path, changed); err != nil {
			return err
		}
	}
	applyEnv(v, changed)
	return nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// applyFile sets tagged fields from a TOML file. A missing file is not an error.
func applyFile(v reflect.Value, path string, changed map[string]bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if changed[fieldNameToFlag(sf.Name)] {
			continue
		}
		if tomlPath := sf.Tag.Get("toml"); tomlPath != "" {
			if value := getNestedValue(doc, tomlPath); value != nil {
				setFieldValue(v.Field(i), value)
			}
		}
	}
	return nil
}

func applyEnv(v reflect.Value, changed map[string]bool) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if changed[fieldNameToFlag(sf.Name)] {
			continue
		}
		if envKey := sf.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				setFieldValueFromString(v.Field(i), envValue)
			}
		}
	}
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "ChildWorkingDir" -> "child-working-dir", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		slice := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, strOk := item.(string); strOk {
				slice = append(slice, s)
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
}

// setFieldValueFromString sets a field from an env var value.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		// Comma-separated
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoadLoggingConfig reads the [logging] table. level and format are global;
// every other key is a per-module level. Returns defaults if the file is
// missing or unparsable.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}
	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}

// ChildConfig is the [child] table: what the supervisor spawns.
type ChildConfig struct {
	Command    string `toml:"command"`
	Args       string `toml:"args,omitempty"`
	WorkingDir string `toml:"working_dir,omitempty"`
}

// Resolve parses Args with shell-like quoting into a process.Command.
func (c ChildConfig) Resolve() (process.Command, error) {
	return process.NewCommand(c.Command, c.Args, c.WorkingDir)
}

// LoadChildConfig reads only the [child] table from path and resolves it,
// ignoring flags and env vars.
func LoadChildConfig(path string) (process.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return process.Command{}, err
	}
	var raw struct {
		Child ChildConfig `toml:"child"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return process.Command{}, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	cmd, err := raw.Child.Resolve()
	if err != nil {
		return process.Command{}, fmt.Errorf("invalid [child] config: %w", err)
	}
	return cmd, nil
}

// MarshalChild renders a resolved command back as a [child] table.
func MarshalChild(cmd process.Command) ([]byte, error) {
	doc := struct {
		Child ChildConfig `toml:"child"`
	}{
		Child: ChildConfig{
			Command:    cmd.Name,
			Args:       cmd.ArgString(),
			WorkingDir: cmd.Dir,
		},
	}
	return toml.Marshal(doc)
}
