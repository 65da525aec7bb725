package process

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"simple", "-Xmx2G -jar server.jar nogui", []string{"-Xmx2G", "-jar", "server.jar", "nogui"}, false},
		{"double quotes", `-c "echo hi; sleep 1"`, []string{"-c", "echo hi; sleep 1"}, false},
		{"single quotes", `-c 'say "hello"'`, []string{"-c", `say "hello"`}, false},
		{"escaped space", `hello\ world`, []string{"hello world"}, false},
		{"empty quoted arg", `a "" b`, []string{"a", "", "b"}, false},
		{"extra whitespace", "  a \t b  ", []string{"a", "b"}, false},
		{"unclosed", `"oops`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewCommand(t *testing.T) {
	cmd, err := NewCommand(" java ", "-jar 'my server.jar'", "/srv/mc")
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	if cmd.Name != "java" || cmd.Dir != "/srv/mc" {
		t.Errorf("got %+v", cmd)
	}
	if want := []string{"-jar", "my server.jar"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("args = %q, want %q", cmd.Args, want)
	}
	if got, want := cmd.String(), `java -jar "my server.jar"`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewCommandErrors(t *testing.T) {
	if _, err := NewCommand("", "", ""); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommand("sh", `-c "unterminated`, ""); err == nil {
		t.Error("expected error for unclosed quote")
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	orig := Command{Name: "sh", Args: []string{"-c", `echo "a b" \ ok`, ""}}
	args, err := parseCommand(orig.String())
	if err != nil {
		t.Fatalf("parseCommand: %v", err)
	}
	if want := append([]string{orig.Name}, orig.Args...); !reflect.DeepEqual(args, want) {
		t.Errorf("round trip = %q, want %q", args, want)
	}
}
