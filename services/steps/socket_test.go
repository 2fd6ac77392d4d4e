package steps_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gradeflow/api/services/runner"
	"gradeflow/api/services/steps"
)

func TestParseLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr string
	}{
		{name: "absent", raw: "", want: nil},
		{name: "null", raw: "null", want: nil},
		{name: "string", raw: `"hello"`, want: "hello"},
		{name: "bool", raw: "true", want: true},
		{name: "int", raw: "42", want: int64(42)},
		{name: "float", raw: "2.5", want: 2.5},
		{
			name: "file",
			raw:  `{"name":"sol.py","content":"def f(): pass","trusted":true}`,
			want: runner.File{Name: "sol.py", Content: "def f(): pass", Trusted: true},
		},
		{name: "array rejected", raw: "[1,2]", wantErr: "unsupported literal"},
		{name: "file with unknown field", raw: `{"name":"a","content":"","mode":"x"}`, wantErr: "invalid file literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := steps.ParseLiteral(json.RawMessage(tt.raw))

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestSocketStrictDecoding(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 1, "type": "INPUT_STEP", "inputs": [],
		"outputs": [{"id": "a", "data": 1, "colour": "red"}]
	}`
	if _, err := steps.DecodeStep(json.RawMessage(raw)); err == nil {
		t.Fatal("expected unknown socket field to be rejected")
	}
}

func TestSocketAliasAndDir(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 7, "type": "LOOP_STEP",
		"inputs": [{"id": "p", "type": "CONTROL", "label": "PREDICATE"}],
		"outputs": [{"id": "b", "type": "CONTROL", "label": "BODY"}]
	}`
	step, err := steps.DecodeStep(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := step.Inputs()[0]
	if in.Dir() != steps.SocketIn {
		t.Errorf("expected input socket dir IN, got %s", in.Dir())
	}
	if in.Alias() != "CONTROL.IN.PREDICATE" {
		t.Errorf("unexpected alias %q", in.Alias())
	}
	out := step.Outputs()[0]
	if out.Alias() != "CONTROL.OUT.BODY" {
		t.Errorf("unexpected alias %q", out.Alias())
	}
}

func TestSocketDefaultsToPublicDataSocket(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 3, "type": "OUTPUT_STEP",
		"inputs": [{"id": "o", "comparison": {"operator": "=", "value": 5}}],
		"outputs": []
	}`
	step, err := steps.DecodeStep(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	socket := step.Inputs()[0]
	if !socket.IsPublic() {
		t.Error("expected sockets to default to public")
	}
	if socket.Alias() != "DATA.IN." {
		t.Errorf("expected data socket default type, got alias %q", socket.Alias())
	}
	if socket.Comparison == nil || socket.Comparison.Operator != steps.OpEqual {
		t.Errorf("comparison not preserved: %+v", socket.Comparison)
	}
}
