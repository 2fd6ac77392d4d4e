package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gradeflow/api/services/runner"
)

// SocketType distinguishes data-carrying sockets from control-flow sockets.
type SocketType string

const (
	SocketData    SocketType = "DATA"
	SocketControl SocketType = "CONTROL"
)

// SocketDir is which side of a step a socket sits on. It is derived from
// whether the socket appears in the step's input or output list, not from
// the wire format.
type SocketDir string

const (
	SocketIn  SocketDir = "IN"
	SocketOut SocketDir = "OUT"
)

// ArgMetadata marks a function-call input socket as a positional argument.
type ArgMetadata struct {
	Position int     `json:"position"`
	ArgName  *string `json:"arg_name,omitempty"`
}

// Socket is a named port on a step. Data sockets may carry an embedded
// literal (a primitive or a File); the remaining fields only apply to
// specific step variants and are ignored elsewhere.
type Socket struct {
	ID    string     `json:"id"`
	Type  SocketType `json:"type,omitempty"`
	Label string     `json:"label,omitempty"`
	// Data is nil, a primitive (string, bool, int64, float64) or a
	// runner.File.
	Data any `json:"data,omitempty"`

	// Output-step attributes, forwarded to the verdict consumer.
	Comparison *Comparison `json:"comparison,omitempty"`
	Public     *bool       `json:"public,omitempty"`

	// Function-call attributes.
	ImportAsModule bool         `json:"import_as_module,omitempty"`
	ArgMetadata    *ArgMetadata `json:"arg_metadata,omitempty"`
	KwargName      *string      `json:"kwarg_name,omitempty"`
	HandlesError   bool         `json:"handles_error,omitempty"`

	dir SocketDir
}

// Dir reports which side of its step the socket is on.
func (s *Socket) Dir() SocketDir {
	return s.dir
}

// Alias is the stable human-oriented handle of a socket within its step,
// e.g. "CONTROL.IN.PREDICATE". Steps with named subgraph sockets are looked
// up by alias.
func (s *Socket) Alias() string {
	return strings.Join([]string{string(s.socketType()), string(s.dir), s.Label}, ".")
}

// IsPublic reports the visibility flag, defaulting to public.
func (s *Socket) IsPublic() bool {
	return s.Public == nil || *s.Public
}

// File returns the socket's embedded literal as a file, if it is one.
func (s *Socket) File() (runner.File, bool) {
	f, ok := s.Data.(runner.File)
	return f, ok
}

func (s *Socket) socketType() SocketType {
	if s.Type == "" {
		return SocketData
	}
	return s.Type
}

func (s *Socket) isData() bool {
	return s.socketType() == SocketData
}

// UnmarshalJSON decodes a socket strictly, rejecting unknown fields, and
// normalises the embedded literal: JSON objects become runner.File values,
// integral numbers become int64 and other numbers float64.
func (s *Socket) UnmarshalJSON(data []byte) error {
	type socketWire struct {
		ID             string          `json:"id"`
		Type           SocketType      `json:"type"`
		Label          string          `json:"label"`
		Data           json.RawMessage `json:"data"`
		Comparison     *Comparison     `json:"comparison"`
		Public         *bool           `json:"public"`
		ImportAsModule bool            `json:"import_as_module"`
		ArgMetadata    *ArgMetadata    `json:"arg_metadata"`
		KwargName      *string         `json:"kwarg_name"`
		HandlesError   bool            `json:"handles_error"`
	}

	var wire socketWire
	if err := strictDecode(data, &wire); err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	literal, err := ParseLiteral(wire.Data)
	if err != nil {
		return fmt.Errorf("socket %q: %w", wire.ID, err)
	}

	*s = Socket{
		ID:             wire.ID,
		Type:           wire.Type,
		Label:          wire.Label,
		Data:           literal,
		Comparison:     wire.Comparison,
		Public:         wire.Public,
		ImportAsModule: wire.ImportAsModule,
		ArgMetadata:    wire.ArgMetadata,
		KwargName:      wire.KwargName,
		HandlesError:   wire.HandlesError,
	}
	return nil
}

// ParseLiteral interprets a raw JSON value as a socket literal: nil, a
// primitive (string, bool, int64, float64) or a runner.File.
func ParseLiteral(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var f runner.File
		if err := strictDecode(trimmed, &f); err != nil {
			return nil, fmt.Errorf("invalid file literal: %w", err)
		}
		return f, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid literal: %w", err)
	}

	switch val := v.(type) {
	case string, bool:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid numeric literal %q", val.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported literal %s", trimmed)
	}
}

// isPrimitive reports whether v is a primitive socket literal (as opposed to
// a file or nil).
func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, int64, float64:
		return true
	default:
		return false
	}
}

// strictDecode unmarshals JSON rejecting unknown fields.
func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
