package pycode

import (
	"strings"
	"testing"
)

func TestReprLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hello", `"hello"`},
		{"string with quotes", `say "hi"`, `"say \"hi\""`},
		{"true", true, "True"},
		{"false", false, "False"},
		{"int", int64(42), "42"},
		{"negative int", int64(-7), "-7"},
		{"float", 2.5, "2.5"},
		{"whole float", 3.0, "3.0"},
		{"nil", nil, "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ReprLiteral(tt.value); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestProgramSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prog Program
		want string
	}{
		{
			name: "assignment and call",
			prog: Program{Body: []Stmt{
				Assign{Target: Name{Value: "x"}, Value: Literal{Value: int64(1)}},
				ExprStmt{X: Call{
					Func: Name{Value: "print"},
					Args: []Expr{Name{Value: "x"}},
				}},
			}},
			want: "x = 1\nprint(x)\n",
		},
		{
			name: "tuple unpacking with kwargs",
			prog: Program{Body: []Stmt{
				Assign{
					Target: Tuple{Elems: []Expr{Name{Value: "value"}, Name{Value: "err"}}},
					Value: Call{
						Func:   Name{Value: "f"},
						Args:   []Expr{Literal{Value: int64(1)}},
						Kwargs: []Kwarg{{Name: "flag", Value: Literal{Value: true}}},
					},
				},
			}},
			want: "value, err = f(1, flag=True)\n",
		},
		{
			name: "dict print",
			prog: Program{Body: []Stmt{
				ExprStmt{X: Call{
					Func: Attr{X: Name{Value: "json"}, Name: "dumps"},
					Args: []Expr{Dict{Items: []DictItem{
						{Key: Literal{Value: "eq"}, Value: Name{Value: "v"}},
					}}},
				}},
			}},
			want: "json.dumps({\"eq\": v})\n",
		},
		{
			name: "subscript",
			prog: Program{Body: []Stmt{
				Assign{
					Target: Name{Value: "out"},
					Value:  Subscript{X: Name{Value: "obj"}, Index: Literal{Value: "key"}},
				},
			}},
			want: "out = obj[\"key\"]\n",
		},
		{
			name: "while with predicate break",
			prog: Program{Body: []Stmt{
				While{Test: Literal{Value: true}, Body: []Stmt{
					If{Test: Name{Value: "done"}, Body: []Stmt{Break{}}},
					ExprStmt{X: Call{Func: Name{Value: "step"}}},
				}},
			}},
			want: "while True:\n    if done:\n        break\n    step()\n",
		},
		{
			name: "if else",
			prog: Program{Body: []Stmt{
				If{
					Test: Name{Value: "cond"},
					Body: []Stmt{Assign{Target: Name{Value: "x"}, Value: Literal{Value: "yes"}}},
					Else: []Stmt{Assign{Target: Name{Value: "x"}, Value: Literal{Value: "no"}}},
				},
			}},
			want: "if cond:\n    x = \"yes\"\nelse:\n    x = \"no\"\n",
		},
		{
			name: "empty suite renders pass",
			prog: Program{Body: []Stmt{
				If{Test: Name{Value: "cond"}, Body: nil},
			}},
			want: "if cond:\n    pass\n",
		},
		{
			name: "raw block keeps internal indentation",
			prog: Program{Body: []Stmt{
				If{Test: Name{Value: "ok"}, Body: []Stmt{
					Raw{Text: "for i in range(3):\n    work(i)"},
				}},
			}},
			want: "if ok:\n    for i in range(3):\n        work(i)\n",
		},
		{
			name: "imports",
			prog: Program{Body: []Stmt{
				Import{Module: "json"},
				ImportFrom{Module: "sol", Names: []string{"add", "sub"}},
			}},
			want: "import json\nfrom sol import add, sub\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.prog.Source(); got != tt.want {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.want, got)
			}
		})
	}
}

func TestModuleName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"sol.py", "sol"},
		{"pkg/sol.py", "pkg.sol"},
		{"a/b/c.py", "a.b.c"},
	}
	for _, tt := range tests {
		if got := ModuleName(tt.path); got != tt.want {
			t.Errorf("ModuleName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSourceDeterminism(t *testing.T) {
	t.Parallel()

	prog := Program{Body: []Stmt{
		Assign{Target: Name{Value: "x"}, Value: Literal{Value: int64(1)}},
		While{Test: Literal{Value: true}, Body: []Stmt{Break{}}},
	}}
	first := prog.Source()
	for range 5 {
		if got := prog.Source(); got != first {
			t.Fatalf("rendering is not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
	if !strings.HasSuffix(first, "\n") {
		t.Error("expected rendered source to end with a newline")
	}
}
