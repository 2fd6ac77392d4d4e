package pycode

import (
	"strings"
	"testing"
)

func TestSandbox(t *testing.T) {
	t.Parallel()

	inner := &Program{Body: []Stmt{
		Assign{Target: Name{Value: "x"}, Value: Literal{Value: int64(1)}},
		ExprStmt{X: Call{Func: Name{Value: "print"}, Args: []Expr{Name{Value: "x"}}}},
	}}
	src := Sandbox(inner).Source()

	// Worker definitions stay at module top level so the spawn start method
	// can import them.
	workerIdx := strings.Index(src, "def worker(task_queue, result_queue):")
	guardIdx := strings.Index(src, "if __name__ == \"__main__\":")
	if workerIdx == -1 || guardIdx == -1 {
		t.Fatalf("missing worker definition or main guard:\n%s", src)
	}
	if workerIdx > guardIdx {
		t.Error("worker definition must precede the main guard")
	}

	for _, want := range []string{
		"import importlib",
		"import multiprocessing",
		"multiprocessing.set_start_method(\"spawn\")",
		"def call_function_safe(module_name, function_name, allow_error, *args, **kwargs):",
		"    x = 1",
		"    print(x)",
		"    task_queue.put(\"STOP\")",
		"    process.join()",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("expected assembled program to contain %q:\n%s", want, src)
		}
	}

	// The program body must run under the guard, i.e. after it.
	if bodyIdx := strings.Index(src, "    x = 1"); bodyIdx < guardIdx {
		t.Error("program body must be inside the main guard")
	}
	// Cleanup runs after the wrapped body.
	if stopIdx := strings.Index(src, "task_queue.put(\"STOP\")"); stopIdx < strings.Index(src, "print(x)") {
		t.Error("worker shutdown must follow the program body")
	}
}

func TestSandboxPurelySyntactic(t *testing.T) {
	t.Parallel()

	empty := Sandbox(&Program{})
	src := empty.Source()
	if !strings.Contains(src, "if __name__ == \"__main__\":") {
		t.Fatalf("expected main guard even for an empty program:\n%s", src)
	}

	// Wrapping must not mutate the input program.
	inner := &Program{Body: []Stmt{Assign{Target: Name{Value: "x"}, Value: Literal{Value: int64(1)}}}}
	before := inner.Source()
	Sandbox(inner)
	if inner.Source() != before {
		t.Error("sandbox transform mutated its input")
	}
}
