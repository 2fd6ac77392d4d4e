package pycode

// The sandbox harness runs untrusted candidate functions in a separate OS
// process. Candidate code may print, block or raise; keeping it out of the
// parent process protects the parent's stdout (which carries the verdict
// payload) and its lifetime. The worker function must sit at module top level
// so the spawn start method can import it.

const workerHarness = `import importlib
import multiprocessing
import os
from contextlib import redirect_stdout

def _invoke(module_name, function_name, *args, **kwargs):
    with open(os.devnull, "w") as sink, redirect_stdout(sink):
        module = importlib.import_module(module_name)
        return getattr(module, function_name)(*args, **kwargs)

def worker(task_queue, result_queue):
    while True:
        task = task_queue.get()
        if task == "STOP":
            break
        module_name, function_name, args, kwargs = task
        try:
            result_queue.put((_invoke(module_name, function_name, *args, **kwargs), None))
        except Exception as exc:
            result_queue.put((None, f"{type(exc).__name__}: {exc}"))`

const callShim = `multiprocessing.freeze_support()
multiprocessing.set_start_method("spawn")
task_queue = multiprocessing.Queue()
result_queue = multiprocessing.Queue()
process = multiprocessing.Process(target=worker, args=(task_queue, result_queue))
process.start()

def call_function_safe(module_name, function_name, allow_error, *args, **kwargs):
    task_queue.put((module_name, function_name, args, kwargs))
    value, error = result_queue.get()
    if error is not None and not allow_error:
        raise RuntimeError(error)
    return value, error`

const workerCleanup = `task_queue.put("STOP")
process.join()`

// Sandbox wraps a compiled program in the worker-process harness: the worker
// definitions are prepended, the program body is moved under a main guard
// behind the call shim, and worker shutdown is appended. The transform is
// purely syntactic; it never inspects the program it wraps.
func Sandbox(p *Program) *Program {
	guarded := []Stmt{Raw{Text: callShim}, Blank{}}
	guarded = append(guarded, p.Body...)
	guarded = append(guarded, Blank{}, Raw{Text: workerCleanup})

	return &Program{Body: []Stmt{
		Raw{Text: workerHarness},
		Blank{},
		If{
			Test: Compare{Left: Name{Value: "__name__"}, Op: "==", Right: Literal{Value: "__main__"}},
			Body: guarded,
		},
	}}
}
