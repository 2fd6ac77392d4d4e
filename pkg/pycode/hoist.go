package pycode

import (
	"slices"
	"strings"
)

// HoistImports moves every import statement, including those nested inside
// conditional and loop suites, into a single deduplicated block at the top of
// the program. Plain imports come first, then from-imports, both in sorted
// order. The transform is idempotent: hoisting an already-hoisted program
// yields an identical program.
func HoistImports(p *Program) *Program {
	modules := map[string]bool{}
	fromImports := map[string]map[string]bool{}

	body := stripImports(p.Body, modules, fromImports)

	// Drop spacer lines left behind at the top of the body so repeated
	// hoisting does not accumulate blank lines.
	for len(body) > 0 {
		if _, ok := body[0].(Blank); !ok {
			break
		}
		body = body[1:]
	}

	var prelude []Stmt
	for _, module := range sortedKeys(modules) {
		prelude = append(prelude, Import{Module: module})
	}
	for _, module := range sortedKeys(fromImports) {
		prelude = append(prelude, ImportFrom{Module: module, Names: sortedKeys(fromImports[module])})
	}
	if len(prelude) > 0 && len(body) > 0 {
		prelude = append(prelude, Blank{})
	}

	return &Program{Body: append(prelude, body...)}
}

// stripImports removes import statements from a suite recursively, recording
// what was removed into the accumulator maps.
func stripImports(body []Stmt, modules map[string]bool, fromImports map[string]map[string]bool) []Stmt {
	kept := make([]Stmt, 0, len(body))
	for _, stmt := range body {
		switch s := stmt.(type) {
		case Import:
			modules[s.Module] = true
		case ImportFrom:
			names := fromImports[s.Module]
			if names == nil {
				names = map[string]bool{}
				fromImports[s.Module] = names
			}
			for _, name := range s.Names {
				names[name] = true
			}
		case If:
			kept = append(kept, If{
				Test: s.Test,
				Body: stripImports(s.Body, modules, fromImports),
				Else: stripImports(s.Else, modules, fromImports),
			})
		case While:
			kept = append(kept, While{
				Test: s.Test,
				Body: stripImports(s.Body, modules, fromImports),
			})
		default:
			kept = append(kept, stmt)
		}
	}
	return kept
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ModuleName derives the importable module path of a Python source file from
// its relative path, e.g. "pkg/sol.py" becomes "pkg.sol".
func ModuleName(path string) string {
	return strings.ReplaceAll(strings.TrimSuffix(path, ".py"), "/", ".")
}
