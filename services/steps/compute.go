package steps

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gradeflow/api/pkg/pycode"
	"gradeflow/api/services/graph"
	"gradeflow/api/services/runner"
)

// ComputeGraph is a validated set of steps and edges that lowers to a single
// Python program. Construction builds the adjacency indices; compilation is
// a pure function of the graph, so compiling the same graph twice yields
// byte-identical programs.
type ComputeGraph struct {
	Steps []Step
	Edges []graph.Edge

	adj  *graph.Adjacency
	byID map[int]Step
}

// NewComputeGraph indexes the given steps and edges. Duplicate step ids are
// rejected here; everything else is deferred to Validate.
func NewComputeGraph(stepList []Step, edges []graph.Edge) (*ComputeGraph, error) {
	byID := make(map[int]Step, len(stepList))
	nodeIDs := make([]int, 0, len(stepList))
	for _, s := range stepList {
		if _, dup := byID[s.ID()]; dup {
			return nil, validationErrf(s.ID(), "", "duplicate step id")
		}
		s.base().normalise()
		byID[s.ID()] = s
		nodeIDs = append(nodeIDs, s.ID())
	}
	return &ComputeGraph{
		Steps: stepList,
		Edges: edges,
		adj:   graph.NewAdjacency(nodeIDs, edges),
		byID:  byID,
	}, nil
}

// UnmarshalJSON decodes a {"nodes": [...], "edges": [...]} definition with
// strict unknown-field rejection on every node and edge.
func (g *ComputeGraph) UnmarshalJSON(data []byte) error {
	var wire struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []graph.Edge      `json:"edges"`
	}
	if err := strictDecode(data, &wire); err != nil {
		return fmt.Errorf("compute graph: %w", err)
	}

	stepList := make([]Step, 0, len(wire.Nodes))
	for _, raw := range wire.Nodes {
		step, err := DecodeStep(raw)
		if err != nil {
			return err
		}
		stepList = append(stepList, step)
	}

	built, err := NewComputeGraph(stepList, wire.Edges)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

// MarshalJSON mirrors UnmarshalJSON's wire format.
func (g *ComputeGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"nodes": g.Steps,
		"edges": g.Edges,
	})
}

// Step looks a step up by id.
func (g *ComputeGraph) Step(id int) (Step, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// WithStep returns a new graph with the extra step prepended. Used to attach
// the synthesised user-input step, which authored edges may already
// reference by its reserved id.
func (g *ComputeGraph) WithStep(s Step) (*ComputeGraph, error) {
	return NewComputeGraph(append([]Step{s}, g.Steps...), g.Edges)
}

// OutputStep returns the graph's single output step, if present.
func (g *ComputeGraph) OutputStep() (*OutputStep, bool) {
	for _, s := range g.Steps {
		if out, ok := s.(*OutputStep); ok {
			return out, true
		}
	}
	return nil, false
}

// Files returns every file literal embedded on input-step sockets, in graph
// order. These must ship with the compiled program so runtime path
// references resolve.
func (g *ComputeGraph) Files() []runner.File {
	var files []runner.File
	for _, s := range g.Steps {
		in, ok := s.(*InputStep)
		if !ok {
			continue
		}
		for _, socket := range in.Outputs() {
			if f, isFile := socket.File(); isFile {
				files = append(files, f)
			}
		}
	}
	return files
}

// Validate checks the structural invariants of the graph: per-step
// contracts, a single output step, well-formed edges and acyclicity of the
// non-subgraph edges.
func (g *ComputeGraph) Validate() error {
	for _, s := range g.Steps {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	outputs := 0
	for _, s := range g.Steps {
		if s.Type() == StepOutput {
			outputs++
		}
	}
	if outputs != 1 {
		return validationErrf(-1, "", "expected exactly 1 output step, found %d", outputs)
	}

	for _, e := range g.Edges {
		if err := g.validateEdge(e); err != nil {
			return err
		}
	}

	if _, err := g.adj.TopologicalOrder(g.allSubgraphNodeIDs()); err != nil {
		return fmt.Errorf("step graph: %w", err)
	}
	return nil
}

// validateEdge checks that both endpoints exist and that the edge runs from
// an output socket to an input socket.
func (g *ComputeGraph) validateEdge(e graph.Edge) error {
	from, ok := g.byID[e.FromNode]
	if !ok {
		return validationErrf(e.FromNode, "", "edge %d references unknown source step", e.ID)
	}
	to, ok := g.byID[e.ToNode]
	if !ok {
		return validationErrf(e.ToNode, "", "edge %d references unknown target step", e.ID)
	}

	fromSocket, ok := from.base().socket(e.FromSocket)
	if !ok || fromSocket.Dir() != SocketOut {
		return validationErrf(e.FromNode, e.FromSocket, "edge %d must start at an output socket", e.ID)
	}
	toSocket, ok := to.base().socket(e.ToSocket)
	if !ok || toSocket.Dir() != SocketIn {
		return validationErrf(e.ToNode, e.ToSocket, "edge %d must end at an input socket", e.ID)
	}
	return nil
}

// EdgeKind derives whether an edge carries data or control: touching one
// control socket on either end makes it a control edge.
func (g *ComputeGraph) EdgeKind(e graph.Edge) SocketType {
	if from, ok := g.byID[e.FromNode]; ok {
		if s, ok := from.base().socket(e.FromSocket); ok && !s.isData() {
			return SocketControl
		}
	}
	if to, ok := g.byID[e.ToNode]; ok {
		if s, ok := to.base().socket(e.ToSocket); ok && !s.isData() {
			return SocketControl
		}
	}
	return SocketData
}

// subgraphNodeIDs walks control edges in both directions from the node
// attached to the given socket of owner, never crossing the owner itself.
// The reached set is the subgraph scheduled inside the owner's emission.
func (g *ComputeGraph) subgraphNodeIDs(owner Step, socketID string) map[int]bool {
	reached := map[int]bool{}
	start := g.adj.Neighbours(owner.ID(), socketID)
	if len(start) == 0 {
		return reached
	}

	queue := []int{start[0]}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == owner.ID() || reached[id] {
			continue
		}
		reached[id] = true

		for _, e := range g.adj.OutEdges(id) {
			if g.EdgeKind(e) == SocketControl {
				queue = append(queue, e.ToNode)
			}
		}
		for _, e := range g.adj.InEdges(id) {
			if g.EdgeKind(e) == SocketControl {
				queue = append(queue, e.FromNode)
			}
		}
	}
	return reached
}

// allSubgraphNodeIDs unions the subgraphs owned by every step.
func (g *ComputeGraph) allSubgraphNodeIDs() map[int]bool {
	ids := map[int]bool{}
	for _, s := range g.Steps {
		for _, alias := range s.subgraphAliases() {
			socket, ok := s.base().socketByAlias(alias)
			if !ok {
				continue
			}
			for id := range g.subgraphNodeIDs(s, socket.ID) {
				ids[id] = true
			}
		}
	}
	return ids
}

// Compile validates the graph and lowers it into a Python program with a
// hoisted import prelude.
func (g *ComputeGraph) Compile() (*pycode.Program, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	c := &compiler{g: g, namer: newVarNamer()}
	body, err := c.compile(nil)
	if err != nil {
		return nil, err
	}
	return pycode.HoistImports(&pycode.Program{Body: body}), nil
}

// compiler carries the per-compilation state: the variable namer is shared
// across the outer body and every subgraph so a socket resolves to the same
// identifier wherever it is referenced.
type compiler struct {
	g     *ComputeGraph
	namer *varNamer
}

// compile emits the steps of one scheduling region in topological order.
// include of nil means the whole graph; otherwise only the given nodes are
// scheduled (used for subgraphs). Subgraphs of scheduled steps are always
// excluded here and compiled inside their owner's emission.
func (c *compiler) compile(include map[int]bool) ([]pycode.Stmt, error) {
	exclude := map[int]bool{}
	if include != nil {
		for _, id := range c.g.adj.NodeIDs() {
			if !include[id] {
				exclude[id] = true
			}
		}
	}
	for _, s := range c.g.Steps {
		if exclude[s.ID()] {
			continue
		}
		for _, alias := range s.subgraphAliases() {
			socket, ok := s.base().socketByAlias(alias)
			if !ok {
				continue
			}
			for id := range c.g.subgraphNodeIDs(s, socket.ID) {
				exclude[id] = true
			}
		}
	}

	order, err := c.g.adj.TopologicalOrder(exclude)
	if err != nil {
		return nil, fmt.Errorf("step graph: %w", err)
	}

	var body []pycode.Stmt
	for i, id := range order {
		step := c.g.byID[id]
		ctx := c.emitContext(step)
		stmts, err := step.Emit(ctx)
		if err != nil {
			return nil, err
		}
		if i > 0 && len(stmts) > 0 {
			body = append(body, pycode.Blank{})
		}
		body = append(body, stmts...)
	}
	return body, nil
}

// emitContext resolves a step's inbound edges into named variables and
// threaded files, keyed by the step's own input socket ids.
func (c *compiler) emitContext(step Step) *EmitContext {
	vars := map[string]pycode.Name{}
	files := map[string]runner.File{}

	for _, e := range c.g.adj.InEdges(step.ID()) {
		from, ok := c.g.byID[e.FromNode]
		if !ok {
			continue
		}
		fromSocket, ok := from.base().socket(e.FromSocket)
		if !ok || fromSocket.Dir() != SocketOut {
			continue
		}
		toSocket, ok := step.base().socket(e.ToSocket)
		if !ok {
			continue
		}

		// File literals travel on their own channel alongside the path
		// variable, so steps like the function call can read the file they
		// are about to import.
		if f, isFile := fromSocket.File(); isFile {
			files[toSocket.ID] = f
		}
		vars[toSocket.ID] = c.namer.varFor(from, fromSocket)
	}

	return &EmitContext{c: c, step: step, vars: vars, files: files}
}

// EmitContext is what a step sees while emitting: its resolved inputs and
// hooks back into the compiler for variable naming and subgraph lowering.
type EmitContext struct {
	c     *compiler
	step  Step
	vars  map[string]pycode.Name
	files map[string]runner.File
}

// Var returns the variable bound to one of the step's input sockets.
func (ctx *EmitContext) Var(socketID string) (pycode.Name, bool) {
	v, ok := ctx.vars[socketID]
	return v, ok
}

// File returns the file threaded to one of the step's input sockets.
func (ctx *EmitContext) File(socketID string) (runner.File, bool) {
	f, ok := ctx.files[socketID]
	return f, ok
}

// OutVar names the variable holding the value of one of the step's output
// sockets.
func (ctx *EmitContext) OutVar(socket *Socket) pycode.Name {
	return ctx.c.namer.varFor(ctx.step, socket)
}

// Subgraph lowers the subgraph attached to the given control socket of the
// current step and returns its statements for inlining.
func (ctx *EmitContext) Subgraph(socketID string) ([]pycode.Stmt, error) {
	include := ctx.c.g.subgraphNodeIDs(ctx.step, socketID)
	if len(include) == 0 {
		return nil, nil
	}
	return ctx.c.compile(include)
}

var nonWord = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// varNamer allocates collision-free variable names of the shape
// var_<node>_<shorthand>_<socket>_<label>. Ordinals are assigned first-seen
// and are local to one compilation, which keeps naming deterministic per
// compile without requiring stability across compiles.
type varNamer struct {
	nextNode int
	nodeOrd  map[int]int
	nextSock map[int]int
	sockOrd  map[int]map[string]int
}

func newVarNamer() *varNamer {
	return &varNamer{
		nodeOrd:  map[int]int{},
		nextSock: map[int]int{},
		sockOrd:  map[int]map[string]int{},
	}
}

func (n *varNamer) varFor(step Step, socket *Socket) pycode.Name {
	nodeOrd, ok := n.nodeOrd[step.ID()]
	if !ok {
		nodeOrd = n.nextNode
		n.nodeOrd[step.ID()] = nodeOrd
		n.nextNode++
	}

	sockets := n.sockOrd[step.ID()]
	if sockets == nil {
		sockets = map[string]int{}
		n.sockOrd[step.ID()] = sockets
	}
	sockOrd, ok := sockets[socket.ID]
	if !ok {
		sockOrd = n.nextSock[step.ID()]
		sockets[socket.ID] = sockOrd
		n.nextSock[step.ID()]++
	}

	label := nonWord.ReplaceAllString(strings.ReplaceAll(socket.Label, " ", "_"), "")
	name := fmt.Sprintf("var_%d_%s_%d_%s", nodeOrd, shorthands[step.Type()], sockOrd, label)
	return pycode.Name{Value: strings.ToLower(name)}
}
