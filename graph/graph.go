// Package graph implements the Graph Builder (spec §4.1): it lowers one
// parsed astmod.Module body at a time into a per-module compiled form —
// a wire/width map, an alias map, and an ordered list of typed nodes —
// without yet resolving module instances into a flat netlist. That is
// the Flattener's job (package flatten).
package graph

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/wireerr"
)

// Kind discriminates the node sum type described in spec §3. Module is
// eliminated by the Flattener; every other kind survives into the flat
// netlist.
type Kind int

const (
	KindInput Kind = iota
	KindConst
	KindNand
	KindIndex
	KindSlice
	KindConcat
	KindDff
	KindRam
	KindRom
	KindModule
)

func (k Kind) String() string {
	return [...]string{"input", "const", "nand", "index", "slice", "concat", "dff", "ram", "rom", "module"}[k]
}

var reservedPrimitives = map[string]bool{
	"nand": true, "dff": true, "ram": true, "rom": true, "concat": true,
}

// Node is one producer in a per-module graph, keyed by its output wire
// name. Only the fields relevant to Kind are meaningful.
type Node struct {
	Kind  Kind
	Out   string
	Width int

	// nand, dff(d,clk), ram(addr,data,write,clk), rom(addr), index(v), slice(v)
	Args []string

	// const
	ConstValue uint64

	// index
	Idx int

	// slice
	Lo, Hi int

	// concat: operand widths in declared order, high bits first
	Widths []int

	// ram/rom
	AddrWidth int

	// module
	Callee  string
	CallID  int
	Outputs []string // callee's declared output port names, in order
}

// Graph is one module's compiled, pre-flatten form.
type Graph struct {
	Module  astmod.Module
	Widths  map[string]int
	Aliases map[string]string
	Nodes   []Node

	byOut map[string]*Node // producer lookup, including module-call outputs
}

func newGraph(m astmod.Module) *Graph {
	return &Graph{
		Module:  m,
		Widths:  map[string]int{},
		Aliases: map[string]string{},
		byOut:   map[string]*Node{},
	}
}

func (g *Graph) addNode(n Node) {
	g.Nodes = append(g.Nodes, n)
	nPtr := &g.Nodes[len(g.Nodes)-1]
	g.byOut[n.Out] = nPtr
}

// ResolveWidth follows the alias chain (cycle-safe) from name and
// returns the width registered for the chain's terminus, if any.
func (g *Graph) ResolveWidth(name string) (int, bool) {
	seen := map[string]bool{}
	cur := name
	for {
		if w, ok := g.Widths[cur]; ok {
			return w, true
		}
		next, isAlias := g.Aliases[cur]
		if !isAlias || seen[cur] {
			return 0, false
		}
		seen[cur] = true
		cur = next
	}
}

// Resolve follows the alias chain to the wire that actually has a
// producer. The Builder uses it to find a module node behind an alias
// during member-access width inference; the flattener and the
// interpreter strategy also call it to locate a name's producer.
func (g *Graph) Resolve(name string) string {
	seen := map[string]bool{}
	cur := name
	for {
		next, isAlias := g.Aliases[cur]
		if !isAlias || seen[cur] {
			return cur
		}
		seen[cur] = true
		cur = next
	}
}

// ctx threads a monotonically increasing node-id counter through one
// compilation batch, per spec §9 ("no hidden global").
type ctx struct {
	nextID int
}

func (c *ctx) next() int {
	id := c.nextID
	c.nextID++
	return id
}

func (c *ctx) synth(prefix string) string {
	return fmt.Sprintf("__%s%d", prefix, c.next())
}

// Builder lowers a batch of modules into per-module graphs. All modules
// in the batch are visible to each other for call/member width
// inference, mirroring how the full parsed module list is handed to the
// core in one shot (spec §6).
type Builder struct {
	sigs map[string]astmod.Module // name -> module, for signature lookups
}

// NewBuilder constructs a Builder over the full parsed module list.
func NewBuilder(modules []astmod.Module) *Builder {
	b := &Builder{sigs: map[string]astmod.Module{}}
	for _, m := range modules {
		b.sigs[m.Name] = m
	}
	return b
}

// BuildAll lowers every module in the batch and returns them by name.
func (b *Builder) BuildAll(modules []astmod.Module) (map[string]*Graph, error) {
	if len(modules) == 0 {
		return nil, wireerr.New(wireerr.NoModules, "", "", "no modules in build batch")
	}

	out := make(map[string]*Graph, len(modules))
	c := &ctx{}
	for _, m := range modules {
		g, err := b.buildOne(c, m)
		if err != nil {
			return nil, err
		}
		out[m.Name] = g
	}
	return out, nil
}

func (b *Builder) buildOne(c *ctx, m astmod.Module) (*Graph, error) {
	g := newGraph(m)

	for _, p := range normalizedPorts(m.Inputs) {
		g.Widths[p.Name] = p.Width
		g.addNode(Node{Kind: KindInput, Out: p.Name, Width: p.Width})
	}
	for _, p := range normalizedPorts(m.Outputs) {
		// Outputs get a width entry but no producer node: "outputs are
		// represented by the connection from their source wire".
		if _, exists := g.Widths[p.Name]; !exists {
			g.Widths[p.Name] = p.Width
		}
	}

	for _, stmt := range m.Statements {
		if err := b.lowerStatement(c, g, stmt); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func normalizedPorts(ports []astmod.Port) []astmod.Port {
	out := make([]astmod.Port, len(ports))
	for i, p := range ports {
		if p.Width == 0 {
			p.Width = 1 // "Width defaults to 1 when unspecified."
		}
		out[i] = p
	}
	return out
}

func (b *Builder) lowerStatement(c *ctx, g *Graph, stmt astmod.Statement) error {
	target := stmt.Target

	if isPureIdentifier(stmt.Expr) {
		wire, width, err := b.lowerExpr(c, g, stmt.Expr)
		if err != nil {
			return err
		}
		if wire == target {
			// Self-alias: never created.
			if _, ok := g.Widths[target]; !ok {
				g.Widths[target] = width
			}
			return nil
		}
		g.Aliases[target] = wire
		return nil
	}

	width, err := b.lowerExprNamed(c, g, stmt.Expr, target)
	if err != nil {
		return err
	}
	g.Widths[target] = width
	return nil
}

func isPureIdentifier(e astmod.Expr) bool {
	return e.Kind == astmod.ExprIdent || e.Kind == astmod.ExprMember
}

// lowerExpr lowers a sub-expression with no preferred output name: any
// node it creates gets a fresh synthesized wire. Pure identifiers are
// resolved but never allocate a new wire — the returned name is the
// original identifier, per spec §4.1 ("resolution is re-performed at
// evaluation time so downstream writes to an alias remain observable").
func (b *Builder) lowerExpr(c *ctx, g *Graph, e astmod.Expr) (string, int, error) {
	switch e.Kind {
	case astmod.ExprIdent:
		w, ok := g.ResolveWidth(e.Ident)
		if !ok {
			w = 1
		}
		return e.Ident, w, nil

	case astmod.ExprMember:
		return b.lowerMember(c, g, e)

	case astmod.ExprLit:
		return b.lowerLit(c, g, e)

	case astmod.ExprIndex:
		return b.lowerIndex(c, g, e, "")

	case astmod.ExprSlice:
		return b.lowerSlice(c, g, e, "")

	case astmod.ExprCall:
		return b.lowerCall(c, g, e, "")

	default:
		return "", 0, wireerr.Newf(wireerr.UnknownPrimitive, g.Module.Name, "", "unrecognized expression kind %d", e.Kind)
	}
}

// lowerExprNamed lowers the top-level expression of a statement whose
// target is `name`: the produced node's output wire is `name` itself,
// with no extra synthetic indirection, matching spec §4.1 step 3
// ("the producer node already emitted is understood to drive target").
func (b *Builder) lowerExprNamed(c *ctx, g *Graph, e astmod.Expr, name string) (int, error) {
	switch e.Kind {
	case astmod.ExprLit:
		_, w, err := b.lowerLitNamed(c, g, e, name)
		return w, err
	case astmod.ExprIndex:
		_, w, err := b.lowerIndex(c, g, e, name)
		return w, err
	case astmod.ExprSlice:
		_, w, err := b.lowerSlice(c, g, e, name)
		return w, err
	case astmod.ExprCall:
		_, w, err := b.lowerCall(c, g, e, name)
		return w, err
	default:
		return 0, wireerr.Newf(wireerr.UnknownPrimitive, g.Module.Name, name, "unrecognized expression kind %d", e.Kind)
	}
}

func (b *Builder) lowerMember(c *ctx, g *Graph, e astmod.Expr) (string, int, error) {
	baseWire, _, err := b.lowerExpr(c, g, *e.Base)
	if err != nil {
		return "", 0, err
	}
	name := baseWire + "." + e.Field

	// Default for forward references. The flattener sizes this field's
	// wire from the callee's declared output width; widths derived here
	// from the default (e.g. a nand operand width) are not revisited.
	width := 1
	if prod, ok := g.byOut[g.Resolve(baseWire)]; ok && prod.Kind == KindModule {
		if callee, ok := b.sigs[prod.Callee]; ok {
			for _, p := range normalizedPorts(callee.Outputs) {
				if p.Name == e.Field {
					width = p.Width
					break
				}
			}
		}
	}
	if _, exists := g.Widths[name]; !exists {
		g.Widths[name] = width
	}
	return name, width, nil
}

// lowerLit gives a constant the narrowest width that fits its value when
// no explicit width is given, so the literal is not truncated. The width
// is not widened later to match its use: a nand whose operand widths
// differ is rejected with InvalidWidth. The minimum returned width is 1.
func (b *Builder) lowerLit(c *ctx, g *Graph, e astmod.Expr) (string, int, error) {
	name := c.synth("const")
	return b.lowerLitNamed(c, g, e, name)
}

func (b *Builder) lowerLitNamed(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	width := e.Width
	if width == 0 {
		width = bitsNeeded(e.Value)
	}
	if width > 32 {
		return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "constant width %d exceeds 32 bits", width)
	}
	g.addNode(Node{Kind: KindConst, Out: name, Width: width, ConstValue: e.Value})
	g.Widths[name] = width
	return name, width, nil
}

func bitsNeeded(v uint64) int {
	if v == 0 {
		return 1
	}
	n := bits.Len64(v)
	if n > 32 {
		n = 32
	}
	return n
}

func (b *Builder) lowerIndex(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	baseWire, _, err := b.lowerExpr(c, g, *e.IndexBase)
	if err != nil {
		return "", 0, err
	}
	if name == "" {
		name = c.synth("idx")
	}
	g.addNode(Node{Kind: KindIndex, Out: name, Width: 1, Args: []string{baseWire}, Idx: e.Index})
	g.Widths[name] = 1
	return name, 1, nil
}

func (b *Builder) lowerSlice(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	baseWire, _, err := b.lowerExpr(c, g, *e.SliceBase)
	if err != nil {
		return "", 0, err
	}
	if e.Hi < e.Lo {
		return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "slice [%d:%d] has hi < lo", e.Lo, e.Hi)
	}
	width := e.Hi - e.Lo + 1
	if name == "" {
		name = c.synth("slice")
	}
	g.addNode(Node{Kind: KindSlice, Out: name, Width: width, Args: []string{baseWire}, Lo: e.Lo, Hi: e.Hi})
	g.Widths[name] = width
	return name, width, nil
}

func (b *Builder) lowerCall(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	if reservedPrimitives[e.Callee] {
		return b.lowerPrimitive(c, g, e, name)
	}
	return b.lowerModuleCall(c, g, e, name)
}

func (b *Builder) lowerPrimitive(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	args := make([]string, len(e.Args))
	widths := make([]int, len(e.Args))
	for i, a := range e.Args {
		w, wi, err := b.lowerExpr(c, g, a)
		if err != nil {
			return "", 0, err
		}
		args[i] = w
		widths[i] = wi
	}

	switch e.Callee {
	case "nand":
		if len(args) != 2 {
			return "", 0, wireerr.Newf(wireerr.BadArity, g.Module.Name, name, "nand wants 2 arguments, got %d", len(args))
		}
		if widths[0] != widths[1] {
			return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "nand operand widths differ: %d vs %d", widths[0], widths[1])
		}
		if name == "" {
			name = c.synth("nand")
		}
		w := widths[0]
		g.addNode(Node{Kind: KindNand, Out: name, Width: w, Args: args})
		g.Widths[name] = w
		return name, w, nil

	case "dff":
		if len(args) != 2 {
			return "", 0, wireerr.Newf(wireerr.BadArity, g.Module.Name, name, "dff wants 2 arguments (d, clk), got %d", len(args))
		}
		if name == "" {
			name = c.synth("dff")
		}
		g.addNode(Node{Kind: KindDff, Out: name, Width: 1, Args: args})
		g.Widths[name] = 1
		return name, 1, nil

	case "ram":
		if len(args) != 4 {
			return "", 0, wireerr.Newf(wireerr.BadArity, g.Module.Name, name, "ram wants 4 arguments (addr, data, write, clk), got %d", len(args))
		}
		addrW := widths[0]
		if addrW < 1 || addrW > 16 {
			return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "ram addr_w %d out of range [1,16]", addrW)
		}
		if name == "" {
			name = c.synth("ram")
		}
		g.addNode(Node{Kind: KindRam, Out: name, Width: 8, Args: args, AddrWidth: addrW})
		g.Widths[name] = 8
		return name, 8, nil

	case "rom":
		if len(args) != 1 {
			return "", 0, wireerr.Newf(wireerr.BadArity, g.Module.Name, name, "rom wants 1 argument (addr), got %d", len(args))
		}
		addrW := widths[0]
		if addrW < 1 || addrW > 16 {
			return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "rom addr_w %d out of range [1,16]", addrW)
		}
		if name == "" {
			name = c.synth("rom")
		}
		g.addNode(Node{Kind: KindRom, Out: name, Width: 8, Args: args, AddrWidth: addrW})
		g.Widths[name] = 8
		return name, 8, nil

	case "concat":
		if len(args) < 1 {
			return "", 0, wireerr.Newf(wireerr.BadArity, g.Module.Name, name, "concat wants at least 1 argument, got %d", len(args))
		}
		total := 0
		for _, w := range widths {
			total += w
		}
		if total > 32 {
			return "", 0, wireerr.Newf(wireerr.InvalidWidth, g.Module.Name, name, "concat output width %d exceeds 32 bits", total)
		}
		if name == "" {
			name = c.synth("concat")
		}
		g.addNode(Node{Kind: KindConcat, Out: name, Width: total, Args: args, Widths: widths})
		g.Widths[name] = total
		return name, total, nil

	default:
		return "", 0, wireerr.Newf(wireerr.UnknownPrimitive, g.Module.Name, name, "unrecognized primitive %q", e.Callee)
	}
}

func (b *Builder) lowerModuleCall(c *ctx, g *Graph, e astmod.Expr, name string) (string, int, error) {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		w, _, err := b.lowerExpr(c, g, a)
		if err != nil {
			return "", 0, err
		}
		args[i] = w
	}

	callID := c.next()
	if name == "" {
		name = fmt.Sprintf("%s_out_%d", e.Callee, callID)
	}

	width := 1
	var outputs []string
	if callee, ok := b.sigs[e.Callee]; ok {
		ports := normalizedPorts(callee.Outputs)
		if len(ports) > 0 {
			width = ports[0].Width
		}
		for _, p := range ports {
			outputs = append(outputs, p.Name)
		}
	}
	// An unknown callee is not a build error (spec §4.2): it is left
	// for the Flattener to drive to 0 at runtime.

	g.addNode(Node{
		Kind:    KindModule,
		Out:     name,
		Width:   width,
		Args:    args,
		Callee:  e.Callee,
		CallID:  callID,
		Outputs: outputs,
	})
	g.Widths[name] = width
	return name, width, nil
}
