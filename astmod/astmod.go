// Package astmod holds the parsed-module contract the simulation core
// consumes. The lexer and parser that produce these values live outside
// this repository; astmod only fixes the shape they must hand over.
package astmod

// Port is a named, fixed-width input or output of a Module.
type Port struct {
	Name  string
	Width int
}

// Module is one compiled unit of the Wire language: a name, its ports,
// and the ordered statements that define its internal wiring.
type Module struct {
	Name       string
	Inputs     []Port
	Outputs    []Port
	Statements []Statement
}

// Statement is a single `target = expr` equation.
type Statement struct {
	Target string
	Expr   Expr
}

// ExprKind discriminates the Expr sum type.
type ExprKind int

const (
	// ExprIdent is a bare identifier, possibly dotted (base.field).
	ExprIdent ExprKind = iota
	// ExprLit is an integer literal.
	ExprLit
	// ExprCall is a primitive or module invocation.
	ExprCall
	// ExprMember is expr.field.
	ExprMember
	// ExprIndex is expr[n].
	ExprIndex
	// ExprSlice is expr[lo:hi].
	ExprSlice
)

// Expr is the recursive expression tree on the right-hand side of a
// Statement. Exactly one field group is meaningful per Kind.
type Expr struct {
	Kind ExprKind

	// ExprIdent
	Ident string

	// ExprLit
	Value uint64
	Width int // 0 means "infer", see graph.lowerLit

	// ExprCall
	Callee string // primitive name ("nand", "dff", ...) or module name
	Args   []Expr

	// ExprMember
	Base  *Expr
	Field string

	// ExprIndex
	IndexBase *Expr
	Index     int

	// ExprSlice
	SliceBase *Expr
	Lo, Hi    int
}

// Ident builds an identifier expression.
func Ident(name string) Expr { return Expr{Kind: ExprIdent, Ident: name} }

// Lit builds an integer literal expression with an explicit width.
func Lit(v uint64, width int) Expr { return Expr{Kind: ExprLit, Value: v, Width: width} }

// Call builds a primitive/module call expression.
func Call(callee string, args ...Expr) Expr {
	return Expr{Kind: ExprCall, Callee: callee, Args: args}
}

// Member builds a base.field expression.
func Member(base Expr, field string) Expr {
	return Expr{Kind: ExprMember, Base: &base, Field: field}
}

// IndexOf builds a base[i] expression.
func IndexOf(base Expr, i int) Expr {
	return Expr{Kind: ExprIndex, IndexBase: &base, Index: i}
}

// SliceOf builds a base[lo:hi] expression.
func SliceOf(base Expr, lo, hi int) Expr {
	return Expr{Kind: ExprSlice, SliceBase: &base, Lo: lo, Hi: hi}
}
