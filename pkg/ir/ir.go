// Package ir defines the tree-shaped intermediate representation consumed by
// the code generator. It is the output contract of an external lowering
// stage: augmented assignments, elif chains and similar sugar have already
// been flattened away, so the node set here is deliberately small.
package ir

// Kind discriminates the variant stored in a Node's Data field.
type Kind int

const (
	// Expressions
	IntLit Kind = iota
	FloatLit
	BoolLit
	StringLit
	VarRef
	BinOp
	Compare
	UnaryOp
	Call
	Input
	Len
	ListLit
	Index

	// Statements
	Print
	Assign
	ExprStmt
	Return
	FuncDef
	If
	While
	For
	Break
	Continue
)

// BinOpKind enumerates the arithmetic and bitwise binary operators.
type BinOpKind int

const (
	Add BinOpKind = iota
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	LShift
	RShift
)

// CmpKind enumerates the comparison operators.
type CmpKind int

const (
	Eq CmpKind = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
)

// UnaryKind enumerates the unary operators.
type UnaryKind int

const (
	USub UnaryKind = iota
	UAdd
	Not
	Invert
)

// Node is one IR tree node. Kind selects which *Node variant struct Data
// holds. Nodes are immutable once built.
type Node struct {
	Kind Kind
	Data interface{}
}

// Param is one declared function parameter. Default is nil when the
// parameter is required.
type Param struct {
	Name    string
	Default *Node
}

type IntLitNode struct{ Value int64 }
type FloatLitNode struct{ Value float64 }
type BoolLitNode struct{ Value bool }
type StringLitNode struct{ Value string }
type VarRefNode struct{ Name string }
type BinOpNode struct {
	Op          BinOpKind
	Left, Right *Node
}
type CompareNode struct {
	Op          CmpKind
	Left, Right *Node
}
type UnaryOpNode struct {
	Op      UnaryKind
	Operand *Node
}
type CallNode struct {
	Name string
	Args []*Node
}
type InputNode struct{}
type LenNode struct{ Operand *Node }
type ListLitNode struct{ Elems []*Node }
type IndexNode struct{ Target, Index *Node }

type PrintNode struct{ Args []*Node }
type AssignNode struct {
	Name  string
	Value *Node
}
type ExprStmtNode struct{ Expr *Node }
type ReturnNode struct{ Value *Node }
type FuncDefNode struct {
	Name   string
	Params []Param
	Body   []*Node
}
type IfNode struct {
	Cond *Node
	Then []*Node
	Else []*Node
}
type WhileNode struct {
	Cond *Node
	Body []*Node
}

// ForNode iterates Var over the half-open range [Start, End).
type ForNode struct {
	Var        string
	Start, End *Node
	Body       []*Node
}
type BreakNode struct{}
type ContinueNode struct{}

// --- Node constructors ---

func NewIntLit(v int64) *Node     { return &Node{Kind: IntLit, Data: IntLitNode{Value: v}} }
func NewFloatLit(v float64) *Node { return &Node{Kind: FloatLit, Data: FloatLitNode{Value: v}} }
func NewBoolLit(v bool) *Node     { return &Node{Kind: BoolLit, Data: BoolLitNode{Value: v}} }
func NewStringLit(v string) *Node { return &Node{Kind: StringLit, Data: StringLitNode{Value: v}} }
func NewVarRef(name string) *Node { return &Node{Kind: VarRef, Data: VarRefNode{Name: name}} }

func NewBinOp(op BinOpKind, left, right *Node) *Node {
	return &Node{Kind: BinOp, Data: BinOpNode{Op: op, Left: left, Right: right}}
}

func NewCompare(op CmpKind, left, right *Node) *Node {
	return &Node{Kind: Compare, Data: CompareNode{Op: op, Left: left, Right: right}}
}

func NewUnaryOp(op UnaryKind, operand *Node) *Node {
	return &Node{Kind: UnaryOp, Data: UnaryOpNode{Op: op, Operand: operand}}
}

func NewCall(name string, args []*Node) *Node {
	return &Node{Kind: Call, Data: CallNode{Name: name, Args: args}}
}

func NewInput() *Node            { return &Node{Kind: Input, Data: InputNode{}} }
func NewLen(operand *Node) *Node { return &Node{Kind: Len, Data: LenNode{Operand: operand}} }

func NewListLit(elems []*Node) *Node {
	return &Node{Kind: ListLit, Data: ListLitNode{Elems: elems}}
}

func NewIndex(target, index *Node) *Node {
	return &Node{Kind: Index, Data: IndexNode{Target: target, Index: index}}
}

func NewPrint(args []*Node) *Node { return &Node{Kind: Print, Data: PrintNode{Args: args}} }

func NewAssign(name string, value *Node) *Node {
	return &Node{Kind: Assign, Data: AssignNode{Name: name, Value: value}}
}

func NewExprStmt(expr *Node) *Node { return &Node{Kind: ExprStmt, Data: ExprStmtNode{Expr: expr}} }
func NewReturn(value *Node) *Node  { return &Node{Kind: Return, Data: ReturnNode{Value: value}} }

func NewFuncDef(name string, params []Param, body []*Node) *Node {
	return &Node{Kind: FuncDef, Data: FuncDefNode{Name: name, Params: params, Body: body}}
}

func NewIf(cond *Node, then, els []*Node) *Node {
	return &Node{Kind: If, Data: IfNode{Cond: cond, Then: then, Else: els}}
}

func NewWhile(cond *Node, body []*Node) *Node {
	return &Node{Kind: While, Data: WhileNode{Cond: cond, Body: body}}
}

func NewFor(variable string, start, end *Node, body []*Node) *Node {
	return &Node{Kind: For, Data: ForNode{Var: variable, Start: start, End: end, Body: body}}
}

func NewBreak() *Node    { return &Node{Kind: Break, Data: BreakNode{}} }
func NewContinue() *Node { return &Node{Kind: Continue, Data: ContinueNode{}} }

// IsStmt reports whether k is a statement kind.
func (k Kind) IsStmt() bool { return k >= Print }
