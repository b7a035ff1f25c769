package ir

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// The JSON wire form mirrors what the external lowering stage emits: one
// object per node with a "kind" discriminator and kind-specific fields.

var binOpNames = map[string]BinOpKind{
	"add": Add, "sub": Sub, "mul": Mul, "div": Div, "mod": Mod,
	"bitand": BitAnd, "bitor": BitOr, "bitxor": BitXor,
	"lshift": LShift, "rshift": RShift,
}

var cmpNames = map[string]CmpKind{
	"eq": Eq, "noteq": NotEq, "lt": Lt, "lte": LtE, "gt": Gt, "gte": GtE,
}

var unaryNames = map[string]UnaryKind{
	"usub": USub, "uadd": UAdd, "not": Not, "invert": Invert,
}

type paramJSON struct {
	Name    string `json:"name"`
	Default *Node  `json:"default,omitempty"`
}

type nodeJSON struct {
	Kind    string          `json:"kind"`
	Value   json.RawMessage `json:"value,omitempty"`
	Name    string          `json:"name,omitempty"`
	Op      string          `json:"op,omitempty"`
	Left    *Node           `json:"left,omitempty"`
	Right   *Node           `json:"right,omitempty"`
	Operand *Node           `json:"operand,omitempty"`
	Target  *Node           `json:"target,omitempty"`
	Index   *Node           `json:"index,omitempty"`
	Expr    *Node           `json:"expr,omitempty"`
	Args    []*Node         `json:"args,omitempty"`
	Elems   []*Node         `json:"elems,omitempty"`
	Cond    *Node           `json:"cond,omitempty"`
	Then    []*Node         `json:"then,omitempty"`
	Else    []*Node         `json:"else,omitempty"`
	Body    []*Node         `json:"body,omitempty"`
	Params  []paramJSON     `json:"params,omitempty"`
	Var     string          `json:"var,omitempty"`
	Start   *Node           `json:"start,omitempty"`
	End     *Node           `json:"end,omitempty"`
}

// ParseProgram decodes a JSON-encoded statement list.
func ParseProgram(data []byte) ([]*Node, error) {
	var prog []*Node
	if err := json.Unmarshal(data, &prog); err != nil {
		return nil, errors.Wrap(err, "decoding program")
	}
	return prog, nil
}

// UnmarshalJSON decodes one node from its wire form.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case "int":
		var v int64
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return errors.Wrap(err, "int literal")
		}
		*n = *NewIntLit(v)
	case "float":
		var v float64
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return errors.Wrap(err, "float literal")
		}
		*n = *NewFloatLit(v)
	case "bool":
		var v bool
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return errors.Wrap(err, "bool literal")
		}
		*n = *NewBoolLit(v)
	case "string":
		var v string
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return errors.Wrap(err, "string literal")
		}
		*n = *NewStringLit(v)
	case "var":
		*n = *NewVarRef(raw.Name)
	case "binop":
		op, ok := binOpNames[raw.Op]
		if !ok {
			return errors.Errorf("unknown binary operator %q", raw.Op)
		}
		*n = *NewBinOp(op, raw.Left, raw.Right)
	case "compare":
		op, ok := cmpNames[raw.Op]
		if !ok {
			return errors.Errorf("unknown comparison operator %q", raw.Op)
		}
		*n = *NewCompare(op, raw.Left, raw.Right)
	case "unary":
		op, ok := unaryNames[raw.Op]
		if !ok {
			return errors.Errorf("unknown unary operator %q", raw.Op)
		}
		*n = *NewUnaryOp(op, raw.Operand)
	case "call":
		*n = *NewCall(raw.Name, raw.Args)
	case "input":
		*n = *NewInput()
	case "len":
		*n = *NewLen(raw.Operand)
	case "list":
		*n = *NewListLit(raw.Elems)
	case "index":
		*n = *NewIndex(raw.Target, raw.Index)
	case "print":
		*n = *NewPrint(raw.Args)
	case "assign":
		*n = *NewAssign(raw.Name, raw.Expr)
	case "expr_stmt":
		*n = *NewExprStmt(raw.Expr)
	case "return":
		*n = *NewReturn(raw.Expr)
	case "func_def":
		params := make([]Param, len(raw.Params))
		for i, p := range raw.Params {
			params[i] = Param{Name: p.Name, Default: p.Default}
		}
		*n = *NewFuncDef(raw.Name, params, raw.Body)
	case "if":
		*n = *NewIf(raw.Cond, raw.Then, raw.Else)
	case "while":
		*n = *NewWhile(raw.Cond, raw.Body)
	case "for":
		*n = *NewFor(raw.Var, raw.Start, raw.End, raw.Body)
	case "break":
		*n = *NewBreak()
	case "continue":
		*n = *NewContinue()
	default:
		return errors.Errorf("unknown node kind %q", raw.Kind)
	}
	return nil
}
