package codegen

import (
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"pylc/pkg/ir"
	"pylc/pkg/nanbox"
)

// compileExpr compiles one expression into code yielding a single boxed
// value. The insertion cursor may move: expressions with runtime dispatch
// (Add, len) end in their merge block.
func (c *Compiler) compileExpr(n *ir.Node) (value.Value, error) {
	switch n.Kind {
	case ir.IntLit:
		return c.constInt(n.Data.(ir.IntLitNode).Value), nil
	case ir.FloatLit:
		return c.constFloat(n.Data.(ir.FloatLitNode).Value), nil
	case ir.BoolLit:
		return c.constBool(n.Data.(ir.BoolLitNode).Value), nil
	case ir.StringLit:
		return c.compileStringLit(n.Data.(ir.StringLitNode).Value), nil
	case ir.VarRef:
		name := n.Data.(ir.VarRefNode).Name
		slot, ok := c.vars[name]
		if !ok {
			return nil, &UndefinedError{Kind: RefVariable, Name: name}
		}
		return c.cur.NewLoad(types.I64, slot), nil
	case ir.BinOp:
		return c.compileBinOp(n.Data.(ir.BinOpNode))
	case ir.Compare:
		return c.compileCompare(n.Data.(ir.CompareNode))
	case ir.UnaryOp:
		return c.compileUnary(n.Data.(ir.UnaryOpNode))
	case ir.Call:
		return c.compileCall(n.Data.(ir.CallNode))
	case ir.Input:
		return c.compileInput(), nil
	case ir.Len:
		return c.compileLen(n.Data.(ir.LenNode))
	case ir.ListLit:
		return c.compileListLit(n.Data.(ir.ListLitNode))
	case ir.Index:
		return c.compileIndex(n.Data.(ir.IndexNode))
	default:
		return nil, &UndefinedError{Kind: RefVariable, Name: "<non-expression node>"}
	}
}

// compileStringLit copies the literal's bytes into a fresh heap buffer. A
// buffer allocated while the cursor sits in the program entry block is
// registered with the arena and freed at program exit; all other sites leak
// by accepted policy.
func (c *Compiler) compileStringLit(s string) value.Value {
	size := i64Const(uint64(len(s) + 1))
	buf := c.cur.NewCall(c.malloc(), size)
	src := c.cstringPtr(s)
	c.cur.NewCall(c.memcpy(), buf, src, size)
	if c.cur == c.mainEntry {
		c.arena = append(c.arena, buf)
	}
	return c.boxPtr(nanbox.TagString, buf)
}

func (c *Compiler) compileBinOp(op ir.BinOpNode) (value.Value, error) {
	left, err := c.compileExpr(op.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(op.Right)
	if err != nil {
		return nil, err
	}

	switch op.Op {
	case ir.Add:
		return c.compileAdd(left, right), nil
	case ir.Sub, ir.Mul, ir.Div, ir.Mod:
		return c.compileArith(op.Op, left, right), nil
	default:
		return c.compileBitwise(op.Op, left, right), nil
	}
}

// compileAdd handles the one operator whose meaning depends on runtime
// kinds. Both possibilities are generated as real code paths: string
// concatenation when both tags are STRING, float-domain addition otherwise,
// joined by a phi. The choice happens when the program runs, not here.
func (c *Compiler) compileAdd(left, right value.Value) value.Value {
	ltag := c.extractTag(left)
	rtag := c.extractTag(right)
	strTag := constant.NewInt(types.I64, nanbox.RuntimeString)
	lIsStr := c.cur.NewICmp(enum.IPredEQ, ltag, strTag)
	rIsStr := c.cur.NewICmp(enum.IPredEQ, rtag, strTag)
	bothStr := c.cur.NewAnd(lIsStr, rIsStr)

	concatB := c.newBlock("add.concat")
	arithB := c.newBlock("add.arith")
	mergeB := c.newBlock("add.merge")
	c.cur.NewCondBr(bothStr, concatB, arithB)

	// Concatenation: new buffer of len(l)+len(r)+1, both payloads copied in,
	// NUL terminator appended.
	c.cur = concatB
	lptr := c.stringPtr(left)
	rptr := c.stringPtr(right)
	llen := c.cur.NewCall(c.strlen(), lptr)
	rlen := c.cur.NewCall(c.strlen(), rptr)
	total := c.cur.NewAdd(llen, rlen)
	size := c.cur.NewAdd(total, i64Const(1))
	buf := c.cur.NewCall(c.malloc(), size)
	c.cur.NewCall(c.memcpy(), buf, lptr, llen)
	tail := c.cur.NewGetElementPtr(types.I8, buf, llen)
	tail.InBounds = true
	c.cur.NewCall(c.memcpy(), tail, rptr, rlen)
	end := c.cur.NewGetElementPtr(types.I8, buf, total)
	end.InBounds = true
	c.cur.NewStore(constant.NewInt(types.I8, 0), end)
	concatRes := c.boxPtr(nanbox.TagString, buf)
	concatPred := c.cur
	c.cur.NewBr(mergeB)

	// Arithmetic: float-domain addition, re-tagged FLOAT if either operand
	// was FLOAT, INT otherwise.
	c.cur = arithB
	arithRes := c.promoteArith(left, right, ltag, rtag, func(x, y value.Value) value.Value {
		return c.cur.NewFAdd(x, y)
	})
	arithPred := c.cur
	c.cur.NewBr(mergeB)

	c.cur = mergeB
	return mergeB.NewPhi(llvm.NewIncoming(concatRes, concatPred), llvm.NewIncoming(arithRes, arithPred))
}

// promoteArith computes a float-domain binary result and reboxes it under
// FLOAT if either operand tag is FLOAT, else INT.
func (c *Compiler) promoteArith(left, right, ltag, rtag value.Value, op func(x, y value.Value) value.Value) value.Value {
	lp := c.extractPayload(left)
	rp := c.extractPayload(right)
	res := op(lp, rp)
	floatTag := constant.NewInt(types.I64, nanbox.RuntimeFloat)
	intTag := constant.NewInt(types.I64, nanbox.RuntimeInt)
	lIsF := c.cur.NewICmp(enum.IPredEQ, ltag, floatTag)
	rIsF := c.cur.NewICmp(enum.IPredEQ, rtag, floatTag)
	either := c.cur.NewOr(lIsF, rIsF)
	tag := c.cur.NewSelect(either, floatTag, intTag)
	return c.rebuild(tag, res)
}

func (c *Compiler) compileArith(kind ir.BinOpKind, left, right value.Value) value.Value {
	ltag := c.extractTag(left)
	rtag := c.extractTag(right)
	return c.promoteArith(left, right, ltag, rtag, func(x, y value.Value) value.Value {
		switch kind {
		case ir.Sub:
			return c.cur.NewFSub(x, y)
		case ir.Mul:
			return c.cur.NewFMul(x, y)
		case ir.Div:
			return c.cur.NewFDiv(x, y)
		default: // Mod
			return c.cur.NewFRem(x, y)
		}
	})
}

// compileBitwise truncates both operands to i64 and always yields INT.
// Out-of-range shift amounts stay unchecked: the target's semantics apply.
func (c *Compiler) compileBitwise(kind ir.BinOpKind, left, right value.Value) value.Value {
	li := c.cur.NewFPToSI(c.extractPayload(left), types.I64)
	ri := c.cur.NewFPToSI(c.extractPayload(right), types.I64)
	var res value.Value
	switch kind {
	case ir.BitAnd:
		res = c.cur.NewAnd(li, ri)
	case ir.BitOr:
		res = c.cur.NewOr(li, ri)
	case ir.BitXor:
		res = c.cur.NewXor(li, ri)
	case ir.LShift:
		res = c.cur.NewShl(li, ri)
	default: // RShift
		res = c.cur.NewAShr(li, ri)
	}
	return c.boxInt(res)
}

var cmpPreds = map[ir.CmpKind]enum.FPred{
	ir.Eq:    enum.FPredOEQ,
	ir.NotEq: enum.FPredONE,
	ir.Lt:    enum.FPredOLT,
	ir.LtE:   enum.FPredOLE,
	ir.Gt:    enum.FPredOGT,
	ir.GtE:   enum.FPredOGE,
}

// compileCompare evaluates both sides in the float domain and yields BOOL.
func (c *Compiler) compileCompare(cmp ir.CompareNode) (value.Value, error) {
	left, err := c.compileExpr(cmp.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(cmp.Right)
	if err != nil {
		return nil, err
	}
	lp := c.extractPayload(left)
	rp := c.extractPayload(right)
	res := c.cur.NewFCmp(cmpPreds[cmp.Op], lp, rp)
	return c.boxBool(res), nil
}

func (c *Compiler) compileUnary(un ir.UnaryOpNode) (value.Value, error) {
	operand, err := c.compileExpr(un.Operand)
	if err != nil {
		return nil, err
	}
	switch un.Op {
	case ir.UAdd:
		return operand, nil
	case ir.USub:
		// Negation keeps the operand's runtime tag, so -i stays INT and -f
		// stays FLOAT.
		tag := c.extractTag(operand)
		neg := c.cur.NewFNeg(c.extractPayload(operand))
		return c.rebuild(tag, neg), nil
	case ir.Not:
		b := c.truth(operand)
		inv := c.cur.NewXor(b, constant.True)
		return c.boxBool(inv), nil
	default: // Invert
		i := c.cur.NewFPToSI(c.extractPayload(operand), types.I64)
		inv := c.cur.NewXor(i, constant.NewInt(types.I64, -1))
		return c.boxInt(inv), nil
	}
}

// compileCall resolves the callee from the declaration table (populated
// before any body compiles, so forward and mutual references work) and fills
// unsupplied trailing arguments from their recorded default expressions,
// compiled fresh at every call site.
func (c *Compiler) compileCall(call ir.CallNode) (value.Value, error) {
	callee, ok := c.funcs[call.Name]
	if !ok {
		return nil, &UndefinedError{Kind: RefFunction, Name: call.Name}
	}

	args := make([]value.Value, 0, len(callee.Params))
	for _, a := range call.Args {
		v, err := c.compileExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	defaults := c.defaults[call.Name]
	for i := len(call.Args); i < len(callee.Params); i++ {
		def := defaults[i]
		if def == nil {
			return nil, &UndefinedError{Kind: RefArgument, Name: call.Name, Arg: i}
		}
		v, err := c.compileExpr(def)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return c.cur.NewCall(callee, args...), nil
}

// compileInput reads one double from standard input and boxes it as FLOAT.
func (c *Compiler) compileInput() value.Value {
	slot := c.cur.NewAlloca(types.Double)
	fmtPtr := c.cstringPtr(fmtScanf)
	c.cur.NewCall(c.scanf(), fmtPtr, slot)
	loaded := c.cur.NewLoad(types.Double, slot)
	return c.boxFloat(loaded)
}

// compileLen dispatches on the operand's runtime tag: byte length for
// strings, stored element count for lists, zero for everything else. Three
// generated branches meet at one phi.
func (c *Compiler) compileLen(ln ir.LenNode) (value.Value, error) {
	operand, err := c.compileExpr(ln.Operand)
	if err != nil {
		return nil, err
	}
	tag := c.extractTag(operand)

	strB := c.newBlock("len.str")
	checkListB := c.newBlock("len.checklist")
	listB := c.newBlock("len.list")
	otherB := c.newBlock("len.other")
	mergeB := c.newBlock("len.merge")

	isStr := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeString))
	c.cur.NewCondBr(isStr, strB, checkListB)

	c.cur = strB
	n := c.cur.NewCall(c.strlen(), c.stringPtr(operand))
	strRes := c.boxInt(n)
	strPred := c.cur
	c.cur.NewBr(mergeB)

	c.cur = checkListB
	isList := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeList))
	c.cur.NewCondBr(isList, listB, otherB)

	c.cur = listB
	_, count := c.listPtr(operand)
	listRes := c.boxInt(count)
	listPred := c.cur
	c.cur.NewBr(mergeB)

	c.cur = otherB
	otherRes := c.constInt(0)
	otherB.NewBr(mergeB)

	c.cur = mergeB
	phi := mergeB.NewPhi(
		llvm.NewIncoming(strRes, strPred),
		llvm.NewIncoming(listRes, listPred),
		llvm.NewIncoming(otherRes, otherB),
	)
	return phi, nil
}

// compileListLit allocates the list block ([count][elem 0]...[elem n-1]) and
// stores each compiled element.
func (c *Compiler) compileListLit(lst ir.ListLitNode) (value.Value, error) {
	n := len(lst.Elems)
	raw := c.cur.NewCall(c.malloc(), i64Const(uint64(8*(n+1))))
	block := c.cur.NewBitCast(raw, i64Ptr)
	head := c.cur.NewGetElementPtr(types.I64, block, i64Const(0))
	head.InBounds = true
	c.cur.NewStore(constant.NewInt(types.I64, int64(n)), head)

	for i, e := range lst.Elems {
		v, err := c.compileExpr(e)
		if err != nil {
			return nil, err
		}
		slot := c.cur.NewGetElementPtr(types.I64, block, i64Const(uint64(i+1)))
		slot.InBounds = true
		c.cur.NewStore(v, slot)
	}
	return c.boxPtr(nanbox.TagList, raw), nil
}

// compileIndex loads element i, skipping the stored count. Bounds stay
// unchecked, matching the execution target's raw memory semantics.
func (c *Compiler) compileIndex(idx ir.IndexNode) (value.Value, error) {
	target, err := c.compileExpr(idx.Target)
	if err != nil {
		return nil, err
	}
	index, err := c.compileExpr(idx.Index)
	if err != nil {
		return nil, err
	}
	block, _ := c.listPtr(target)
	i := c.cur.NewFPToSI(c.extractPayload(index), types.I64)
	off := c.cur.NewAdd(i, i64Const(1))
	slot := c.cur.NewGetElementPtr(types.I64, block, off)
	slot.InBounds = true
	return c.cur.NewLoad(types.I64, slot), nil
}
