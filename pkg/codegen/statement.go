package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"pylc/pkg/config"
	"pylc/pkg/ir"
	"pylc/pkg/nanbox"
	"pylc/pkg/util"
)

// compileStmt compiles one statement. It reports whether the insertion
// cursor's block ended in a terminator, so callers know not to emit a
// fall-through branch after it.
func (c *Compiler) compileStmt(n *ir.Node) (bool, error) {
	switch n.Kind {
	case ir.Print:
		return false, c.compilePrint(n.Data.(ir.PrintNode))
	case ir.Assign:
		return false, c.compileAssign(n.Data.(ir.AssignNode))
	case ir.ExprStmt:
		_, err := c.compileExpr(n.Data.(ir.ExprStmtNode).Expr)
		return false, err
	case ir.Return:
		return true, c.compileReturn(n.Data.(ir.ReturnNode))
	case ir.If:
		return c.compileIf(n.Data.(ir.IfNode))
	case ir.While:
		return false, c.compileWhile(n.Data.(ir.WhileNode))
	case ir.For:
		return false, c.compileFor(n.Data.(ir.ForNode))
	case ir.Break:
		return c.compileLoopExit("break")
	case ir.Continue:
		return c.compileLoopExit("continue")
	case ir.FuncDef:
		// Nested definitions never reach statement compilation: the
		// orchestrator strips them at the top level.
		return false, &UndefinedError{Kind: RefFunction, Name: n.Data.(ir.FuncDefNode).Name}
	default:
		_, err := c.compileExpr(n)
		return false, wrapStmt(err, "expression statement")
	}
}

// compilePrint prints each argument through a runtime tag dispatch, a single
// space between arguments and one trailing newline. No arguments prints just
// the newline.
func (c *Compiler) compilePrint(p ir.PrintNode) error {
	if len(p.Args) == 0 {
		c.cur.NewCall(c.printf(), c.cstringPtr(fmtNewline))
		return nil
	}
	for i, arg := range p.Args {
		v, err := c.compileExpr(arg)
		if err != nil {
			return err
		}
		last := i == len(p.Args)-1
		c.printValue(v, last)
		if !last {
			c.cur.NewCall(c.printf(), c.cstringPtr(fmtSpace))
		}
	}
	return nil
}

// printValue emits the tag dispatch for one printed value: STRING prints the
// payload bytes, INT the truncated integer, everything else the float
// payload. Three blocks, one merge, no result.
func (c *Compiler) printValue(v value.Value, newline bool) {
	intFmt, floatFmt, strFmt := fmtInt, fmtFloat, fmtStr
	if newline {
		intFmt, floatFmt, strFmt = fmtIntLn, fmtFloatLn, fmtStrLn
	}

	tag := c.extractTag(v)
	strB := c.newBlock("print.str")
	checkIntB := c.newBlock("print.checkint")
	intB := c.newBlock("print.int")
	floatB := c.newBlock("print.float")
	mergeB := c.newBlock("print.done")

	isStr := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeString))
	c.cur.NewCondBr(isStr, strB, checkIntB)

	c.cur = strB
	c.cur.NewCall(c.printf(), c.cstringPtr(strFmt), c.stringPtr(v))
	c.cur.NewBr(mergeB)

	c.cur = checkIntB
	isInt := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeInt))
	c.cur.NewCondBr(isInt, intB, floatB)

	c.cur = intB
	iv := c.cur.NewFPToSI(c.extractPayload(v), types.I64)
	c.cur.NewCall(c.printf(), c.cstringPtr(intFmt), iv)
	c.cur.NewBr(mergeB)

	c.cur = floatB
	c.cur.NewCall(c.printf(), c.cstringPtr(floatFmt), c.extractPayload(v))
	c.cur.NewBr(mergeB)

	c.cur = mergeB
}

// compileAssign stores into the name's slot, allocating it on first
// assignment within the active scope. There is no re-declaration.
func (c *Compiler) compileAssign(a ir.AssignNode) error {
	v, err := c.compileExpr(a.Value)
	if err != nil {
		return err
	}
	slot, ok := c.vars[a.Name]
	if !ok {
		if _, isFunc := c.funcs[a.Name]; isFunc {
			util.Warn(c.cfg, config.WarnShadowedFunction, "variable '%s' shadows a function of the same name", a.Name)
		}
		slot = c.allocaVar(a.Name)
		c.vars[a.Name] = slot
	}
	c.cur.NewStore(v, slot)
	return nil
}

// compileReturn returns the boxed value, or the boxed default when the value
// is omitted. At the top level there is no caller to receive a box: the value
// is still evaluated for its effects, then the arena is released and main
// exits with status 0.
func (c *Compiler) compileReturn(r ir.ReturnNode) error {
	v := c.constInt(0)
	if r.Value != nil {
		res, err := c.compileExpr(r.Value)
		if err != nil {
			return err
		}
		v = res
	}
	if c.fn == c.mainFn {
		c.freeArena()
		c.cur.NewRet(constant.NewInt(types.I32, 0))
		return nil
	}
	c.cur.NewRet(v)
	return nil
}

// compileIf branches on the condition's truth value. An arm's fall-through
// branch to the merge block is emitted only when the arm did not already
// terminate, so a return inside a branch survives intact.
func (c *Compiler) compileIf(stmt ir.IfNode) (bool, error) {
	cond, err := c.compileExpr(stmt.Cond)
	if err != nil {
		return false, err
	}
	test := c.truth(cond)

	thenB := c.newBlock("if.then")
	elseB := c.newBlock("if.else")
	mergeB := c.newBlock("if.end")
	c.cur.NewCondBr(test, thenB, elseB)

	c.cur = thenB
	thenTerm, err := c.compileBlock(stmt.Then)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		c.cur.NewBr(mergeB)
	}

	c.cur = elseB
	elseTerm, err := c.compileBlock(stmt.Else)
	if err != nil {
		return false, err
	}
	if !elseTerm {
		c.cur.NewBr(mergeB)
	}

	c.cur = mergeB
	return false, nil
}

// compileWhile evaluates the condition at the top of every iteration. The
// loop stack entry makes continue re-test the condition and break leave the
// loop.
func (c *Compiler) compileWhile(stmt ir.WhileNode) error {
	condB := c.newBlock("while.cond")
	bodyB := c.newBlock("while.body")
	endB := c.newBlock("while.end")
	c.cur.NewBr(condB)

	c.cur = condB
	cond, err := c.compileExpr(stmt.Cond)
	if err != nil {
		return err
	}
	c.cur.NewCondBr(c.truth(cond), bodyB, endB)

	c.loops = append(c.loops, loopTarget{cont: condB, brk: endB})
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	c.cur = bodyB
	terminated, err := c.compileBlock(stmt.Body)
	if err != nil {
		return err
	}
	if !terminated {
		c.cur.NewBr(condB)
	}

	c.cur = endB
	return nil
}

// compileFor lowers the range loop to init/cond/body/incr blocks over the
// half-open interval. The increment adds 1.0 in the float domain and reboxes
// under the variable's current runtime tag, so a FLOAT loop variable stays
// FLOAT.
func (c *Compiler) compileFor(stmt ir.ForNode) error {
	start, err := c.compileExpr(stmt.Start)
	if err != nil {
		return err
	}
	slot, ok := c.vars[stmt.Var]
	if !ok {
		slot = c.allocaVar(stmt.Var)
		c.vars[stmt.Var] = slot
	}
	c.cur.NewStore(start, slot)

	condB := c.newBlock("for.cond")
	bodyB := c.newBlock("for.body")
	incrB := c.newBlock("for.incr")
	endB := c.newBlock("for.end")
	c.cur.NewBr(condB)

	c.cur = condB
	cur := c.cur.NewLoad(types.I64, slot)
	end, err := c.compileExpr(stmt.End)
	if err != nil {
		return err
	}
	lt := c.cur.NewFCmp(enum.FPredOLT, c.extractPayload(cur), c.extractPayload(end))
	c.cur.NewCondBr(lt, bodyB, endB)

	c.loops = append(c.loops, loopTarget{cont: incrB, brk: endB})
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	c.cur = bodyB
	terminated, err := c.compileBlock(stmt.Body)
	if err != nil {
		return err
	}
	if !terminated {
		c.cur.NewBr(incrB)
	}

	c.cur = incrB
	val := c.cur.NewLoad(types.I64, slot)
	tag := c.extractTag(val)
	next := c.cur.NewFAdd(c.extractPayload(val), f64Const(1))
	c.cur.NewStore(c.rebuild(tag, next), slot)
	c.cur.NewBr(condB)

	c.cur = endB
	return nil
}

// compileLoopExit emits the unconditional branch for break or continue
// against the innermost loop.
func (c *Compiler) compileLoopExit(kind string) (bool, error) {
	if len(c.loops) == 0 {
		return false, &UndefinedError{Kind: RefLoop, Name: kind}
	}
	top := c.loops[len(c.loops)-1]
	if kind == "break" {
		c.cur.NewBr(top.brk)
	} else {
		c.cur.NewBr(top.cont)
	}
	return true, nil
}
