package codegen

import (
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"pylc/pkg/ir"
)

// Function compilation is a two-pass protocol. declareFunction registers
// every definition's name, arity and default expressions before any body
// compiles, so bodies may reference functions defined later, including
// mutually recursive pairs. compileFunctionBody is the second pass.

// declareFunction inserts the function declaration and records its default
// expressions. The orchestrator deduplicates names before this runs.
func (c *Compiler) declareFunction(def ir.FuncDefNode) {
	params := make([]*llvm.Param, len(def.Params))
	defaults := make([]*ir.Node, len(def.Params))
	for i, p := range def.Params {
		params[i] = llvm.NewParam(p.Name, types.I64)
		defaults[i] = p.Default
	}
	fn := c.mod.NewFunc(def.Name, types.I64, params...)
	c.funcs[def.Name] = fn
	c.defaults[def.Name] = defaults
}

// compileFunctionBody compiles one body against the complete declaration
// table. The enclosing scope's locals are hidden for the duration: a body
// sees its parameters and its own assignments, nothing else. Parameters are
// copied into fresh stack slots so they are mutable like ordinary locals.
func (c *Compiler) compileFunctionBody(def ir.FuncDefNode) error {
	fn := c.funcs[def.Name]

	savedVars, savedFn, savedCur, savedEntry := c.vars, c.fn, c.cur, c.entry
	defer func() {
		c.vars, c.fn, c.cur, c.entry = savedVars, savedFn, savedCur, savedEntry
	}()

	entry := fn.NewBlock("entry")
	c.fn, c.cur, c.entry = fn, entry, entry
	c.vars = make(map[string]*llvm.InstAlloca)

	for i, p := range def.Params {
		slot := c.allocaVar(p.Name)
		c.cur.NewStore(fn.Params[i], slot)
		c.vars[p.Name] = slot
	}

	terminated, err := c.compileBlock(def.Body)
	if err != nil {
		return err
	}
	if !terminated {
		// Falling off the end returns the default value.
		c.cur.NewRet(c.constInt(0))
	}

	return verifyFunc(fn)
}
