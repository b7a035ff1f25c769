// Package codegen translates the tree IR of pkg/ir into LLVM IR. Every
// source-level value is a single NaN-boxed i64 (see pkg/nanbox); type
// questions are resolved at run time by generated dispatch code, never at
// compile time.
package codegen

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"pylc/pkg/config"
	"pylc/pkg/ir"
	"pylc/pkg/util"
)

// loopTarget is one entry of the loop stack: where continue and break jump.
type loopTarget struct {
	cont *llvm.Block
	brk  *llvm.Block
}

// Compiler owns all mutable state for one program's compilation. It is
// single-use and not safe for concurrent use: every compile step reads and
// moves the insertion cursor.
type Compiler struct {
	cfg *config.Config
	mod *llvm.Module

	fn        *llvm.Func  // function under construction
	cur       *llvm.Block // insertion cursor
	entry     *llvm.Block // entry block of fn, receives variable slots
	mainFn    *llvm.Func  // synthesized program entry function
	mainEntry *llvm.Block // program entry block; gates arena tracking

	vars     map[string]*llvm.InstAlloca
	funcs    map[string]*llvm.Func
	defaults map[string][]*ir.Node // nil entry = required parameter

	loops []loopTarget
	arena []value.Value // string buffers to free before program exit

	strs    map[uint64]*llvm.Global // interned C strings by content hash
	blockID int
}

// New returns a Compiler for one program.
func New(cfg *config.Config) *Compiler {
	if cfg == nil {
		cfg = config.New()
	}
	mod := llvm.NewModule()
	mod.SourceFilename = cfg.ModuleName
	if cfg.Target != "" {
		mod.TargetTriple = cfg.Target
	}
	return &Compiler{
		cfg:      cfg,
		mod:      mod,
		vars:     make(map[string]*llvm.InstAlloca),
		funcs:    make(map[string]*llvm.Func),
		defaults: make(map[string][]*ir.Node),
		strs:     make(map[uint64]*llvm.Global),
	}
}

// Compile translates a whole program and returns the textual LLVM module.
// Function definitions are split from top-level statements; definitions are
// declared first (pass 1) and compiled second (pass 2), so bodies may call
// forward and mutually recursive functions. Top-level statements become the
// body of main, followed by arena cleanup and the program's exit.
func (c *Compiler) Compile(prog []*ir.Node) (string, error) {
	var defs, top []*ir.Node
	defIdx := make(map[string]int)
	for _, n := range prog {
		if n.Kind != ir.FuncDef {
			top = append(top, n)
			continue
		}
		// The last definition of a name wins.
		name := n.Data.(ir.FuncDefNode).Name
		if i, ok := defIdx[name]; ok {
			defs[i] = n
			continue
		}
		defIdx[name] = len(defs)
		defs = append(defs, n)
	}

	mainFn := c.mod.NewFunc("main", types.I32)
	entry := mainFn.NewBlock("entry")
	c.fn, c.cur, c.entry = mainFn, entry, entry
	c.mainFn = mainFn
	c.mainEntry = entry

	for _, d := range defs {
		c.declareFunction(d.Data.(ir.FuncDefNode))
	}
	for _, d := range defs {
		if err := c.compileFunctionBody(d.Data.(ir.FuncDefNode)); err != nil {
			return "", err
		}
	}

	terminated, err := c.compileBlock(top)
	if err != nil {
		return "", err
	}
	if !terminated {
		c.freeArena()
		c.cur.NewRet(constant.NewInt(types.I32, 0))
	}

	if err := verifyFunc(mainFn); err != nil {
		return "", err
	}

	if c.cfg.Optimize {
		Optimize(c.mod, DefaultPasses()...)
	}
	return c.mod.String(), nil
}

// Module exposes the module under construction, for verification in tests
// and for passes.
func (c *Compiler) Module() *llvm.Module { return c.mod }

// newBlock appends a fresh uniquely named block to the current function.
func (c *Compiler) newBlock(prefix string) *llvm.Block {
	c.blockID++
	return c.fn.NewBlock(fmt.Sprintf("%s.%d", prefix, c.blockID))
}

// compileBlock compiles a statement sequence. It reports whether the
// sequence ended the current block with a terminator; statements after that
// point can never execute and are dropped with a warning.
func (c *Compiler) compileBlock(stmts []*ir.Node) (bool, error) {
	for i, s := range stmts {
		terminated, err := c.compileStmt(s)
		if err != nil {
			return false, err
		}
		if terminated {
			if i+1 < len(stmts) {
				util.Warn(c.cfg, config.WarnUnreachableCode, "unreachable code dropped")
			}
			return true, nil
		}
	}
	return false, nil
}

// freeArena releases every tracked string buffer at the insertion cursor.
// It runs on each path that leaves main.
func (c *Compiler) freeArena() {
	for _, buf := range c.arena {
		c.cur.NewCall(c.free(), buf)
	}
}

// allocaVar reserves a stack slot in the current function's entry block.
// Slots always live in the entry block so they dominate every use, wherever
// the first assignment happens to sit.
func (c *Compiler) allocaVar(name string) *llvm.InstAlloca {
	slot := c.entry.NewAlloca(types.I64)
	slot.SetName(name + ".addr")
	return slot
}

func wrapStmt(err error, kind string) error {
	return errors.WithMessage(err, "compiling "+kind)
}
