package codegen

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// The native runtime bridge. Generated code leans on the C library for I/O
// and heap management; declarations are inserted by name exactly once, so
// repeated lookups are idempotent.

var (
	i8Ptr  = types.NewPointer(types.I8)
	i64Ptr = types.NewPointer(types.I64)
)

// Format strings owned by the bridge.
const (
	fmtIntLn   = "%lld\n"
	fmtFloatLn = "%f\n"
	fmtStrLn   = "%s\n"
	fmtInt     = "%lld"
	fmtFloat   = "%f"
	fmtStr     = "%s"
	fmtSpace   = " "
	fmtNewline = "\n"
	fmtScanf   = "%lf"
)

// getOrDeclare returns the module's declaration of name, inserting it if
// absent.
func (c *Compiler) getOrDeclare(name string, variadic bool, ret types.Type, params ...*llvm.Param) *llvm.Func {
	for _, f := range c.mod.Funcs {
		if f.Name() == name {
			return f
		}
	}
	f := c.mod.NewFunc(name, ret, params...)
	f.Sig.Variadic = variadic
	return f
}

func (c *Compiler) printf() *llvm.Func {
	return c.getOrDeclare("printf", true, types.I32, llvm.NewParam("", i8Ptr))
}

func (c *Compiler) scanf() *llvm.Func {
	return c.getOrDeclare("scanf", true, types.I32, llvm.NewParam("", i8Ptr))
}

func (c *Compiler) malloc() *llvm.Func {
	return c.getOrDeclare("malloc", false, i8Ptr, llvm.NewParam("", types.I64))
}

func (c *Compiler) free() *llvm.Func {
	return c.getOrDeclare("free", false, types.Void, llvm.NewParam("", i8Ptr))
}

func (c *Compiler) strlen() *llvm.Func {
	return c.getOrDeclare("strlen", false, types.I64, llvm.NewParam("", i8Ptr))
}

func (c *Compiler) memcpy() *llvm.Func {
	return c.getOrDeclare("memcpy", false, i8Ptr,
		llvm.NewParam("", i8Ptr), llvm.NewParam("", i8Ptr), llvm.NewParam("", types.I64))
}

// cstring returns a NUL-terminated global for s, deduplicated by content
// hash so identical literals and format strings share one definition.
func (c *Compiler) cstring(s string) *llvm.Global {
	h := xxhash.Sum64String(s)
	if g, ok := c.strs[h]; ok {
		return g
	}
	g := c.mod.NewGlobalDef(fmt.Sprintf("str.%016x", h), constant.NewCharArrayFromString(s+"\x00"))
	g.Immutable = true
	c.strs[h] = g
	return g
}

// cstringPtr emits a pointer to the first byte of the global for s.
func (c *Compiler) cstringPtr(s string) value.Value {
	g := c.cstring(s)
	elemTy := g.Type().(*types.PointerType).ElemType
	zero := constant.NewInt(types.I32, 0)
	gep := c.cur.NewGetElementPtr(elemTy, g, zero, zero)
	gep.InBounds = true
	return gep
}
