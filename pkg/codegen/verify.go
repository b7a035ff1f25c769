package codegen

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Structural verification of generated functions. The IR library builds
// whatever it is told to, so the checks a full backend would run at module
// scope live here: a verification failure means the code generator itself
// produced malformed output, and compilation aborts with the function named.

// verifyFunc checks one defined function for structural consistency.
func verifyFunc(f *llvm.Func) error {
	if len(f.Blocks) == 0 {
		// Declaration only; nothing to check.
		return nil
	}

	preds := predecessors(f)
	for _, b := range f.Blocks {
		if b.Term == nil {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("block %q has no terminator", b.LocalIdent.Ident())}
		}
		if ret, ok := b.Term.(*llvm.TermRet); ok {
			if err := checkRet(f, b, ret); err != nil {
				return err
			}
		}
		for _, inst := range b.Insts {
			switch in := inst.(type) {
			case *llvm.InstPhi:
				if err := checkPhi(f, b, in, preds[b]); err != nil {
					return err
				}
			case *llvm.InstCall:
				if err := checkCall(f, in); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// VerifyModule checks every defined function.
func VerifyModule(m *llvm.Module) error {
	for _, f := range m.Funcs {
		if err := verifyFunc(f); err != nil {
			return err
		}
	}
	return nil
}

// predecessors maps each block to the set of blocks that branch to it.
func predecessors(f *llvm.Func) map[*llvm.Block]map[*llvm.Block]bool {
	preds := make(map[*llvm.Block]map[*llvm.Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		preds[b] = make(map[*llvm.Block]bool)
	}
	for _, b := range f.Blocks {
		for _, s := range successors(b) {
			if _, ok := preds[s]; ok {
				preds[s][b] = true
			}
		}
	}
	return preds
}

// successors lists the blocks a block's terminator can transfer to.
func successors(b *llvm.Block) []*llvm.Block {
	switch t := b.Term.(type) {
	case *llvm.TermBr:
		if tb, ok := t.Target.(*llvm.Block); ok {
			return []*llvm.Block{tb}
		}
	case *llvm.TermCondBr:
		var out []*llvm.Block
		if tb, ok := t.TargetTrue.(*llvm.Block); ok {
			out = append(out, tb)
		}
		if fb, ok := t.TargetFalse.(*llvm.Block); ok {
			out = append(out, fb)
		}
		return out
	case *llvm.TermSwitch:
		var out []*llvm.Block
		if db, ok := t.TargetDefault.(*llvm.Block); ok {
			out = append(out, db)
		}
		for _, cs := range t.Cases {
			if cb, ok := cs.Target.(*llvm.Block); ok {
				out = append(out, cb)
			}
		}
		return out
	}
	return nil
}

// checkRet requires the returned value's type to agree with the function's
// signature.
func checkRet(f *llvm.Func, b *llvm.Block, ret *llvm.TermRet) error {
	want := f.Sig.RetType
	if types.Equal(want, types.Void) {
		if ret.X != nil {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("block %q returns a value from a void function", b.LocalIdent.Ident())}
		}
		return nil
	}
	if ret.X == nil {
		return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("block %q returns void from a %v function", b.LocalIdent.Ident(), want)}
	}
	if !types.Equal(ret.X.Type(), want) {
		return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("block %q returns %v, function returns %v", b.LocalIdent.Ident(), ret.X.Type(), want)}
	}
	return nil
}

// checkPhi requires one incoming per actual predecessor, no more, no less.
func checkPhi(f *llvm.Func, b *llvm.Block, phi *llvm.InstPhi, preds map[*llvm.Block]bool) error {
	seen := make(map[*llvm.Block]bool, len(phi.Incs))
	for _, inc := range phi.Incs {
		pb, ok := inc.Pred.(*llvm.Block)
		if !ok || !preds[pb] {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("phi in block %q names a non-predecessor", b.LocalIdent.Ident())}
		}
		if seen[pb] {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("phi in block %q names a predecessor twice", b.LocalIdent.Ident())}
		}
		seen[pb] = true
	}
	for p := range preds {
		if !seen[p] {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("phi in block %q misses predecessor %q", b.LocalIdent.Ident(), p.LocalIdent.Ident())}
		}
	}
	return nil
}

// checkCall requires the argument count to match the callee's signature.
func checkCall(f *llvm.Func, call *llvm.InstCall) error {
	ptr, ok := call.Callee.Type().(*types.PointerType)
	if !ok {
		return nil
	}
	sig, ok := ptr.ElemType.(*types.FuncType)
	if !ok {
		return nil
	}
	n := len(call.Args)
	want := len(sig.Params)
	if sig.Variadic {
		if n < want {
			return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("call passes %d args, variadic callee needs at least %d", n, want)}
		}
		return nil
	}
	if n != want {
		return &VerifyError{Func: f.Name(), Detail: fmt.Sprintf("call passes %d args, callee takes %d", n, want)}
	}
	return nil
}
