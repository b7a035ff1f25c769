package codegen

import (
	"errors"
	"strings"
	"testing"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

func TestVerifyMissingTerminator(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("broken", types.I64)
	f.NewBlock("entry") // never terminated

	err := verifyFunc(f)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if ve.Func != "broken" || !strings.Contains(ve.Detail, "no terminator") {
		t.Errorf("unexpected error: %v", ve)
	}
}

func TestVerifyPhiNonPredecessor(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("phis", types.I64)
	entry := f.NewBlock("entry")
	stray := f.NewBlock("stray")
	merge := f.NewBlock("merge")

	entry.NewBr(merge)
	stray.NewRet(constant.NewInt(types.I64, 0))
	// stray never branches to merge, so this incoming is bogus.
	phi := merge.NewPhi(
		llvm.NewIncoming(constant.NewInt(types.I64, 1), entry),
		llvm.NewIncoming(constant.NewInt(types.I64, 2), stray),
	)
	merge.NewRet(phi)

	err := verifyFunc(f)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "non-predecessor") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyPhiMissingPredecessor(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("phis", types.I64)
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	merge := f.NewBlock("merge")

	entry.NewCondBr(constant.True, left, right)
	left.NewBr(merge)
	right.NewBr(merge)
	phi := merge.NewPhi(
		llvm.NewIncoming(constant.NewInt(types.I64, 1), left),
		// incoming for right is missing
	)
	merge.NewRet(phi)

	err := verifyFunc(f)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "misses predecessor") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyReturnType(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("f", types.I32)
	entry := f.NewBlock("entry")
	entry.NewRet(constant.NewInt(types.I64, 0))

	err := verifyFunc(f)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "returns i64, function returns i32") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyVoidReturnMismatch(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("f", types.I64)
	entry := f.NewBlock("entry")
	entry.NewRet(nil)

	err := verifyFunc(f)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "returns void") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyCallArity(t *testing.T) {
	m := llvm.NewModule()
	callee := m.NewFunc("callee", types.I64, llvm.NewParam("a", types.I64))
	caller := m.NewFunc("caller", types.I64)
	bb := caller.NewBlock("entry")
	res := bb.NewCall(callee,
		constant.NewInt(types.I64, 1),
		constant.NewInt(types.I64, 2))
	bb.NewRet(res)

	err := verifyFunc(caller)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "passes 2 args, callee takes 1") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyVariadicCallArity(t *testing.T) {
	m := llvm.NewModule()
	va := m.NewFunc("va", types.I32,
		llvm.NewParam("format", types.NewPointer(types.I8)))
	va.Sig.Variadic = true

	caller := m.NewFunc("caller", types.I64)
	bb := caller.NewBlock("entry")
	bb.NewCall(va) // zero args, needs at least one
	bb.NewRet(constant.NewInt(types.I64, 0))

	err := verifyFunc(caller)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("verifyFunc = %v, want *VerifyError", err)
	}
	if !strings.Contains(ve.Detail, "at least 1") {
		t.Errorf("unexpected detail: %q", ve.Detail)
	}
}

func TestVerifyWellFormed(t *testing.T) {
	m := llvm.NewModule()
	f := m.NewFunc("fine", types.I64)
	entry := f.NewBlock("entry")
	done := f.NewBlock("done")
	entry.NewBr(done)
	done.NewRet(constant.NewInt(types.I64, 0))

	if err := VerifyModule(m); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
}
