package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pylc/pkg/config"
	"pylc/pkg/ir"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Target = ""
	cfg.Optimize = false
	// Keep test output quiet.
	for wt, w := range cfg.Warnings {
		w.Enabled = false
		cfg.Warnings[wt] = w
	}
	return cfg
}

func compile(t *testing.T, prog []*ir.Node) string {
	t.Helper()
	text, err := New(testConfig()).Compile(prog)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return text
}

func mustContain(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(text, w) {
			t.Errorf("emitted module missing %q", w)
		}
	}
}

func TestArithmeticPrint(t *testing.T) {
	// print(1 + 2 * 3)
	prog := []*ir.Node{
		ir.NewPrint([]*ir.Node{
			ir.NewBinOp(ir.Add,
				ir.NewIntLit(1),
				ir.NewBinOp(ir.Mul, ir.NewIntLit(2), ir.NewIntLit(3))),
		}),
	}
	text := compile(t, prog)
	mustContain(t, text,
		"define i32 @main()",
		"@printf",
		"fmul double",
		"fadd double",
		"add.concat", "add.arith", "add.merge",
		"phi i64",
		`c"%lld\0A\00"`,
	)
}

func TestStringConcat(t *testing.T) {
	// x = "ab"; y = "cd"; print(x + y)
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewStringLit("ab")),
		ir.NewAssign("y", ir.NewStringLit("cd")),
		ir.NewPrint([]*ir.Node{
			ir.NewBinOp(ir.Add, ir.NewVarRef("x"), ir.NewVarRef("y")),
		}),
	}
	text := compile(t, prog)
	mustContain(t, text,
		`c"ab\00"`, `c"cd\00"`,
		"@strlen", "@malloc", "@memcpy",
		"add.concat",
	)
}

func TestStringLiteralDeduplicated(t *testing.T) {
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewStringLit("dup")),
		ir.NewAssign("y", ir.NewStringLit("dup")),
	}
	text := compile(t, prog)
	if got := strings.Count(text, `c"dup\00"`); got != 1 {
		t.Errorf("literal global defined %d times, want 1", got)
	}
	// Two distinct heap copies are still made.
	if got := strings.Count(text, "call i8* @malloc("); got != 2 {
		t.Errorf("found %d malloc calls, want 2", got)
	}
}

func TestArenaFreesTopLevelStrings(t *testing.T) {
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewStringLit("tracked")),
	}
	text := compile(t, prog)
	if got := strings.Count(text, "call void @free("); got != 1 {
		t.Errorf("found %d free calls, want 1", got)
	}
}

func TestArenaIgnoresFunctionBodyStrings(t *testing.T) {
	prog := []*ir.Node{
		ir.NewFuncDef("f", nil, []*ir.Node{
			ir.NewReturn(ir.NewStringLit("leaked")),
		}),
	}
	text := compile(t, prog)
	if strings.Contains(text, "call void @free(") {
		t.Error("function-body string buffer must not be freed by the arena")
	}
}

func TestArenaIgnoresBranchedTopLevelStrings(t *testing.T) {
	// A string built inside a top-level if body is past the entry block and
	// stays untracked.
	prog := []*ir.Node{
		ir.NewIf(ir.NewBoolLit(true),
			[]*ir.Node{ir.NewAssign("x", ir.NewStringLit("branched"))},
			nil),
	}
	text := compile(t, prog)
	if strings.Contains(text, "call void @free(") {
		t.Error("branched allocation must not be freed by the arena")
	}
}

func TestMutualRecursion(t *testing.T) {
	// def even(n): if n == 0: return True
	//              return odd(n - 1)
	// def odd(n):  if n == 0: return False
	//              return even(n - 1)
	evenBody := []*ir.Node{
		ir.NewIf(ir.NewCompare(ir.Eq, ir.NewVarRef("n"), ir.NewIntLit(0)),
			[]*ir.Node{ir.NewReturn(ir.NewBoolLit(true))}, nil),
		ir.NewReturn(ir.NewCall("odd", []*ir.Node{
			ir.NewBinOp(ir.Sub, ir.NewVarRef("n"), ir.NewIntLit(1)),
		})),
	}
	oddBody := []*ir.Node{
		ir.NewIf(ir.NewCompare(ir.Eq, ir.NewVarRef("n"), ir.NewIntLit(0)),
			[]*ir.Node{ir.NewReturn(ir.NewBoolLit(false))}, nil),
		ir.NewReturn(ir.NewCall("even", []*ir.Node{
			ir.NewBinOp(ir.Sub, ir.NewVarRef("n"), ir.NewIntLit(1)),
		})),
	}
	prog := []*ir.Node{
		ir.NewFuncDef("even", []ir.Param{{Name: "n"}}, evenBody),
		ir.NewFuncDef("odd", []ir.Param{{Name: "n"}}, oddBody),
		ir.NewPrint([]*ir.Node{ir.NewCall("even", []*ir.Node{ir.NewIntLit(4)})}),
	}
	text := compile(t, prog)
	mustContain(t, text,
		"define i64 @even(i64 %n)",
		"define i64 @odd(i64 %n)",
		"call i64 @odd",
		"call i64 @even",
	)
}

func TestRecursiveFactorial(t *testing.T) {
	// def f(n): if n <= 1: return 1
	//           return n * f(n - 1)
	body := []*ir.Node{
		ir.NewIf(ir.NewCompare(ir.LtE, ir.NewVarRef("n"), ir.NewIntLit(1)),
			[]*ir.Node{ir.NewReturn(ir.NewIntLit(1))}, nil),
		ir.NewReturn(ir.NewBinOp(ir.Mul,
			ir.NewVarRef("n"),
			ir.NewCall("f", []*ir.Node{ir.NewBinOp(ir.Sub, ir.NewVarRef("n"), ir.NewIntLit(1))}))),
	}
	prog := []*ir.Node{
		ir.NewFuncDef("f", []ir.Param{{Name: "n"}}, body),
		ir.NewPrint([]*ir.Node{ir.NewCall("f", []*ir.Node{ir.NewIntLit(5)})}),
	}
	text := compile(t, prog)
	mustContain(t, text, "define i64 @f(i64 %n)", "call i64 @f", "%n.addr")
}

func TestDefaultArgumentsCompiledFresh(t *testing.T) {
	// def f(a, b=input()): return a + b
	// f(1); f(2)  -- the default is compiled at each call site.
	prog := []*ir.Node{
		ir.NewFuncDef("f",
			[]ir.Param{{Name: "a"}, {Name: "b", Default: ir.NewInput()}},
			[]*ir.Node{ir.NewReturn(ir.NewBinOp(ir.Add, ir.NewVarRef("a"), ir.NewVarRef("b")))}),
		ir.NewExprStmt(ir.NewCall("f", []*ir.Node{ir.NewIntLit(1)})),
		ir.NewExprStmt(ir.NewCall("f", []*ir.Node{ir.NewIntLit(2)})),
	}
	text := compile(t, prog)
	// One declaration plus one fresh default compiled per call site.
	if got := strings.Count(text, "@scanf("); got != 3 {
		t.Errorf("found %d scanf occurrences, want 3", got)
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	prog := []*ir.Node{
		ir.NewFuncDef("add", []ir.Param{{Name: "a"}, {Name: "b"}},
			[]*ir.Node{ir.NewReturn(ir.NewBinOp(ir.Add, ir.NewVarRef("a"), ir.NewVarRef("b")))}),
		ir.NewExprStmt(ir.NewCall("add", []*ir.Node{ir.NewIntLit(5)})),
	}
	_, err := New(testConfig()).Compile(prog)
	var ue *UndefinedError
	if !errors.As(err, &ue) {
		t.Fatalf("Compile error = %v, want *UndefinedError", err)
	}
	want := &UndefinedError{Kind: RefArgument, Name: "add", Arg: 1}
	if diff := cmp.Diff(want, ue); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
	if got := ue.Error(); got != "missing required argument 1 for function 'add'" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUndefinedVariable(t *testing.T) {
	prog := []*ir.Node{
		ir.NewPrint([]*ir.Node{ir.NewVarRef("ghost")}),
	}
	_, err := New(testConfig()).Compile(prog)
	var ue *UndefinedError
	if !errors.As(err, &ue) {
		t.Fatalf("Compile error = %v, want *UndefinedError", err)
	}
	if ue.Kind != RefVariable || ue.Name != "ghost" {
		t.Errorf("got %+v, want variable 'ghost'", ue)
	}
}

func TestUndefinedFunction(t *testing.T) {
	prog := []*ir.Node{
		ir.NewExprStmt(ir.NewCall("nope", nil)),
	}
	_, err := New(testConfig()).Compile(prog)
	var ue *UndefinedError
	if !errors.As(err, &ue) {
		t.Fatalf("Compile error = %v, want *UndefinedError", err)
	}
	if ue.Kind != RefFunction || ue.Name != "nope" {
		t.Errorf("got %+v, want function 'nope'", ue)
	}
}

func TestFunctionScopeIsolation(t *testing.T) {
	// A body cannot see top-level locals.
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewIntLit(1)),
		ir.NewFuncDef("f", nil, []*ir.Node{ir.NewReturn(ir.NewVarRef("x"))}),
	}
	_, err := New(testConfig()).Compile(prog)
	var ue *UndefinedError
	if !errors.As(err, &ue) || ue.Kind != RefVariable {
		t.Fatalf("Compile error = %v, want undefined variable", err)
	}
}

func TestForLoopShape(t *testing.T) {
	// for i in range(0, 3): print(i)
	prog := []*ir.Node{
		ir.NewFor("i", ir.NewIntLit(0), ir.NewIntLit(3),
			[]*ir.Node{ir.NewPrint([]*ir.Node{ir.NewVarRef("i")})}),
	}
	text := compile(t, prog)
	mustContain(t, text,
		"for.cond", "for.body", "for.incr", "for.end",
		"fcmp olt double",
		"fadd double",
		"%i.addr",
	)
}

func TestWhileWithNestedBreak(t *testing.T) {
	// x = 0
	// while x < 5: print(x); if x == 3: break
	//              x = x + 1
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewIntLit(0)),
		ir.NewWhile(ir.NewCompare(ir.Lt, ir.NewVarRef("x"), ir.NewIntLit(5)),
			[]*ir.Node{
				ir.NewPrint([]*ir.Node{ir.NewVarRef("x")}),
				ir.NewIf(ir.NewCompare(ir.Eq, ir.NewVarRef("x"), ir.NewIntLit(3)),
					[]*ir.Node{ir.NewBreak()}, nil),
				ir.NewAssign("x", ir.NewBinOp(ir.Add, ir.NewVarRef("x"), ir.NewIntLit(1))),
			}),
	}
	text := compile(t, prog)
	mustContain(t, text, "while.cond", "while.body", "while.end")
}

func TestBreakOutsideLoop(t *testing.T) {
	_, err := New(testConfig()).Compile([]*ir.Node{ir.NewBreak()})
	var ue *UndefinedError
	if !errors.As(err, &ue) || ue.Kind != RefLoop {
		t.Fatalf("Compile error = %v, want loop-target error", err)
	}
}

func TestLenDispatch(t *testing.T) {
	prog := []*ir.Node{
		ir.NewPrint([]*ir.Node{ir.NewLen(ir.NewStringLit("abc"))}),
	}
	text := compile(t, prog)
	mustContain(t, text, "len.str", "len.checklist", "len.list", "len.other", "len.merge", "@strlen")
}

func TestListLiteralAndIndex(t *testing.T) {
	// xs = [1, 2, 3]; print(xs[1])
	prog := []*ir.Node{
		ir.NewAssign("xs", ir.NewListLit([]*ir.Node{
			ir.NewIntLit(1), ir.NewIntLit(2), ir.NewIntLit(3),
		})),
		ir.NewPrint([]*ir.Node{ir.NewIndex(ir.NewVarRef("xs"), ir.NewIntLit(1))}),
	}
	text := compile(t, prog)
	mustContain(t, text, "@malloc(i64 32)", "store i64 3")
}

func TestReturnInBothArms(t *testing.T) {
	body := []*ir.Node{
		ir.NewIf(ir.NewCompare(ir.Lt, ir.NewVarRef("n"), ir.NewIntLit(0)),
			[]*ir.Node{ir.NewReturn(ir.NewIntLit(-1))},
			[]*ir.Node{ir.NewReturn(ir.NewIntLit(1))}),
	}
	prog := []*ir.Node{
		ir.NewFuncDef("sign", []ir.Param{{Name: "n"}}, body),
	}
	// Without the optimizer the unreachable merge block survives,
	// terminated by the default return.
	text := compile(t, prog)
	mustContain(t, text, "if.end")
}

func TestOptimizerDropsUnreachableMerge(t *testing.T) {
	body := []*ir.Node{
		ir.NewIf(ir.NewCompare(ir.Lt, ir.NewVarRef("n"), ir.NewIntLit(0)),
			[]*ir.Node{ir.NewReturn(ir.NewIntLit(-1))},
			[]*ir.Node{ir.NewReturn(ir.NewIntLit(1))}),
	}
	prog := []*ir.Node{
		ir.NewFuncDef("sign", []ir.Param{{Name: "n"}}, body),
	}
	cfg := testConfig()
	cfg.Optimize = true
	text, err := New(cfg).Compile(prog)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(text, "if.end") {
		t.Error("unreachable merge block survived the optimizer")
	}
}

func TestTopLevelReturnExitsProgram(t *testing.T) {
	// A return outside any function ends the program: the arena is released
	// and main exits 0 rather than returning a boxed i64.
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewStringLit("tracked")),
		ir.NewReturn(ir.NewIntLit(1)),
	}
	text := compile(t, prog)
	mustContain(t, text, "ret i32 0")
	if strings.Contains(text, "ret i64") {
		t.Error("boxed return value leaked into main")
	}
	if got := strings.Count(text, "call void @free("); got != 1 {
		t.Errorf("found %d free calls, want 1", got)
	}
}

func TestUnreachableStatementsDropped(t *testing.T) {
	prog := []*ir.Node{
		ir.NewFuncDef("f", nil, []*ir.Node{
			ir.NewReturn(ir.NewIntLit(1)),
			ir.NewPrint([]*ir.Node{ir.NewIntLit(2)}),
		}),
	}
	text := compile(t, prog)
	if strings.Contains(text, "@printf") {
		t.Error("statements after return were still compiled")
	}
}

func TestEmptyPrintEmitsNewline(t *testing.T) {
	text := compile(t, []*ir.Node{ir.NewPrint(nil)})
	mustContain(t, text, `c"\0A\00"`)
}

func TestModuleVerifies(t *testing.T) {
	prog := []*ir.Node{
		ir.NewAssign("x", ir.NewIntLit(0)),
		ir.NewWhile(ir.NewCompare(ir.Lt, ir.NewVarRef("x"), ir.NewIntLit(5)),
			[]*ir.Node{
				ir.NewAssign("x", ir.NewBinOp(ir.Add, ir.NewVarRef("x"), ir.NewIntLit(1))),
				ir.NewIf(ir.NewCompare(ir.Eq, ir.NewVarRef("x"), ir.NewIntLit(3)),
					[]*ir.Node{ir.NewContinue()}, nil),
			}),
	}
	c := New(testConfig())
	if _, err := c.Compile(prog); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := VerifyModule(c.Module()); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
}

func TestTargetTripleStamped(t *testing.T) {
	cfg := testConfig()
	cfg.Target = "x86_64-pc-linux-gnu"
	text, err := New(cfg).Compile([]*ir.Node{ir.NewPrint(nil)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustContain(t, text, `target triple = "x86_64-pc-linux-gnu"`)
}
