package codegen

import (
	llvm "github.com/llir/llvm/ir"
)

// A Pass rewrites one function in place and reports whether it changed
// anything. Passes run after verification, so they may assume structurally
// sound input and must keep it that way.
type Pass interface {
	Name() string
	Run(f *llvm.Func) bool
}

// Optimize runs each pass over every defined function in the module.
func Optimize(m *llvm.Module, passes ...Pass) {
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		for _, p := range passes {
			p.Run(f)
		}
	}
}

// DefaultPasses is the pipeline the orchestrator runs before serialization.
func DefaultPasses() []Pass {
	return []Pass{deadBlockPass{}}
}

// deadBlockPass removes blocks unreachable from the entry block. Merge
// blocks become unreachable when both arms of a conditional return early;
// dropping them keeps the emitted text free of orphan code.
type deadBlockPass struct{}

func (deadBlockPass) Name() string { return "dead-blocks" }

func (deadBlockPass) Run(f *llvm.Func) bool {
	reachable := make(map[*llvm.Block]bool, len(f.Blocks))
	stack := []*llvm.Block{f.Blocks[0]}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[b] {
			continue
		}
		reachable[b] = true
		stack = append(stack, successors(b)...)
	}

	if len(reachable) == len(f.Blocks) {
		return false
	}

	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	f.Blocks = kept

	// Phi incomings from removed predecessors go with them.
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			phi, ok := inst.(*llvm.InstPhi)
			if !ok {
				continue
			}
			incs := phi.Incs[:0]
			for _, inc := range phi.Incs {
				if pb, ok := inc.Pred.(*llvm.Block); ok && reachable[pb] {
					incs = append(incs, inc)
				}
			}
			phi.Incs = incs
		}
	}
	return true
}
