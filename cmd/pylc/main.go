// Command pylc compiles the tree IR of a small Python-like language into a
// textual LLVM module. The front end and lowering stage live elsewhere; the
// input here is their JSON-encoded output.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"pylc/pkg/cli"
	"pylc/pkg/codegen"
	"pylc/pkg/config"
	"pylc/pkg/ir"
	"pylc/pkg/util"
)

func main() {
	cfg := config.New()

	app := cli.NewApp("pylc")
	app.Synopsis = "[options] <input.json>"
	app.Description = "Compiles lowered program IR into an LLVM module. Reads from stdin when the input is '-'."

	var (
		output   string
		target   string
		optimize bool
	)
	fs := app.FlagSet
	fs.String(&output, "output", "o", "", "Write the module to <file> ('-' for stdout, the default)", "file")
	fs.String(&target, "target", "t", cfg.Target, "Target triple stamped on the emitted module", "triple")
	fs.Bool(&optimize, "optimize", "O", cfg.Optimize, "Run the backend optimization pipeline before emission")

	entries := make([]cli.GroupEntry, 0, len(cfg.Warnings))
	for _, w := range cfg.Warnings {
		entries = append(entries, cli.GroupEntry{Name: w.Name, Usage: w.Description, Default: w.Enabled})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	fs.AddGroup(cli.Group{Name: "Warnings", Prefix: "W", Entries: entries, Set: cfg.SetWarning})

	app.Action = func(args []string) error {
		if len(args) != 1 {
			util.Error("expected exactly one input file, got %d", len(args))
		}
		input := args[0]
		cfg.Target = target
		cfg.Optimize = optimize
		if input != "-" {
			base := input[strings.LastIndex(input, "/")+1:]
			cfg.ModuleName = strings.TrimSuffix(base, ".json")
		}

		data, err := readInput(input)
		if err != nil {
			util.Error("reading %s: %v", input, err)
		}
		prog, err := ir.ParseProgram(data)
		if err != nil {
			util.Error("parsing %s: %v", input, err)
		}
		text, err := codegen.New(cfg).Compile(prog)
		if err != nil {
			util.Error("%v", err)
		}
		return writeOutput(output, text)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
