// Package cli implements the small flag and help-page framework used by the
// pylc driver: long and short flags, grouped toggle flags (-Wname /
// -Wno-name), and terminal-width-aware help rendering.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Value is the stored form of one flag.
type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	val, err := strconv.ParseBool(s)
	if err != nil && s != "" {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val || s == ""
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

// Flag is one registered option.
type Flag struct {
	Name      string
	Shorthand string
	Usage     string
	Value     Value
	DefValue  string
	ArgName   string // e.g. "file"; empty for booleans
}

// GroupEntry is one toggle inside a flag group, addressed as
// -<prefix><name> and -<prefix>no-<name>.
type GroupEntry struct {
	Name    string
	Usage   string
	Default bool
}

// Group is a family of toggles sharing a prefix, rendered as its own help
// section. Set is called for every toggle the command line flips.
type Group struct {
	Name    string
	Prefix  string
	Entries []GroupEntry
	Set     func(name string, enabled bool) bool
}

// FlagSet holds the registered flags and the positional arguments left after
// parsing.
type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []Group
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, argName string) {
	*p = value
	f.register(&stringValue{p}, name, shorthand, usage, value, argName)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.register(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

// AddGroup registers a toggle family like the -W warnings.
func (f *FlagSet) AddGroup(g Group) {
	f.groups = append(f.groups, g)
}

func (f *FlagSet) register(value Value, name, shorthand, usage, defValue, argName string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	fl := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ArgName: argName}
	f.flags[name] = fl
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = fl
	}
}

// Parse walks the argument list, setting flags and collecting positionals.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		var err error
		if strings.HasPrefix(arg, "--") {
			err = f.parseLong(arg, arguments, &i)
		} else {
			err = f.parseShort(arg, arguments, &i)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) parseLong(arg string, arguments []string, i *int) error {
	parts := strings.SplitN(arg[2:], "=", 2)
	name := parts[0]
	fl, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: --%s", name)
	}
	if len(parts) == 2 {
		return fl.Value.Set(parts[1])
	}
	if _, isBool := fl.Value.(*boolValue); isBool {
		return fl.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: --%s", name)
	}
	*i++
	return fl.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShort(arg string, arguments []string, i *int) error {
	// Group toggles first: -Wname and -Wno-name.
	for _, g := range f.groups {
		if !strings.HasPrefix(arg, "-"+g.Prefix) || len(arg) <= len(g.Prefix)+1 {
			continue
		}
		name := arg[len(g.Prefix)+1:]
		enabled := true
		if strings.HasPrefix(name, "no-") {
			name = name[3:]
			enabled = false
		}
		if !g.Set(name, enabled) {
			return fmt.Errorf("unknown %s: -%s%s", strings.ToLower(g.Name), g.Prefix, name)
		}
		return nil
	}

	shorthand := arg[1:2]
	fl, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	if _, isBool := fl.Value.(*boolValue); isBool {
		return fl.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return fl.Value.Set(value)
}

// App ties a FlagSet to an action and renders its help pages.
type App struct {
	Name        string
	Synopsis    string
	Description string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.writeUsage(os.Stderr)
		return err
	}
	if help {
		a.writeHelp(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) sortedFlags() []*Flag {
	flags := make([]*Flag, 0, len(a.FlagSet.flags))
	for _, fl := range a.FlagSet.flags {
		flags = append(flags, fl)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func formatFlag(fl *Flag) string {
	var sb strings.Builder
	if fl.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", fl.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", fl.Name)
	if fl.ArgName != "" {
		fmt.Fprintf(&sb, " <%s>", fl.ArgName)
	}
	return sb.String()
}

func (a *App) leftColumnWidth() int {
	width := 0
	for _, fl := range a.FlagSet.flags {
		if n := len(formatFlag(fl)); n > width {
			width = n
		}
	}
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Entries {
			if n := len(e.Name); n > width {
				width = n
			}
		}
	}
	return width
}

func (a *App) writeUsage(w *os.File) {
	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(w, "Run '%s --help' for all available options and flags.\n", a.Name)
}

func (a *App) writeHelp(w *os.File) {
	width := getTerminalWidth()
	left := a.leftColumnWidth()
	var sb strings.Builder

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n    %s\n", a.Description)
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "    For more details refer to %s\n", a.Repository)
	}

	sb.WriteString("\n    Options\n")
	for _, fl := range a.sortedFlags() {
		writeEntry(&sb, formatFlag(fl), fl.Usage, left, width)
	}

	for _, g := range a.FlagSet.groups {
		fmt.Fprintf(&sb, "\n    %s\n", g.Name)
		fmt.Fprintf(&sb, "        %-*s Enable a specific toggle\n", left, "-"+g.Prefix+"<name>")
		fmt.Fprintf(&sb, "        %-*s Disable a specific toggle\n", left, "-"+g.Prefix+"no-<name>")
		entries := make([]GroupEntry, len(g.Entries))
		copy(entries, g.Entries)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Default {
				mark = "|x|"
			}
			writeEntry(&sb, e.Name, e.Usage+" "+mark, left, width)
		}
	}
	fmt.Fprint(w, sb.String())
}

func writeEntry(sb *strings.Builder, leftPart, usage string, leftWidth, termWidth int) {
	avail := termWidth - leftWidth - 9
	if avail < 10 {
		avail = 10
	}
	lines := wrapText(usage, avail)
	if len(lines) == 0 {
		lines = []string{""}
	}
	fmt.Fprintf(sb, "        %-*s %s\n", leftWidth, leftPart, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "        %-*s %s\n", leftWidth, "", line)
	}
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len() > 0 && cur.Len()+1+len(word) > maxWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
