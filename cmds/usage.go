package cmds

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

func (p *Executor) PrintUsage() {
	p.WriteUsage(os.Stderr)
}

func (p *Executor) WriteUsage(w io.Writer) {
	writeCommands(w, p.commands, 0)
}

func writeCommands(w io.Writer, commands map[string]*Command, depth int) {
	var names []string
	seen := make(map[*Command]bool)
	for name, command := range commands {
		if command == nil || seen[command] {
			continue
		}
		if slices.Contains(command.Aliases, name) {
			continue
		}
		seen[command] = true
		names = append(names, name)
	}
	slices.Sort(names)

	indent := strings.Repeat("  ", depth)
	for _, name := range names {
		command := commands[name]
		line := indent + name
		if len(command.Aliases) > 0 {
			line += " (" + strings.Join(command.Aliases, ", ") + ")"
		}
		if command.Func.IsValid() {
			for i := range command.Func.Type().NumIn() {
				line += " <" + command.Func.Type().In(i).String() + ">"
			}
		}
		if command.Description != "" {
			line += "\t" + command.Description
		}
		fmt.Fprintln(w, line)
		if len(command.Subs) > 0 {
			writeCommands(w, command.Subs, depth+1)
		}
	}
}

func (p *Executor) printError(err error) {
	fmt.Fprintf(os.Stderr, "%v\n\n", err)
	p.PrintUsage()
	os.Exit(2)
}
