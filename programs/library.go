package programs

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/reusee/tvm/configs"
	"github.com/reusee/tvm/vm"
)

//go:embed schema.cue
var schema string

// Library maps program names to decoded instruction lists.
type Library map[string][]vm.Instr

func (l Library) Program(name string) ([]vm.Instr, bool) {
	code, ok := l[name]
	return code, ok
}

func (l Library) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// Load decodes the programs of every file. Earlier files win on name conflicts.
func Load(paths ...string) (Library, error) {
	loader := configs.NewLoader(paths, schema)
	lib := make(Library)
	for value, err := range loader.IterCueValues("programs") {
		if err != nil {
			return nil, err
		}
		var specs map[string][]Spec
		if err := value.Decode(&specs); err != nil {
			return nil, err
		}
		for name, program := range specs {
			if _, ok := lib[name]; ok {
				continue
			}
			code, err := Compile(program)
			if err != nil {
				return nil, fmt.Errorf("program %s: %w", name, err)
			}
			lib[name] = code
		}
	}
	return lib, nil
}

func Disassemble(code []vm.Instr) string {
	var b strings.Builder
	for i, inst := range code {
		fmt.Fprintf(&b, "%4d  %s\n", i, inst)
	}
	return b.String()
}
