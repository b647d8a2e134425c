package macro

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltinMacros returns the macros bundled with VenuePlus.
func LoadBuiltinMacros() ([]*Macro, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin macros: %w", err)
	}

	macros := make([]*Macro, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin macro %s: %w", entry.Name(), err)
		}
		m, err := parseMacro(data)
		if err != nil {
			return nil, fmt.Errorf("parse builtin macro %s: %w", entry.Name(), err)
		}
		m.Source = "builtin"
		macros = append(macros, m)
	}

	sort.Slice(macros, func(i, j int) bool {
		return macros[i].Name < macros[j].Name
	})

	return macros, nil
}
