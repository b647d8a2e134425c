package macro

import (
	"os"
	"path/filepath"
)

// SearchPaths returns macro search directories in precedence order.
func SearchPaths(projectDir string) []string {
	paths := make([]string, 0, 2)
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".venueplus", "macros"))
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "venueplus", "macros"))
	}

	return paths
}

// LoadMacrosFromSearchPaths loads macros from the given directories, then the
// builtins, keeping the first macro seen for each name.
func LoadMacrosFromSearchPaths(dirs ...string) ([]*Macro, error) {
	seen := make(map[string]*Macro)
	order := make([]string, 0)

	add := func(macros []*Macro) {
		for _, m := range macros {
			if _, exists := seen[m.Name]; exists {
				continue
			}
			seen[m.Name] = m
			order = append(order, m.Name)
		}
	}

	for _, dir := range dirs {
		macros, err := LoadMacrosFromDir(dir)
		if err != nil {
			return nil, err
		}
		add(macros)
	}

	builtins, err := LoadBuiltinMacros()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Macro, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}

	return resolved, nil
}
