package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadMacro reads a single macro from disk.
func LoadMacro(path string) (*Macro, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("macro path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macro %s: %w", path, err)
	}

	m, err := parseMacro(data)
	if err != nil {
		return nil, fmt.Errorf("parse macro %s: %w", path, err)
	}
	m.Source = path
	return m, nil
}

// LoadMacrosFromDir loads all macros from a directory. A missing directory
// yields an empty list.
func LoadMacrosFromDir(dir string) ([]*Macro, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Macro{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Macro{}, nil
		}
		return nil, fmt.Errorf("read macros dir %s: %w", dir, err)
	}

	macros := make([]*Macro, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := LoadMacro(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		macros = append(macros, m)
	}

	sort.Slice(macros, func(i, j int) bool {
		return macros[i].Name < macros[j].Name
	})

	return macros, nil
}

func parseMacro(data []byte) (*Macro, error) {
	var m Macro
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, fmt.Errorf("macro name is required")
	}
	m.Description = strings.TrimSpace(m.Description)
	m.Channel = strings.TrimSpace(m.Channel)
	m.Target = strings.TrimSpace(m.Target)

	if strings.TrimSpace(m.Text) == "" {
		return nil, fmt.Errorf("macro text is required")
	}

	if m.Channel != "" {
		ch, err := models.ParseChannel(m.Channel)
		if err != nil {
			return nil, err
		}
		if ch == models.ChannelWhisper && m.Target != "" && !models.ParseTarget(m.Target).Resolved() {
			return nil, fmt.Errorf("whisper target %q has no name", m.Target)
		}
	}

	seen := make(map[string]struct{})
	for i := range m.Variables {
		name := strings.TrimSpace(m.Variables[i].Name)
		if name == "" {
			return nil, fmt.Errorf("macro variable name is required")
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("duplicate macro variable %q", name)
		}
		seen[name] = struct{}{}
		m.Variables[i].Name = name
	}

	return &m, nil
}

// FindMacro returns the macro with the given name, case-insensitively.
func FindMacro(macros []*Macro, name string) *Macro {
	for _, m := range macros {
		if equalFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// FilterByTags keeps macros carrying any of the tags. No tags keeps everything.
func FilterByTags(macros []*Macro, tags []string) []*Macro {
	if len(tags) == 0 {
		return macros
	}
	out := make([]*Macro, 0, len(macros))
	for _, m := range macros {
		for _, tag := range tags {
			if m.HasTag(tag) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
