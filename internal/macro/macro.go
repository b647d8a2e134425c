package macro

// Macro is a named, reusable block of macro text loaded from YAML.
type Macro struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Channel     string     `yaml:"channel,omitempty"`
	Target      string     `yaml:"target,omitempty"`
	Text        string     `yaml:"text"`
	Variables   []Variable `yaml:"variables,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	Source      string     `yaml:"-"` // file path or "builtin"
}

// Variable describes a template variable used in macro text.
type Variable struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default,omitempty"`
	Required    bool   `yaml:"required"`
}

// HasTag reports whether the macro carries the tag, case-insensitively.
func (m *Macro) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if equalFold(t, tag) {
			return true
		}
	}
	return false
}
