package macro

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// RenderMacro applies variables to the macro text.
func RenderMacro(m *Macro, vars map[string]string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("macro is required")
	}

	data := make(map[string]string, len(vars))
	for key, value := range vars {
		data[key] = value
	}

	for _, variable := range m.Variables {
		value := strings.TrimSpace(data[variable.Name])
		if value == "" {
			if variable.Default != "" {
				data[variable.Name] = variable.Default
				continue
			}
			if variable.Required {
				return "", fmt.Errorf("missing required variable %q", variable.Name)
			}
		}
	}

	parsed, err := template.New(m.Name).
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(m.Text)
	if err != nil {
		return "", fmt.Errorf("parse macro %q: %w", m.Name, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render macro %q: %w", m.Name, err)
	}

	return out.String(), nil
}

// Compile renders the macro and parses it into steps. The macro's own channel
// and target override the ones in opts when set; the options actually used
// are returned with the steps.
func Compile(m *Macro, vars map[string]string, opts Options) ([]models.Step, Options, error) {
	text, err := RenderMacro(m, vars)
	if err != nil {
		return nil, opts, err
	}

	resolved, err := m.ResolveOptions(opts)
	if err != nil {
		return nil, opts, err
	}

	return Parse(text, resolved), resolved, nil
}

// ResolveOptions overlays the macro's channel and target on top of opts.
func (m *Macro) ResolveOptions(opts Options) (Options, error) {
	if m.Channel != "" {
		ch, err := models.ParseChannel(m.Channel)
		if err != nil {
			return opts, fmt.Errorf("macro %q: %w", m.Name, err)
		}
		opts.Channel = ch
	}
	if m.Target != "" {
		opts.Target = models.ParseTarget(m.Target)
	}
	return opts, nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	default:
		text := strings.TrimSpace(fmt.Sprint(v))
		if text == "" {
			return def
		}
		return text
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
