package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

var (
	macroListTags []string
	macroVars     []string
)

func init() {
	rootCmd.AddCommand(macrosCmd)
	macrosCmd.AddCommand(macrosListCmd)
	macrosCmd.AddCommand(macrosShowCmd)
	macrosCmd.AddCommand(macrosRunCmd)

	macrosListCmd.Flags().StringSliceVar(&macroListTags, "tag", nil, "only list macros carrying any of these tags")

	macrosRunCmd.Flags().StringArrayVar(&macroVars, "var", nil, "template variable as key=value (repeatable, comma separated)")
	macrosRunCmd.Flags().StringVarP(&inputChannel, "channel", "c", "", "override the macro channel")
	macrosRunCmd.Flags().StringVarP(&inputTarget, "target", "t", "", "override the whisper target (Name@World)")
	addRunFlags(macrosRunCmd)
}

var macrosCmd = &cobra.Command{
	Use:     "macros",
	Aliases: []string{"macro"},
	Short:   "List, inspect and run saved macros",
}

// macroListItem is the JSON shape of a macro summary.
type macroListItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Channel     string   `json:"channel,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source"`
	Path        string   `json:"path,omitempty"`
}

var macrosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available macros",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadMacroLibrary(cmd, GetConfig())
		if err != nil {
			return err
		}
		items := macro.FilterByTags(lib.macros, macroListTags)

		if IsJSONOutput() || IsJSONLOutput() {
			out := make([]macroListItem, 0, len(items))
			for _, m := range items {
				out = append(out, lib.listItem(m))
			}
			return WriteOutput(cmd.OutOrStdout(), out)
		}

		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No macros found.")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, m := range items {
			rows = append(rows, []string{
				m.Name,
				valueOr(m.Channel, "-"),
				lib.sourceLabel(m),
				truncate(m.Description, 48),
				strings.Join(m.Tags, ","),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"NAME", "CHANNEL", "SOURCE", "DESCRIPTION", "TAGS"}, rows)
	},
}

// macroDetail is the JSON shape of a single macro.
type macroDetail struct {
	macroListItem
	Target    string           `json:"target,omitempty"`
	Text      string           `json:"text"`
	Variables []macro.Variable `json:"variables,omitempty"`
}

var macrosShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a macro's text and variables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadMacroLibrary(cmd, GetConfig())
		if err != nil {
			return err
		}
		m, err := lib.find(args[0])
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), macroDetail{
				macroListItem: lib.listItem(m),
				Target:        m.Target,
				Text:          m.Text,
				Variables:     m.Variables,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:        %s\n", m.Name)
		fmt.Fprintf(out, "Description: %s\n", valueOr(m.Description, "-"))
		fmt.Fprintf(out, "Source:      %s\n", lib.sourceLabel(m))
		fmt.Fprintf(out, "Channel:     %s\n", valueOr(m.Channel, "(config default)"))
		if m.Target != "" {
			fmt.Fprintf(out, "Target:      %s\n", m.Target)
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(out, "Tags:        %s\n", strings.Join(m.Tags, ", "))
		}
		if len(m.Variables) > 0 {
			fmt.Fprintln(out, "\nVariables:")
			rows := make([][]string, 0, len(m.Variables))
			for _, v := range m.Variables {
				rows = append(rows, []string{v.Name, formatYesNo(v.Required), valueOr(v.Default, "-"), v.Description})
			}
			if err := writeTable(out, []string{"NAME", "REQUIRED", "DEFAULT", "DESCRIPTION"}, rows); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "\nText:")
		for _, line := range strings.Split(strings.TrimRight(m.Text, "\n"), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
		return nil
	},
}

var macrosRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Render a macro with variables and send it",
	Args:  cobra.ExactArgs(1),
	Example: `  venueplus macros run venue-open --var venue="The Gilded Lily" --var open=21:00
  venueplus macros run welcome -c whisper -t "Tataru Taru@Sargatanas"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		lib, err := loadMacroLibrary(cmd, cfg)
		if err != nil {
			return err
		}
		m, err := lib.find(args[0])
		if err != nil {
			return err
		}
		vars, err := parseMacroVars(macroVars)
		if err != nil {
			return err
		}

		steps, opts, err := compileMacro(m, vars, cfg.ParserOptions(), inputChannel, inputTarget)
		if err != nil {
			return err
		}

		return executeRun(cmd, runRequest{
			steps:   steps,
			source:  "macro:" + m.Name,
			channel: opts.Channel,
		})
	},
}

// compileMacro renders m and parses it with the effective options. Flags beat
// the macro's own channel, which beats the config default.
func compileMacro(m *macro.Macro, vars map[string]string, base macro.Options, channel, target string) ([]models.Step, macro.Options, error) {
	opts, err := m.ResolveOptions(base)
	if err != nil {
		return nil, base, err
	}
	opts, err = overrideOptions(opts, channel, target)
	if err != nil {
		return nil, base, err
	}

	text, err := macro.RenderMacro(m, vars)
	if err != nil {
		return nil, opts, err
	}
	return macro.Parse(text, opts), opts, nil
}

// overrideOptions applies explicit channel and target flags.
func overrideOptions(opts macro.Options, channel, target string) (macro.Options, error) {
	if strings.TrimSpace(channel) != "" {
		ch, err := models.ParseChannel(channel)
		if err != nil {
			return opts, err
		}
		opts.Channel = ch
	}
	if strings.TrimSpace(target) != "" {
		opts.Target = models.ParseTarget(target)
	}
	return opts, nil
}

type macroLibrary struct {
	macros     []*macro.Macro
	userDir    string
	projectDir string
}

func loadMacroLibrary(cmd *cobra.Command, cfg *config.Config) (*macroLibrary, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	lib := &macroLibrary{userDir: cfg.Macros.Dir}
	dirs := macro.SearchPaths(cwd)
	if cwd != "" && len(dirs) > 0 {
		lib.projectDir = dirs[0]
	}
	if lib.userDir != "" {
		dirs = append([]string{lib.userDir}, dirs...)
	} else if len(dirs) > 0 {
		lib.userDir = dirs[len(dirs)-1]
	}

	progress := startProgress(cmd.ErrOrStderr(), "Loading macros")
	lib.macros, err = macro.LoadMacrosFromSearchPaths(dirs...)
	if err != nil {
		progress.Fail(err)
		return nil, fmt.Errorf("load macros: %w", err)
	}
	progress.Done()
	return lib, nil
}

func (l *macroLibrary) find(name string) (*macro.Macro, error) {
	if m := macro.FindMacro(l.macros, name); m != nil {
		return m, nil
	}
	return nil, &PreflightError{
		Message:  fmt.Sprintf("macro %q not found", name),
		Hint:     "Macros are loaded from .venueplus/macros, ~/.config/venueplus/macros and the builtins",
		NextStep: "venueplus macros list",
	}
}

func (l *macroLibrary) sourceLabel(m *macro.Macro) string {
	return macroSourceLabel(m.Source, l.userDir, l.projectDir)
}

func (l *macroLibrary) listItem(m *macro.Macro) macroListItem {
	item := macroListItem{
		Name:        m.Name,
		Description: m.Description,
		Channel:     m.Channel,
		Tags:        m.Tags,
		Source:      l.sourceLabel(m),
	}
	if m.Source != "builtin" {
		item.Path = m.Source
	}
	return item
}

// parseMacroVars parses key=value pairs. An entry may hold several pairs
// separated by commas; a comma inside a value is kept when splitting would
// leave a piece without '='.
func parseMacroVars(values []string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, value := range values {
		for _, pair := range splitVarPairs(value) {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, val, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid --var %q: empty key", pair)
			}
			vars[key] = strings.TrimSpace(val)
		}
	}
	return vars, nil
}

func splitVarPairs(value string) []string {
	parts := strings.Split(value, ",")
	for _, part := range parts {
		if strings.TrimSpace(part) != "" && !strings.Contains(part, "=") {
			return []string{value}
		}
	}
	return parts
}

func macroSourceLabel(source, userDir, projectDir string) string {
	if source == "builtin" {
		return "builtin"
	}
	if projectDir != "" && isWithin(source, projectDir) {
		return "project"
	}
	if userDir != "" && isWithin(source, userDir) {
		return "user"
	}
	return "file"
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
