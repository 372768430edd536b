package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// Styles holds the lipgloss styles of the text output.
type Styles struct {
	Create lipgloss.Style
	Update lipgloss.Style
	Delete lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles returns the standard styles for text output.
func DefaultStyles() Styles {
	return Styles{
		Create: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")), // Green
		Update: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")), // Cyan
		Delete: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")), // Red
		Header: lipgloss.NewStyle().Bold(true),
		Muted:  lipgloss.NewStyle().Faint(true),
	}
}

var styles = DefaultStyles()

// actionStyle returns the style of an action kind.
func (s Styles) actionStyle(kind tree.ActionKind) lipgloss.Style {
	switch kind {
	case tree.ActionCreate:
		return s.Create
	case tree.ActionDelete:
		return s.Delete
	default:
		return s.Update
	}
}

// printActions writes the tree action log, one "CREATE path" line per
// change. Dry runs get a trailing note that nothing was written.
func printActions(w io.Writer, actions []tree.Action, dryRun bool) {
	if len(actions) == 0 {
		_, _ = fmt.Fprintln(w, styles.Muted.Render("Nothing to do."))
		return
	}
	for _, a := range actions {
		label := styles.actionStyle(a.Kind).Render(fmt.Sprintf("%-6s", strings.ToUpper(string(a.Kind))))
		_, _ = fmt.Fprintf(w, "%s %s\n", label, a.Path)
	}
	if dryRun {
		_, _ = fmt.Fprintln(w, styles.Muted.Render("\nNOTE: The \"dryRun\" flag means no changes were made."))
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
