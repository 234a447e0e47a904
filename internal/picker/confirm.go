package picker

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// maxConfirmItems caps the lines listed by the confirmation prompt.
const maxConfirmItems = 15

// Confirm asks a yes/no question about a list of items. Anything but an
// explicit yes declines.
type Confirm struct {
	prompt   string
	items    []string
	accepted bool
	done     bool
	keys     confirmKeyMap
	help     help.Model
}

// NewConfirm creates a confirmation prompt.
func NewConfirm(prompt string, items []string) Confirm {
	return Confirm{prompt: prompt, items: items, keys: defaultConfirmKeyMap(), help: help.New()}
}

// Init implements tea.Model.
func (c Confirm) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (c Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, c.keys.Yes):
			c.accepted, c.done = true, true
			return c, tea.Quit
		case key.Matches(msg, c.keys.No):
			c.done = true
			return c, tea.Quit
		}
	}
	return c, nil
}

// View implements tea.Model.
func (c Confirm) View() string {
	if c.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(c.prompt))
	b.WriteString("\n\n")
	for i, item := range c.items {
		if i == maxConfirmItems {
			b.WriteString(urlStyle.Render(fmt.Sprintf("   ... and %d more", len(c.items)-maxConfirmItems)))
			b.WriteString("\n")
			break
		}
		b.WriteString("   ")
		b.WriteString(normalStyle.Render(item))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(c.help.View(c.keys))
	return b.String()
}

// Accepted reports whether the user answered yes.
func (c Confirm) Accepted() bool {
	return c.accepted
}

// Prompter shows Confirm on a terminal. It satisfies cleanup.Confirmer.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm runs the prompt and waits for the answer.
func (p Prompter) Confirm(prompt string, items []string) (bool, error) {
	var opts []tea.ProgramOption
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	final, err := tea.NewProgram(NewConfirm(prompt, items), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("run confirmation prompt: %w", err)
	}
	return final.(Confirm).Accepted(), nil
}
