// Package tui implements the interactive terminal selectors used by the
// manage command: a checkbox list for picking the desired skill set and a
// single-choice picker for backend and scope.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// SkillItem is one selectable entry in the skill picker
type SkillItem struct {
	Name        string
	Description string
	Selected    bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type selectorKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Confirm   key.Binding
	Quit      key.Binding
}

var selectorKeys = selectorKeyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k")),
	Down:      key.NewBinding(key.WithKeys("down", "j")),
	Toggle:    key.NewBinding(key.WithKeys(" ")),
	ToggleAll: key.NewBinding(key.WithKeys("a")),
	Confirm:   key.NewBinding(key.WithKeys("enter")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

type selectorModel struct {
	title     string
	items     []SkillItem
	cursor    int
	confirmed bool
}

func (m selectorModel) Init() tea.Cmd {
	return nil
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, selectorKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, selectorKeys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, selectorKeys.Toggle):
		m.items[m.cursor].Selected = !m.items[m.cursor].Selected
	case key.Matches(keyMsg, selectorKeys.ToggleAll):
		allSelected := true
		for _, item := range m.items {
			if !item.Selected {
				allSelected = false
				break
			}
		}
		for i := range m.items {
			m.items[i].Selected = !allSelected
		}
	case key.Matches(keyMsg, selectorKeys.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(keyMsg, selectorKeys.Quit):
		return m, tea.Quit
	}

	return m, nil
}

func (m selectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("◆ " + m.title))
	b.WriteString("\n\n")

	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		checkbox := dimStyle.Render("[ ]")
		if item.Selected {
			checkbox = selectedStyle.Render("[x]")
		}

		line := fmt.Sprintf("%s (%s)", item.Name, item.Description)
		if i != m.cursor {
			line = dimStyle.Render(line)
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, checkbox, line))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("(space select, enter confirm, ↑↓ move, a toggle all, q quit)"))
	b.WriteString("\n")

	return b.String()
}

// SelectSkills runs the interactive checkbox picker and returns the final
// item states. The second return value is false when the user cancelled.
func SelectSkills(title string, items []SkillItem) ([]SkillItem, bool, error) {
	if len(items) == 0 {
		return nil, true, nil
	}

	program := tea.NewProgram(selectorModel{title: title, items: items})
	final, err := program.Run()
	if err != nil {
		return nil, false, errors.Wrap(err, "skill selector failed")
	}

	m, ok := final.(selectorModel)
	if !ok {
		return nil, false, errors.New("unexpected selector model")
	}

	return m.items, m.confirmed, nil
}

type chooseModel struct {
	title     string
	options   []string
	cursor    int
	confirmed bool
}

func (m chooseModel) Init() tea.Cmd {
	return nil
}

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, selectorKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, selectorKeys.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, selectorKeys.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(keyMsg, selectorKeys.Quit):
		return m, tea.Quit
	}

	return m, nil
}

func (m chooseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("◆ " + m.title))
	b.WriteString("\n\n")

	for i, option := range m.options {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + option + "\n")
		} else {
			b.WriteString("  " + dimStyle.Render(option) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("(enter confirm, ↑↓ move, q quit)"))
	b.WriteString("\n")

	return b.String()
}

// Choose runs a single-choice picker over the given options. The second
// return value is false when the user cancelled.
func Choose(title string, options []string) (string, bool, error) {
	program := tea.NewProgram(chooseModel{title: title, options: options})
	final, err := program.Run()
	if err != nil {
		return "", false, errors.Wrap(err, "picker failed")
	}

	m, ok := final.(chooseModel)
	if !ok {
		return "", false, errors.New("unexpected picker model")
	}

	if !m.confirmed {
		return "", false, nil
	}
	return m.options[m.cursor], true, nil
}
