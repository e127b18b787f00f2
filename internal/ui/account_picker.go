package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
)

// accountItem implements list.Item for the Bubbles list component.
type accountItem struct {
	account model.Account
	alias   string
}

func (i accountItem) Title() string {
	return i.account.Name
}

func (i accountItem) Description() string {
	parts := []string{fmt.Sprintf("%s <%s>", i.account.UserName, i.account.UserEmail)}
	if i.account.Type != nil {
		parts = append(parts, "["+i.account.Type.Name+"]")
	}
	if i.alias != "" && i.account.HasKey() {
		parts = append(parts, i.alias)
	}
	return strings.Join(parts, " | ")
}

func (i accountItem) FilterValue() string {
	values := []string{i.account.Name, i.account.UserName, i.account.UserEmail}
	if i.account.Type != nil {
		values = append(values, i.account.Type.Name)
	}
	return strings.Join(values, " ")
}

// AccountPickerModel is a Bubble Tea model for selecting an account.
type AccountPickerModel struct {
	list     list.Model
	accounts []model.Account
	selected *model.Account
	quitting bool
}

type accountPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var accountPickerKeys = accountPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewAccountPickerModel creates a picker over accounts. prefix is the host
// alias prefix shown next to accounts that have a key.
func NewAccountPickerModel(title, prefix string, accounts []model.Account) AccountPickerModel {
	items := make([]list.Item, len(accounts))
	for i, a := range accounts {
		items[i] = accountItem{account: a, alias: model.HostAlias(prefix, a.Name)}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorAccent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted).
		BorderForeground(ColorAccent)

	l := list.New(items, delegate, 80, 15)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle().Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	return AccountPickerModel{list: l, accounts: accounts}
}

// Init implements tea.Model.
func (m AccountPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m AccountPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, accountPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(accountItem); ok {
				acct := item.account
				m.selected = &acct
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, accountPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m AccountPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the selected account, or nil if cancelled.
func (m AccountPickerModel) Selected() *model.Account {
	return m.selected
}

// PickAccount shows an interactive account picker on the terminal. Returns
// nil if the user cancels.
func PickAccount(title, prefix string, accounts []model.Account) (*model.Account, error) {
	return PickAccountWithIO(title, prefix, accounts, os.Stdout, os.Stdin)
}

// PickAccountWithIO is PickAccount with custom I/O.
func PickAccountWithIO(title, prefix string, accounts []model.Account, output io.Writer, input io.Reader) (*model.Account, error) {
	if len(accounts) == 0 {
		return nil, errors.New(errors.ErrNotFound,
			"No accounts to pick from",
			"Add one with: gitacct account add <name> --user <name> --email <email>")
	}

	if len(accounts) == 1 {
		return &accounts[0], nil
	}

	p := tea.NewProgram(
		NewAccountPickerModel(title, prefix, accounts),
		tea.WithOutput(output),
		tea.WithInput(input),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			"Account picker failed",
			"Pass the account explicitly with --account instead.")
	}

	if m, ok := finalModel.(AccountPickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}

// IsTerminal returns true if f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
