package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
)

func testAccounts() []model.Account {
	return []model.Account{
		{ID: 1, Name: "work", UserName: "Jo Dev", UserEmail: "jo@corp.com", SSHKeyPath: "/k/work",
			Type: &model.AccountType{ID: 1, Name: "job"}},
		{ID: 2, Name: "personal", UserName: "Jo", UserEmail: "jo@home.org"},
	}
}

func TestAccountItem(t *testing.T) {
	accts := testAccounts()
	item := accountItem{account: accts[0], alias: "gitacct-work"}

	assert.Equal(t, "work", item.Title())
	desc := item.Description()
	assert.Contains(t, desc, "Jo Dev <jo@corp.com>")
	assert.Contains(t, desc, "[job]")
	assert.Contains(t, desc, "gitacct-work")
	assert.Contains(t, item.FilterValue(), "job")

	keyless := accountItem{account: accts[1], alias: "gitacct-personal"}
	assert.NotContains(t, keyless.Description(), "gitacct-personal")
}

func TestAccountPickerModel_Select(t *testing.T) {
	m := NewAccountPickerModel("Pick", "gitacct-", testAccounts())
	assert.Nil(t, m.Selected())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, cmd := next.(AccountPickerModel).Update(tea.KeyMsg{Type: tea.KeyEnter})

	picked := next.(AccountPickerModel)
	require.NotNil(t, picked.Selected())
	assert.Equal(t, "personal", picked.Selected().Name)
	assert.NotNil(t, cmd)
	assert.Empty(t, picked.View())
}

func TestAccountPickerModel_Cancel(t *testing.T) {
	m := NewAccountPickerModel("Pick", "gitacct-", testAccounts())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, next.(AccountPickerModel).Selected())
}

func TestPickAccountWithIO_Shortcuts(t *testing.T) {
	_, err := PickAccountWithIO("Pick", "gitacct-", nil, &bytes.Buffer{}, strings.NewReader(""))
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	one := testAccounts()[:1]
	acct, err := PickAccountWithIO("Pick", "gitacct-", one, &bytes.Buffer{}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "work", acct.Name)
}

func TestNotBlank(t *testing.T) {
	check := notBlank("name")
	assert.NoError(t, check("x"))
	assert.Error(t, check(" \t"))
	assert.Error(t, check(""))
}
