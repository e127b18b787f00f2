package ui

import (
	"github.com/charmbracelet/huh"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// Confirm asks a yes/no question on the terminal. Callers skip it when
// stdin isn't a terminal or the user passed --yes.
func Confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrExec, "Prompt failed", "Pass --yes to skip the prompt.")
	}
	return ok, nil
}

// AccountForm holds the answers from PromptAccount.
type AccountForm struct {
	Name      string
	UserName  string
	UserEmail string
	Type      string
	Generate  bool
}

// PromptAccount fills in whichever account fields are still empty.
func PromptAccount(f *AccountForm) error {
	var fields []huh.Field
	if f.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Account name").
			Description("Short label, also used for the SSH host alias").
			Validate(notBlank("name")).
			Value(&f.Name))
	}
	if f.UserName == "" {
		fields = append(fields, huh.NewInput().
			Title("Git user.name").
			Validate(notBlank("user name")).
			Value(&f.UserName))
	}
	if f.UserEmail == "" {
		fields = append(fields, huh.NewInput().
			Title("Git user.email").
			Validate(notBlank("email")).
			Value(&f.UserEmail))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, huh.NewConfirm().
		Title("Generate a new SSH key?").
		Value(&f.Generate))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New(errors.ErrInvalid, "Cancelled", "")
		}
		return errors.WrapWithCode(err, errors.ErrExec, "Prompt failed", "Pass the values as flags instead.")
	}
	return nil
}

func notBlank(what string) func(string) error {
	return func(s string) error {
		for _, r := range s {
			if r != ' ' && r != '\t' {
				return nil
			}
		}
		return errors.New(errors.ErrInvalid, what+" can't be empty", "")
	}
}
