// Package ui holds the interactive prompts shown to the operator during a merge.
package ui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrInterrupted is returned when the operator presses Ctrl+C on a prompt.
var ErrInterrupted = errors.New("prompt interrupted")

// Prompter asks the operator for decisions. Implementations must block until the
// operator answers.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(message string, defaultValue bool) (bool, error)
	// SelectBranches lets the operator pick a subset of options; preselected entries
	// start checked.
	SelectBranches(message string, options, preselected []string) ([]string, error)
	// EditMessage opens the operator's editor seeded with initial and returns the
	// edited text.
	EditMessage(message, initial string) (string, error)
}

type askFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// SurveyPrompter implements Prompter on top of survey terminal prompts.
type SurveyPrompter struct {
	ask askFunc
}

// NewSurveyPrompter returns a Prompter reading from the controlling terminal.
func NewSurveyPrompter() *SurveyPrompter {
	return &SurveyPrompter{ask: survey.AskOne}
}

// Confirm implements Prompter.
func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	answer := false
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}

	if err := p.ask(prompt, &answer); err != nil {
		return false, wrapPromptError("confirmation", err)
	}

	return answer, nil
}

// SelectBranches implements Prompter.
func (p *SurveyPrompter) SelectBranches(message string, options, preselected []string) ([]string, error) {
	if len(options) == 0 {
		return []string{}, nil
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: len(options),
	}
	if len(preselected) > 0 {
		prompt.Default = preselected
	}

	if err := p.ask(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, wrapPromptError("branch selection", err)
	}

	return selected, nil
}

// EditMessage implements Prompter.
func (p *SurveyPrompter) EditMessage(message, initial string) (string, error) {
	var edited string
	prompt := &survey.Editor{
		Message:       message,
		Default:       initial,
		AppendDefault: true,
		HideDefault:   true,
		FileName:      "MERGE_MSG*.txt",
	}

	if err := p.ask(prompt, &edited); err != nil {
		return "", wrapPromptError("message editing", err)
	}

	return edited, nil
}

func wrapPromptError(what string, err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return fmt.Errorf("%s: %w", what, ErrInterrupted)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
