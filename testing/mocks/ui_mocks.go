package mocks

import (
	"errors"

	"github.com/sgaunet/merge-train/internal/ui"
)

// ErrUnexpectedPrompt is returned when a prompt has no queued answer.
var ErrUnexpectedPrompt = errors.New("unexpected prompt")

// Prompter is a mock ui.Prompter answering from queues.
type Prompter struct {
	callTracker

	// Confirms answers Confirm calls in order.
	Confirms []bool
	// Selections answers SelectBranches calls in order.
	Selections [][]string
	// Edits answers EditMessage calls in order.
	Edits []string
	// Err is returned by every prompt when set.
	Err error
}

// NewPrompter creates a prompter answering Confirm calls with confirms.
func NewPrompter(confirms ...bool) *Prompter {
	return &Prompter{Confirms: confirms}
}

// Confirm implements ui.Prompter.
func (p *Prompter) Confirm(message string, defaultValue bool) (bool, error) {
	p.trackCall("Confirm", map[string]any{"message": message, "default": defaultValue})
	if p.Err != nil {
		return false, p.Err
	}
	if len(p.Confirms) == 0 {
		return false, ErrUnexpectedPrompt
	}
	answer := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return answer, nil
}

// SelectBranches implements ui.Prompter.
func (p *Prompter) SelectBranches(message string, options, preselected []string) ([]string, error) {
	p.trackCall("SelectBranches", map[string]any{
		"message":     message,
		"options":     options,
		"preselected": preselected,
	})
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Selections) == 0 {
		return nil, ErrUnexpectedPrompt
	}
	answer := p.Selections[0]
	p.Selections = p.Selections[1:]
	return answer, nil
}

// EditMessage implements ui.Prompter.
func (p *Prompter) EditMessage(message, initial string) (string, error) {
	p.trackCall("EditMessage", map[string]any{"message": message, "initial": initial})
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Edits) == 0 {
		return "", ErrUnexpectedPrompt
	}
	answer := p.Edits[0]
	p.Edits = p.Edits[1:]
	return answer, nil
}

// Messages returns the messages of every Confirm call.
func (p *Prompter) Messages() []string {
	var messages []string
	for _, c := range p.GetCalls() {
		if c.Method == "Confirm" {
			messages = append(messages, c.Args["message"].(string))
		}
	}
	return messages
}

// Ensure Prompter implements ui.Prompter interface.
var _ ui.Prompter = (*Prompter)(nil)
