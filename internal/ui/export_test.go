package ui

import "github.com/AlecAivazis/survey/v2"

// NewPrompterWithAsk builds a SurveyPrompter whose prompts are answered by ask.
func NewPrompterWithAsk(ask func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error) *SurveyPrompter {
	return &SurveyPrompter{ask: ask}
}
