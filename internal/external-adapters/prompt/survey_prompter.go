// Package prompt implements interactive release prompts with github.com/AlecAivazis/survey/v2.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/services"
)

// askFunc matches survey.AskOne so tests can script answers
type askFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// SurveyPrompter implements services.ReleasePrompter on a terminal
type SurveyPrompter struct {
	ask askFunc
	out io.Writer
}

// NewSurveyPrompter creates a prompter on stdin/stderr
func NewSurveyPrompter() *SurveyPrompter {
	return &SurveyPrompter{ask: survey.AskOne, out: os.Stderr}
}

// AskInputs asks one question per workflow input in declaration order
func (p *SurveyPrompter) AskInputs(inputs []entities.WorkflowInput, defaults map[string]string) (map[string]string, error) {
	values := make(map[string]string, len(inputs))
	for _, in := range inputs {
		def := in.Default
		if d, ok := defaults[in.Name]; ok && d != "" {
			def = d
		}

		value, err := p.askOne(in, def)
		if err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil, services.ErrCancelled
			}
			return nil, fmt.Errorf("failed to read input %s: %w", in.Name, err)
		}
		values[in.Name] = value
	}
	return values, nil
}

func (p *SurveyPrompter) askOne(in entities.WorkflowInput, def string) (string, error) {
	message := in.Name
	if in.Description != "" {
		message = fmt.Sprintf("%s (%s)", in.Name, in.Description)
	}

	switch in.Type {
	case entities.InputTypeBoolean:
		parsed, _ := strconv.ParseBool(def)
		var answer bool
		if err := p.ask(&survey.Confirm{Message: message, Default: parsed}, &answer); err != nil {
			return "", err
		}
		return strconv.FormatBool(answer), nil

	case entities.InputTypeChoice:
		if len(in.Options) == 0 {
			return "", fmt.Errorf("%w: choice input %s has no options", entities.ErrValidation, in.Name)
		}
		sel := &survey.Select{Message: message, Options: in.Options}
		for _, opt := range in.Options {
			if opt == def {
				sel.Default = def
				break
			}
		}
		var answer string
		if err := p.ask(sel, &answer); err != nil {
			return "", err
		}
		return answer, nil

	default:
		var answer string
		if err := p.ask(&survey.Input{Message: message, Default: def}, &answer); err != nil {
			return "", err
		}
		return answer, nil
	}
}

// ShowError prints a validation failure before the next round of questions
func (p *SurveyPrompter) ShowError(err error) {
	_, _ = color.New(color.FgRed).Fprintf(p.out, "✗ %v\n", err)
}
