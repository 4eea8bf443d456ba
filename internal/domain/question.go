package domain

import "strings"

// Option is a multiple-choice label.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Options lists the labels in display order.
var Options = [4]Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption normalizes a label, rejecting anything outside A-D.
func ParseOption(raw string) (Option, error) {
	opt := Option(strings.ToUpper(strings.TrimSpace(raw)))
	if !opt.Valid() {
		return "", ErrInvalidOption
	}
	return opt, nil
}

// Valid reports whether o is one of A, B, C, D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

func (o Option) position() int {
	return int(o[0] - 'A')
}

// Question is an immutable MCQ record. Prompt and option text are opaque markup.
type Question struct {
	Index   int       `json:"index"`
	Prompt  string    `json:"prompt"`
	Options [4]string `json:"options"`
	Correct Option    `json:"correct"`
}

// OptionMarkup returns the markup for a label.
func (q Question) OptionMarkup(o Option) string {
	if !o.Valid() {
		return ""
	}
	return q.Options[o.position()]
}

// QuestionView is the rendered form of a question handed to clients.
// It never carries the correct option.
type QuestionView struct {
	Index    int               `json:"index"`
	Count    int               `json:"count"`
	Prompt   string            `json:"prompt"`
	Options  map[Option]string `json:"options"`
	Selected Option            `json:"selected,omitempty"`
	Marked   bool              `json:"marked"`
}

// ValidateQuestions rejects sets whose answer key is not one of A-D.
func ValidateQuestions(questions []Question) error {
	for i := range questions {
		if !questions[i].Correct.Valid() {
			return ErrMalformedPayload
		}
	}
	return nil
}
