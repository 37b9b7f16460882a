package smt

import (
	"io"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Formula is the raw SMT-LIB text handed to the solver. It is never rewritten.
type Formula struct {
	text string
}

func NewFormula(text string) Formula {
	return Formula{text: text}
}

// ReadFormula reads r until end-of-stream.
func ReadFormula(r io.Reader) (Formula, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return Formula{}, errors.Wrap(err, "cannot read formula")
	}
	return NewFormula(string(bytes)), nil
}

func (formula Formula) Text() string {
	return formula.text
}

// Logic returns the logic named by the formula's own (set-logic ...) command.
// Text that does not read as s-expressions reports none and is left for the
// solver to diagnose.
func (formula Formula) Logic() (string, bool) {
	commands, err := Parse(formula.text)
	if err != nil {
		return "", false
	}

	command, ok := lo.Find(commands, func(command Node) bool {
		return command.Head() == "set-logic" && len(command.Children) == 2
	})
	if !ok {
		return "", false
	}
	return command.Children[1].Name(), true
}
