package solver

import (
	"context"

	"github.com/limaJavier/incorporate/pkg/smt"
	"github.com/pkg/errors"
)

var (
	ErrMalformedFormula = errors.New("solver rejected the formula")
	ErrSolverFailure    = errors.New("solver failure")
)

// Consequence is an implication (=> Antecedent Consequent) entailed by a formula.
type Consequence struct {
	Antecedent smt.Node
	Consequent smt.Node
}

// Solver is a single solver instance seeded with one formula per call.
//
// Consequence finding requires a freshly constructed solver seeded with the
// original formula: callers must not ask the instance that ran Check for
// Consequences.
type Solver interface {
	Check(ctx context.Context, formula smt.Formula) (Result, error)
	// Consequences returns the verdict of the solver together with the implications
	// it derived for atoms under assumptions. Atoms and assumptions are written
	// verbatim into the solver command.
	Consequences(ctx context.Context, formula smt.Formula, assumptions, atoms []string) (Result, []Consequence, error)
}
