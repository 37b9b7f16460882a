package incorporate

import (
	"context"
	"fmt"
	"io"

	"github.com/limaJavier/incorporate/pkg/smt"
	"github.com/limaJavier/incorporate/pkg/solver"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Outcome is what a run reports: the verdict and, for satisfiable formulas,
// the literals the formula forces.
type Outcome struct {
	Result       solver.Result
	Consequences []smt.Node
}

// Write prints the outcome: "unknown", "unsat", or "sat" followed by one
// consequence literal per line.
func (outcome Outcome) Write(w io.Writer) error {
	if _, err := fmt.Fprintln(w, outcome.Result); err != nil {
		return errors.Wrap(err, "cannot write result")
	}
	if outcome.Result != solver.Sat {
		return nil
	}
	for _, consequence := range outcome.Consequences {
		if _, err := fmt.Fprintln(w, consequence); err != nil {
			return errors.Wrap(err, "cannot write consequence")
		}
	}
	return nil
}

// ExitCode is 1 for unknown and 0 for a decided formula.
func (outcome Outcome) ExitCode() int {
	if outcome.Result == solver.Unknown {
		return 1
	}
	return 0
}

type Incorporator struct {
	newSolver func() solver.Solver
}

// NewIncorporator takes a constructor rather than a solver: checking and
// consequence finding each get an instance of their own.
func NewIncorporator(newSolver func() solver.Solver) *Incorporator {
	return &Incorporator{newSolver: newSolver}
}

func (incorporator *Incorporator) Run(ctx context.Context, formula smt.Formula) (Outcome, error) {
	//** Satisfiability
	result, err := incorporator.newSolver().Check(ctx, formula)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "satisfiability check failed")
	}
	log.WithField("result", result).Debug("satisfiability check finished")

	if result != solver.Sat {
		// TODO: report an unsat core once assertions can be tracked apart from assumptions
		return Outcome{Result: result}, nil
	}

	//** Consequences
	atoms, err := formula.NonUnitAtoms()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "cannot collect atoms")
	}
	log.WithField("atoms", len(atoms)).Debug("requesting consequences")

	consequencesResult, consequences, err := incorporator.newSolver().Consequences(ctx, formula, []string{}, atoms)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "consequence extraction failed")
	} else if consequencesResult != solver.Sat {
		log.WithField("result", consequencesResult).Warn("consequence extraction did not confirm satisfiability")
	}

	return Outcome{
		Result: solver.Sat,
		Consequences: lo.Map(consequences, func(consequence solver.Consequence, _ int) smt.Node {
			return consequence.Consequent
		}),
	}, nil
}
