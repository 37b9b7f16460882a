package solver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/incorporate/pkg/smt"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// fence is echoed right after the formula, so that anything the formula's own
// commands print is never mistaken for the answer to ours.
const fence = "incorporate:end-of-formula"

// timeoutVerdict is what z3 prints instead of a verdict when its -T limit hits.
const timeoutVerdict = "timeout"

type z3Solver struct {
	config Config
}

// NewZ3Solver returns a solver backed by the z3 binary. Every call starts a
// new z3 process, so no state is shared between calls.
func NewZ3Solver(config Config) Solver {
	return &z3Solver{config: config}
}

func (solver *z3Solver) Check(ctx context.Context, formula smt.Formula) (Result, error) {
	response, err := solver.run(ctx, formula, "(check-sat)")
	if err != nil {
		return Unknown, err
	}
	return parseVerdict(response)
}

func (solver *z3Solver) Consequences(ctx context.Context, formula smt.Formula, assumptions, atoms []string) (Result, []Consequence, error) {
	command := fmt.Sprintf("(get-consequences (%v) (%v))", strings.Join(assumptions, " "), strings.Join(atoms, " "))
	response, err := solver.run(ctx, formula, command)
	if err != nil {
		return Unknown, nil, err
	}

	result, err := parseVerdict(response)
	if err != nil {
		return Unknown, nil, err
	}
	return result, collectConsequences(response[1:]), nil
}

// run feeds the script for command into a fresh z3 process and returns the
// s-expressions printed after the fence.
func (solver *z3Solver) run(ctx context.Context, formula smt.Formula, command string) ([]smt.Node, error) {
	script, err := solver.script(formula, command)
	if err != nil {
		return nil, err
	}
	args := append([]string{"-smt2", "-in"}, solver.config.Args...)

	cmd := exec.CommandContext(ctx, solver.config.Executable, args...)
	cmd.Stdin = strings.NewReader(script) // Feed the script into z3's standard input

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger := log.WithFields(log.Fields{
		"executable": solver.config.Executable,
		"command":    command,
	})
	logger.Debug("starting solver")
	start := time.Now()
	err = cmd.Run()
	logger.WithField("duration", time.Since(start)).Debug("solver finished")

	if cmd.ProcessState == nil { // The process never started
		return nil, errors.Wrapf(ErrSolverFailure, "cannot run %v: %v", solver.config.Executable, err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("solver killed at the deadline")
		return []smt.Node{{Kind: smt.Symbol, Text: timeoutVerdict}}, nil
	}
	return interpretOutput(stdOut.String(), stderr.String(), err)
}

// script lays out the options, the logic, the formula and then command. A
// formula that sets the logic itself must set the configured one, and then
// keeps its own header.
func (solver *z3Solver) script(formula smt.Formula, command string) (string, error) {
	logic, setsLogic := formula.Logic()
	if setsLogic && logic != solver.config.Logic {
		return "", errors.Wrapf(ErrMalformedFormula, "unsupported logic %v, only %v is accepted", logic, solver.config.Logic)
	}

	var builder strings.Builder

	options := lo.Keys(solver.config.Options)
	slices.Sort(options)
	for _, option := range options {
		fmt.Fprintf(&builder, "(set-option :%v %v)\n", strings.TrimPrefix(option, ":"), solver.config.Options[option])
	}
	if !setsLogic {
		fmt.Fprintf(&builder, "(set-logic %v)\n", solver.config.Logic)
	}

	builder.WriteString(formula.Text())
	builder.WriteString("\n") // Terminates a trailing comment, if any

	fmt.Fprintf(&builder, "(echo \"%v\")\n", fence)
	builder.WriteString(command)
	builder.WriteString("\n")
	return builder.String(), nil
}

// interpretOutput splits z3's output at the fence. Errors reported before the
// fence belong to the formula, errors after it belong to our command. z3 exits
// with an error after a timeout verdict, which still counts as an answer.
func interpretOutput(stdOut, stderr string, runErr error) ([]smt.Node, error) {
	formulaOutput, response, fenced := strings.Cut(stdOut, fence)
	if fenced {
		// Drop the rest of the echo line, which may hold a closing quote
		if _, rest, ok := strings.Cut(response, "\n"); ok {
			response = rest
		} else {
			response = ""
		}
	}

	if messages := solverErrors(formulaOutput); len(messages) > 0 {
		return nil, errors.Wrap(ErrMalformedFormula, strings.Join(messages, "; "))
	} else if !fenced && strings.HasSuffix(strings.TrimSpace(stdOut), timeoutVerdict) {
		return []smt.Node{{Kind: smt.Symbol, Text: timeoutVerdict}}, nil // Out of time inside the formula's own commands
	} else if !fenced && runErr == nil {
		return nil, errors.Wrap(ErrMalformedFormula, "solver stopped before the end of the formula")
	} else if !fenced {
		return nil, errors.Wrapf(ErrSolverFailure, "%v : %v", runErr, stderr)
	}

	if messages := solverErrors(response); len(messages) > 0 {
		return nil, errors.Wrap(ErrSolverFailure, strings.Join(messages, "; "))
	}

	nodes, err := smt.ParseOutput(response)
	if runErr != nil && (err != nil || len(nodes) == 0 || nodes[0].Text != timeoutVerdict) {
		return nil, errors.Wrapf(ErrSolverFailure, "%v : %v", runErr, stderr)
	} else if err != nil {
		return nil, errors.Wrapf(ErrSolverFailure, "unreadable solver output: %v", err)
	} else if len(nodes) == 0 {
		return nil, errors.Wrap(ErrSolverFailure, "solver printed no verdict")
	}
	return nodes, nil
}

// solverErrors extracts the messages of (error "...") lines.
func solverErrors(output string) []string {
	return lo.FilterMap(strings.Split(output, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "(error") {
			return "", false
		}
		message := strings.TrimSuffix(strings.TrimPrefix(line, "(error"), ")")
		return strings.Trim(strings.TrimSpace(message), "\""), true
	})
}

func parseVerdict(response []smt.Node) (Result, error) {
	if response[0].Kind == smt.Symbol && response[0].Text == timeoutVerdict {
		return Unknown, nil
	}
	result, ok := ParseResult(response[0].Text)
	if response[0].Kind != smt.Symbol || !ok {
		return Unknown, errors.Wrapf(ErrSolverFailure, "unexpected solver verdict %v", response[0])
	}
	return result, nil
}

// collectConsequences gathers every (=> a c) in nodes, in order, however the
// solver chose to group them.
func collectConsequences(nodes []smt.Node) []Consequence {
	consequences := make([]Consequence, 0)
	for _, node := range nodes {
		if node.Head() == "=>" && len(node.Children) == 3 {
			consequences = append(consequences, Consequence{
				Antecedent: node.Children[1],
				Consequent: node.Children[2],
			})
		} else if node.IsList() {
			consequences = append(consequences, collectConsequences(node.Children)...)
		}
	}
	return consequences
}
