package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/limaJavier/incorporate/pkg/smt"
	"github.com/limaJavier/incorporate/pkg/solver"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, input string, args ...string) (int, string) {
	var stdout bytes.Buffer
	code := execute(args, strings.NewReader(input), &stdout)
	return code, stdout.String()
}

func requireZ3(t *testing.T) string {
	path, err := exec.LookPath(solver.DefaultExecutable)
	if err != nil {
		t.Skip("z3 is not installed")
	}
	return path
}

// standInSolver writes a shell script to be run in place of z3.
func standInSolver(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "z3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitMalformedFormula, exitCodeFor(errors.Wrap(solver.ErrMalformedFormula, "line 1 column 1")))
	assert.Equal(t, exitMalformedFormula, exitCodeFor(errors.Wrap(smt.ErrMalformed, "line 1 column 8: unclosed '('")))
	assert.Equal(t, exitFailure, exitCodeFor(errors.Wrap(solver.ErrSolverFailure, "crashed")))
	assert.Equal(t, exitFailure, exitCodeFor(errors.New("cannot read formula")))
}

func TestExecuteFailures(t *testing.T) {
	t.Run("Missing solver", func(t *testing.T) {
		code, stdout := run(t, "", "--z3", filepath.Join(t.TempDir(), "no-such-z3"))

		assert.Equal(t, exitFailure, code)
		assert.Empty(t, stdout)
	})

	t.Run("Unreadable config", func(t *testing.T) {
		code, stdout := run(t, "", "--config", filepath.Join(t.TempDir(), "absent.json"))

		assert.Equal(t, exitFailure, code)
		assert.Empty(t, stdout)
	})

	t.Run("Positional arguments are rejected", func(t *testing.T) {
		code, _ := run(t, "", "formula.smt2")

		assert.Equal(t, exitFailure, code)
	})
}

func TestExecuteSolverTimeout(t *testing.T) {
	z3Path := standInSolver(t, "cat > /dev/null\necho incorporate:end-of-formula\necho timeout\nexit 1\n")

	code, stdout := run(t, "(declare-const p Bool) (assert p)", "--z3", z3Path)

	assert.Equal(t, 1, code)
	assert.Equal(t, "unknown\n", stdout)
}

func TestExecute(t *testing.T) {
	z3Path := requireZ3(t)

	tests := []struct {
		name   string
		input  string
		code   int
		output []string
	}{
		{
			name:   "Empty formula",
			input:  "",
			code:   0,
			output: []string{"sat"},
		},
		{
			name:   "Contradiction",
			input:  "(declare-const P Bool) (assert (and P (not P)))",
			code:   0,
			output: []string{"unsat"},
		},
		{
			name: "Forced atom",
			input: `(declare-const A Bool) (declare-const B Bool) (declare-const C Bool)
				(assert A) (assert (=> A B)) (assert (or B C))`,
			code:   0,
			output: []string{"sat", "A", "B"},
		},
		{
			name:  "Malformed formula",
			input: "(assert (and undeclared",
			code:  exitMalformedFormula,
		},
		{
			name:   "Formula sets the logic",
			input:  "(set-logic QF_FD)\n(declare-const p Bool) (declare-const q Bool) (assert (and p (=> p q)))",
			code:   0,
			output: []string{"sat", "p", "q"},
		},
		{
			name:  "Formula sets an unsupported logic",
			input: "(set-logic QF_LIA)\n(declare-const n Int) (assert (> n 0))",
			code:  exitMalformedFormula,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, stdout := run(t, test.input, "--z3", z3Path)

			assert.Equal(t, test.code, code)
			if test.output != nil {
				require.True(t, strings.HasSuffix(stdout, "\n"))
				lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
				assert.Equal(t, test.output[0], lines[0])
				assert.ElementsMatch(t, test.output[1:], lines[1:])
			}
		})
	}
}

func TestExecuteWithConfig(t *testing.T) {
	z3Path := requireZ3(t)
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"executable": "`+z3Path+`", "options": {"sat.random_seed": 11}}`), 0666))

	code, stdout := run(t, "(declare-const p Bool) (assert (not p))", "--config", configPath)

	assert.Equal(t, 0, code)
	assert.Equal(t, "sat\n", stdout)
}
