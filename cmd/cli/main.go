package main

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/limaJavier/incorporate/pkg/incorporate"
	"github.com/limaJavier/incorporate/pkg/smt"
	"github.com/limaJavier/incorporate/pkg/solver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	exitMalformedFormula = 2
	exitFailure          = 3
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout))
}

func execute(args []string, stdin io.Reader, stdout io.Writer) int {
	exitCode := 0
	rootCmd := newRootCmd(func(code int) { exitCode = code })
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error(err.Error())
		return exitCodeFor(err)
	}
	return exitCode
}

func newRootCmd(setExitCode func(int)) *cobra.Command {
	var (
		configPath string
		z3Path     string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "incorporate",
		Short: "Report the facts a formula forces",
		Long: `incorporate reads an SMT-LIB formula from the standard input and checks it with
a finite-domain solver. It prints "unknown" (exit status 1), "unsat", or "sat"
followed by every literal the formula entails, one per line.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(log.WarnLevel)
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if z3Path != "" {
				config.Executable = z3Path
			}

			formula, err := smt.ReadFormula(cmd.InOrStdin())
			if err != nil {
				return err
			}

			incorporator := incorporate.NewIncorporator(func() solver.Solver {
				return solver.NewZ3Solver(config)
			})
			outcome, err := incorporator.Run(cmd.Context(), formula)
			if err != nil {
				return err
			}

			if err := outcome.Write(cmd.OutOrStdout()); err != nil {
				return err
			}
			setExitCode(outcome.ExitCode())
			return nil
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a JSON solver configuration; defaults to config.json next to the executable, if present")
	rootCmd.Flags().StringVar(&z3Path, "z3", "", "path to the z3 executable, overriding the configuration")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := rootCmd.Flags().MarkHidden("debug"); err != nil {
		log.Panic(err.Error())
	}

	return rootCmd
}

// loadConfig reads the given config file, or config.json next to the executable
// when none is given. Without either, the defaults are used.
func loadConfig(configPath string) (solver.Config, error) {
	if configPath != "" {
		return solver.LoadConfig(configPath)
	}

	execPath, err := os.Executable()
	if err != nil {
		return solver.Config{}, errors.Wrap(err, "cannot determine executable path")
	}
	defaultPath := path.Join(path.Dir(execPath), "config.json")
	if _, err := os.Stat(defaultPath); err != nil {
		log.WithField("path", defaultPath).Debug("no config file, using defaults")
		return solver.DefaultConfig(), nil
	}
	return solver.LoadConfig(defaultPath)
}

func exitCodeFor(err error) int {
	if errors.Is(err, solver.ErrMalformedFormula) || errors.Is(err, smt.ErrMalformed) {
		return exitMalformedFormula
	}
	return exitFailure
}
