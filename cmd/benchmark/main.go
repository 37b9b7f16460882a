package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sergi/go-diff/diffmatchpatch"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const MB float32 = 1024

var (
	executablePath = pflag.String(
		"executable", "../../bin/incorporate", "path to the incorporate binary")

	formulaDirectory = pflag.String(
		"formulas", "../../pkg/incorporate/testdata/", "directory holding the *.smt2 formulas to run")

	outFile = pflag.String(
		"out", "", "CSV file the results are written to; the standard output when empty")
)

type BenchmarkResult struct {
	Formula       string
	Result        string
	ExitCode      int
	Consequences  int
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Idempotent    bool
}

type measurement struct {
	output        string
	exitCode      int
	duration      int64
	memory        float32
	cpuPercentage int64
}

func main() {
	pflag.Parse()

	formulas := getFormulas(*formulaDirectory)
	results := lo.Map(formulas, func(formula string, _ int) BenchmarkResult {
		return benchmark(formula)
	})

	var out io.Writer = os.Stdout
	if *outFile != "" {
		file, err := os.Create(*outFile)
		if err != nil {
			log.Fatalf("cannot create CSV file: %v", err)
		}
		defer file.Close()
		out = file
	}

	if err := toCsv(results, out); err != nil {
		log.Fatalf("cannot write results: %v", err)
	}
}

func getFormulas(directory string) []string {
	files, err := os.ReadDir(directory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	return lo.FilterMap(files, func(file os.DirEntry, _ int) (string, bool) {
		return filepath.Join(directory, file.Name()), !file.IsDir() && strings.HasSuffix(file.Name(), ".smt2")
	})
}

// benchmark runs the formula twice; both runs must print the same thing.
func benchmark(formula string) BenchmarkResult {
	log.WithField("formula", formula).Info("benchmarking")

	first := measure(formula)
	second := measure(formula)

	idempotent := first.output == second.output && first.exitCode == second.exitCode
	if !idempotent {
		differ := diffmatchpatch.New()
		diffs := differ.DiffMain(first.output, second.output, false)
		log.WithField("formula", formula).Warnf("runs disagree:\n%v", differ.DiffPrettyText(diffs))
	}

	result, consequences := summarize(first.output)
	return BenchmarkResult{
		Formula:       formula,
		Result:        result,
		ExitCode:      first.exitCode,
		Consequences:  consequences,
		Duration:      first.duration,
		Memory:        first.memory,
		CpuPercentage: first.cpuPercentage,
		Idempotent:    idempotent,
	}
}

func measure(formula string) measurement {
	input, err := os.Open(formula)
	if err != nil {
		log.Fatalf("cannot open formula: %v", err)
	}
	defer input.Close()

	cmd := exec.Command("/usr/bin/time", "-v", *executablePath)
	cmd.Stdin = input

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run() // A non-zero exit status is a result like any other
	if cmd.ProcessState == nil {
		log.Fatalf("cannot run \"%v\" on \"%v\": %v", *executablePath, formula, stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration, err := parseDurationLine(getLine("wall clock"))
	if err != nil {
		log.Fatalf("cannot measure \"%v\": %v", formula, err)
	}
	memory, err := parseMemoryLine(getLine("maximum resident set size"))
	if err != nil {
		log.Fatalf("cannot measure \"%v\": %v", formula, err)
	}
	cpuPercentage, err := parseCpuPercentageLine(getLine("percent of cpu"))
	if err != nil {
		log.Fatalf("cannot measure \"%v\": %v", formula, err)
	}

	return measurement{
		output:        stdOut.String(),
		exitCode:      cmd.ProcessState.ExitCode(),
		duration:      duration,
		memory:        memory,
		cpuPercentage: cpuPercentage,
	}
}

// summarize returns the verdict line of an output and how many consequences
// followed it.
func summarize(output string) (string, int) {
	lines := lo.Filter(strings.Split(output, "\n"), func(line string, _ int) bool {
		return line != ""
	})
	if len(lines) == 0 {
		return "error", 0
	}
	return lines[0], len(lines) - 1
}

func toCsv(results []BenchmarkResult, out io.Writer) error {
	writer := csv.NewWriter(out)

	header := []string{"Formula", "Result", "Exit Code", "Consequences", "Duration(ms)", "Memory(MB)", "CPU(%)", "Idempotent"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "cannot write CSV header")
	}

	for _, result := range results {
		record := []string{
			result.Formula,
			result.Result,
			fmt.Sprintf("%d", result.ExitCode),
			fmt.Sprintf("%d", result.Consequences),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			fmt.Sprintf("%v", result.Idempotent),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "cannot write CSV record")
		}
	}

	writer.Flush()
	return writer.Error()
}

// parseDurationLine reads the elapsed time line of time -v in milliseconds.
func parseDurationLine(line string) (int64, error) {
	_, durationStr, ok := strings.Cut(line, "(h:mm:ss or m:ss):")
	if !ok {
		return 0, errors.Errorf("no elapsed time in %q", line)
	}
	return parseDuration(strings.TrimSpace(durationStr))
}

// parseDuration reads h:mm:ss.cc or m:ss.cc in milliseconds.
func parseDuration(durationStr string) (int64, error) {
	clock, hundredthsStr, ok := strings.Cut(durationStr, ".")
	parts := strings.Split(clock, ":")
	if !ok || len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Errorf("unexpected duration format %q", durationStr)
	}

	hundredthOfSeconds, err := strconv.Atoi(hundredthsStr)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected duration format %q", durationStr)
	}

	var seconds int64
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return 0, errors.Wrapf(err, "unexpected duration format %q", durationStr)
		}
		seconds = seconds*60 + int64(value)
	}
	return seconds*1000 + int64(hundredthOfSeconds*10), nil
}

func parseMemoryLine(line string) (float32, error) {
	memoryStr, err := lineValue(line)
	if err != nil {
		return 0, err
	}
	kilobytes, err := strconv.ParseFloat(memoryStr, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected memory in %q", line)
	}
	return float32(kilobytes) / MB, nil
}

func parseCpuPercentageLine(line string) (int64, error) {
	percentageStr, err := lineValue(line)
	if err != nil {
		return 0, err
	}
	percentage, err := strconv.Atoi(strings.TrimSuffix(percentageStr, "%"))
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected CPU percentage in %q", line)
	}
	return int64(percentage), nil
}

// lineValue returns what follows the label of a "label: value" line.
func lineValue(line string) (string, error) {
	_, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", errors.Errorf("no value in %q", line)
	}
	return strings.TrimSpace(value), nil
}
