package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		duration string
		expected int64
	}{
		{"00:01:01.12", 60*1000 + 1000 + 120},
		{"01:01:01.12", 60*60*1000 + 60*1000 + 1000 + 120},
		{"1:01.12", 60*1000 + 1000 + 120},
		{"0:00.12", 120},
		{"00:00:00.12", 120},
	}

	for _, test := range tests {
		duration, err := parseDuration(test.duration)

		require.NoError(t, err)
		assert.Equal(t, test.expected, duration)
	}
}

func TestParseDurationMalformed(t *testing.T) {
	for _, duration := range []string{"", "12", "0:00", "1:2:3:04.00", "a:00.12", "0:00.xx"} {
		_, err := parseDuration(duration)

		assert.Error(t, err, duration)
	}
}

func TestParseTimeLines(t *testing.T) {
	duration, err := parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:02.05")
	require.NoError(t, err)
	assert.Equal(t, int64(2050), duration)

	memory, err := parseMemoryLine("\tMaximum resident set size (kbytes): 20480")
	require.NoError(t, err)
	assert.Equal(t, float32(20), memory)

	cpuPercentage, err := parseCpuPercentageLine("\tPercent of CPU this job got: 97%")
	require.NoError(t, err)
	assert.Equal(t, int64(97), cpuPercentage)
}

func TestParseTimeLinesMalformed(t *testing.T) {
	_, err := parseDurationLine("\tElapsed (wall clock) time: 0:02.05")
	assert.Error(t, err)

	_, err = parseMemoryLine("\tMaximum resident set size (kbytes)")
	assert.Error(t, err)

	_, err = parseMemoryLine("\tMaximum resident set size (kbytes): lots")
	assert.Error(t, err)

	_, err = parseCpuPercentageLine("\tPercent of CPU this job got: ?%")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		output       string
		result       string
		consequences int
	}{
		{"sat\nmight_need_umbrella\nbring_umbrella\n", "sat", 2},
		{"sat\n", "sat", 0},
		{"unsat\n", "unsat", 0},
		{"unknown\n", "unknown", 0},
		{"", "error", 0},
	}

	for _, test := range tests {
		result, consequences := summarize(test.output)
		assert.Equal(t, test.result, result)
		assert.Equal(t, test.consequences, consequences)
	}
}

func TestGetFormulas(t *testing.T) {
	directory := t.TempDir()
	for _, name := range []string{"a.smt2", "b.smt2", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(directory, name), []byte{}, 0666))
	}
	require.NoError(t, os.Mkdir(filepath.Join(directory, "nested.smt2"), 0777))

	formulas := getFormulas(directory)

	assert.Equal(t, []string{filepath.Join(directory, "a.smt2"), filepath.Join(directory, "b.smt2")}, formulas)
}

func TestToCsv(t *testing.T) {
	results := []BenchmarkResult{
		{Formula: "umbrella.smt2", Result: "sat", Consequences: 3, Duration: 20, Memory: 19.5, CpuPercentage: 97, Idempotent: true},
		{Formula: "contradiction.smt2", Result: "unsat", Duration: 10, Memory: 18, CpuPercentage: 90, Idempotent: true},
	}
	var out bytes.Buffer

	require.NoError(t, toCsv(results, &out))

	assert.Equal(t, `Formula,Result,Exit Code,Consequences,Duration(ms),Memory(MB),CPU(%),Idempotent
umbrella.smt2,sat,0,3,20,19.5,97,true
contradiction.smt2,unsat,0,0,10,18.0,90,true
`, out.String())
}
