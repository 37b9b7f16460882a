package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResult(t *testing.T) {
	for _, result := range []Result{Unknown, Unsat, Sat} {
		parsed, ok := ParseResult(result.String())
		assert.True(t, ok)
		assert.Equal(t, result, parsed)
	}

	_, ok := ParseResult("timeout")
	assert.False(t, ok)
}
