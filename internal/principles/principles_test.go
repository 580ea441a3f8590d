package principles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinciples_CoreDirectiveFirst(t *testing.T) {
	ps := Principles()
	require.Greater(t, len(ps), 1)
	assert.True(t, strings.HasPrefix(ps[0], "You are a compassionate, patient, and measured mirror"))
	for i, p := range ps[1:] {
		assert.NotEmpty(t, strings.TrimSpace(p), "aphorism %d is blank", i+1)
	}
}

func TestPrinciples_ReturnsCopy(t *testing.T) {
	ps := Principles()
	ps[1] = "mutated"
	assert.NotEqual(t, "mutated", Principles()[1])

	qs := CandidateQuestions()
	require.NotEmpty(t, qs)
	qs[0] = "mutated"
	assert.NotEqual(t, "mutated", CandidateQuestions()[0])
}

func TestCandidateQuestions_AreQuestions(t *testing.T) {
	for _, q := range CandidateQuestions() {
		assert.True(t, strings.HasSuffix(q, "?"), "%q", q)
	}
}
