package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeStream builds an AnswerStream that applies deltas one by one and
// yields midErr after the last of them when non-nil.
func makeStream(deltas []Delta, midErr error) *AnswerStream {
	return NewAnswerStream(func(yield func(*StructuredAnswer, error) bool) {
		var document *StructuredAnswer
		for _, delta := range deltas {
			document = Apply(document, delta)
			if !yield(document, nil) {
				return
			}
		}
		if midErr != nil {
			yield(nil, midErr)
		}
	})
}

func TestAnswerStream_Collect_ReturnsLastSnapshot(t *testing.T) {
	stream := makeStream([]Delta{AppendToken("p"), AppendToken("o")}, nil)

	answer, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "po", answer.Answer)
}

func TestAnswerStream_Collect_EmptyStreamYieldsEmptyDocument(t *testing.T) {
	answer, err := makeStream(nil, nil).Collect()
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Equal(t, "", answer.Answer)
}

func TestAnswerStream_Collect_MidStreamErrorKeepsPartial(t *testing.T) {
	providerErr := &ProviderError{Provider: "R1", Message: "overloaded"}
	answer, err := makeStream([]Delta{AppendToken("par")}, providerErr).Collect()

	var target *ProviderError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "overloaded", target.Message)
	assert.Equal(t, "par", answer.Answer)
}

func TestAnswerStream_Iter_EarlyBreak(t *testing.T) {
	stream := makeStream([]Delta{AppendToken("a"), AppendToken("b"), AppendToken("c")}, nil)

	count := 0
	for range stream.Iter() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNewSingleAnswerStream(t *testing.T) {
	original := &StructuredAnswer{Answer: "42"}
	stream := NewSingleAnswerStream(original)
	original.Answer = "changed"

	answer, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "42", answer.Answer)

	answer, err = NewSingleAnswerStream(nil).Collect()
	require.NoError(t, err)
	assert.Equal(t, &StructuredAnswer{}, answer)
}
