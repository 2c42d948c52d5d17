package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSpan struct{ name string }

func (s *stubSpan) End()                          {}
func (s *stubSpan) SetAttributes(...Attribute)    {}
func (s *stubSpan) SetStatus(StatusCode, string)  {}
func (s *stubSpan) RecordError(error)             {}
func (s *stubSpan) AddEvent(string, ...Attribute) {}

func TestSpanFromContext_Empty(t *testing.T) {
	assert.Nil(t, SpanFromContext(context.Background()))
	//nolint:staticcheck // nil context is part of the contract
	assert.Nil(t, SpanFromContext(nil))
}

func TestContextWithSpan_RoundTrip(t *testing.T) {
	span := &stubSpan{name: "stream"}
	ctx := ContextWithSpan(context.Background(), span)
	assert.Same(t, span, SpanFromContext(ctx))
}

func TestObserverFromContext_Empty(t *testing.T) {
	assert.Nil(t, ObserverFromContext(context.Background()))
}

func TestStatusCode_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unset", StatusUnset.String())
}

func TestError_NilAttribute(t *testing.T) {
	assert.Equal(t, Attribute{Key: AttrError, Value: ""}, Error(nil))
}

func TestStrings_CopiesInput(t *testing.T) {
	values := []string{"Sonar", "Gemini"}
	attr := Strings(AttrProviders, values)
	values[0] = "changed"
	assert.Equal(t, []string{"Sonar", "Gemini"}, attr.Value)
}
