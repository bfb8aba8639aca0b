package nlp

import (
	"context"
	"testing"

	"github.com/jdkato/prose/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelAnnotateSingleSentence(t *testing.T) {
	t.Parallel()

	m := &Model{name: "en", model: prose.ModelFromData("en")}

	ann, err := m.Annotate(context.Background(), "Open accounts: 5 active, 2 closed")
	require.NoError(t, err)

	require.Len(t, ann.Sentences, 1)
	assert.Equal(t, "Open accounts: 5 active, 2 closed", ann.Sentences[0].Text)
}

func TestModelAnnotateHonoursCancellation(t *testing.T) {
	t.Parallel()

	m := &Model{name: "en", model: prose.ModelFromData("en")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Annotate(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
}
