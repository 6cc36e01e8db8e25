package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

func TestParseTaskHandler_ParsesFile(t *testing.T) {
	parser := &stubParser{blocksPer: 2}
	handler := NewParseTaskHandler(parser)

	res := handler(types.Task{Type: TaskParseFile, Payload: ParsePayload{Path: "a.go"}})
	require.True(t, res.Success)
	assert.Empty(t, res.Error)

	blocks, ok := res.Data.([]types.CodeBlock)
	require.True(t, ok)
	assert.Len(t, blocks, 2)
}

func TestParseTaskHandler_ParseError(t *testing.T) {
	parser := &stubParser{failOn: "bad.go"}
	handler := NewParseTaskHandler(parser)

	res := handler(types.Task{Type: TaskParseFile, Payload: ParsePayload{Path: "bad.go"}})
	assert.False(t, res.Success)
	assert.Equal(t, "syntax error", res.Error)
	assert.Nil(t, res.Data)
}

func TestParseTaskHandler_UnknownTaskType(t *testing.T) {
	handler := NewParseTaskHandler(&stubParser{})

	res := handler(types.Task{Type: "mystery"})
	assert.False(t, res.Success)
	assert.Equal(t, "Unknown task type: mystery", res.Error)
}

func TestParseTaskHandler_InvalidPayload(t *testing.T) {
	handler := NewParseTaskHandler(&stubParser{})

	res := handler(types.Task{Type: TaskParseFile, Payload: 42})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid payload")
}
