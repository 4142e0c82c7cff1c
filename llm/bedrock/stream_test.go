// Copyright 2025 TCG Assistant
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bedrock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcg-agent/platform/llm"
)

// applyAll feeds a sequence of event payloads through the state
func applyAll(t *testing.T, st *streamState, events []string, handler llm.StreamHandler) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, st.apply([]byte(ev), handler))
	}
}

// ===== Text Streaming =====

func TestStreamStateTextDeltas(t *testing.T) {
	st := newStreamState("test-model")

	var chunks []llm.StreamChunk
	handler := func(chunk llm.StreamChunk) error {
		chunks = append(chunks, chunk)
		return nil
	}

	applyAll(t, st, []string{
		`{"type":"message_start","message":{"id":"msg_1","model":"claude-3-5-sonnet","usage":{"input_tokens":12}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":4}}`,
		`{"type":"message_stop"}`,
	}, handler)

	resp := st.finalize()

	assert.Equal(t, "Hello world", resp.Text())
	assert.Equal(t, "claude-3-5-sonnet", resp.Model)
	assert.Equal(t, llm.StopReasonEndTurn, resp.StopReason)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 4, resp.Usage.CompletionTokens)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	// Two content chunks plus the done chunk, in order
	require.Len(t, chunks, 3)
	assert.Equal(t, llm.ChunkTypeContent, chunks[0].Type)
	assert.Equal(t, "Hello", chunks[0].Content)
	assert.Equal(t, " world", chunks[1].Content)
	assert.Equal(t, llm.ChunkTypeDone, chunks[2].Type)
	assert.True(t, chunks[2].Done)
}

// ===== Tool Use =====

func TestStreamStateToolUse(t *testing.T) {
	st := newStreamState("test-model")

	var toolChunks []llm.StreamChunk
	handler := func(chunk llm.StreamChunk) error {
		if chunk.Type == llm.ChunkTypeToolUse {
			toolChunks = append(toolChunks, chunk)
		}
		return nil
	}

	applyAll(t, st, []string{
		`{"type":"message_start","message":{"id":"msg_1","model":"claude-3-5-sonnet"}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"http_request"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"url\":"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"https://api.weather.gov/points/39.7,-104.9\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"}}`,
		`{"type":"message_stop"}`,
	}, handler)

	resp := st.finalize()

	require.True(t, resp.HasToolUse())
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "http_request", uses[0].Name)
	assert.JSONEq(t, `{"url":"https://api.weather.gov/points/39.7,-104.9"}`, string(uses[0].Input))

	require.Len(t, toolChunks, 1)
	assert.Equal(t, "http_request", toolChunks[0].ToolName)
}

func TestStreamStateToolUseEmptyInput(t *testing.T) {
	st := newStreamState("test-model")

	applyAll(t, st, []string{
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"ready_to_summarize"}}`,
		`{"type":"content_block_stop","index":0}`,
	}, nil)

	resp := st.finalize()
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	// Tools with no arguments still get a valid JSON object
	assert.Equal(t, "{}", string(uses[0].Input))
}

// ===== Edge Cases =====

func TestStreamStateMalformedEventSkipped(t *testing.T) {
	st := newStreamState("test-model")

	applyAll(t, st, []string{
		`not json at all`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"ok"}}`,
		`{"type":"content_block_stop","index":0}`,
	}, nil)

	assert.Equal(t, "ok", st.finalize().Text())
}

func TestStreamStateUnterminatedBlock(t *testing.T) {
	st := newStreamState("test-model")

	applyAll(t, st, []string{
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`,
	}, nil)

	// Stream ended without content_block_stop; the text still counts
	assert.Equal(t, "partial", st.finalize().Text())
}

func TestStreamStateFallsBackToRequestedModel(t *testing.T) {
	st := newStreamState("requested-model")
	resp := st.finalize()
	assert.Equal(t, "requested-model", resp.Model)
}

func TestStreamStateHandlerErrorAborts(t *testing.T) {
	st := newStreamState("test-model")

	require.NoError(t, st.apply([]byte(`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`), nil))

	err := st.apply([]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`), func(llm.StreamChunk) error {
		return assert.AnError
	})
	require.Error(t, err)
}
