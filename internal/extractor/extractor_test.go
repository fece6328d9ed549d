package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/llm"
)

type fakeLLM struct {
	response string
	err      error
	lastMsgs []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.lastMsgs = messages
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

func TestExtractParsesAddUpdateNone(t *testing.T) {
	fake := &fakeLLM{response: `{"memories": [
		{"content": "Name is John", "action": "ADD"},
		{"content": "Prefers hooks over class components", "action": "UPDATE"},
		{"content": "Thanks for the help", "action": "NONE"}
	]}`}
	e := New(fake)

	ops, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, ops, 3)
	require.Equal(t, ActionAdd, ops[0].Action)
	require.Equal(t, ActionUpdate, ops[1].Action)
	require.Equal(t, ActionNone, ops[2].Action)
}

func TestExtractHandlesEmptyMemories(t *testing.T) {
	fake := &fakeLLM{response: `{"memories": []}`}
	e := New(fake)

	ops, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestExtractStripsCodeFence(t *testing.T) {
	fake := &fakeLLM{response: "```json\n{\"memories\": [{\"content\": \"x\", \"action\": \"ADD\"}]}\n```"}
	e := New(fake)

	ops, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, ops, 1)
}

func TestExtractDefaultsUnknownActionToNone(t *testing.T) {
	fake := &fakeLLM{response: `{"memories": [{"content": "x", "action": "DELETE"}]}`}
	e := New(fake)

	ops, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, ActionNone, ops[0].Action)
}

func TestExtractPropagatesLLMError(t *testing.T) {
	fake := &fakeLLM{err: context.DeadlineExceeded}
	e := New(fake)

	_, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestExtractDropsSystemMessagesFromConversation(t *testing.T) {
	fake := &fakeLLM{response: `{"memories": []}`}
	e := New(fake)

	_, err := e.Extract(context.Background(), []llm.Message{
		{Role: "system", Content: "you are a bot"},
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, fake.lastMsgs, 2)
	require.Equal(t, "system", fake.lastMsgs[0].Role)
	require.NotContains(t, fake.lastMsgs[1].Content, "you are a bot")
}

func TestExtractUsesCustomPrompt(t *testing.T) {
	fake := &fakeLLM{response: `{"memories": []}`}
	e := NewWithPrompt(fake, "custom system prompt")

	_, err := e.Extract(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "custom system prompt", fake.lastMsgs[0].Content)
}
