package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhq/haven-ai-platform/internal/llm"
)

type scriptedClient struct {
	resp     llm.Response
	err      error
	lastReq  llm.Request
	complete func(ctx context.Context, req llm.Request) (llm.Response, error)
}

func (s *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.lastReq = req
	if s.complete != nil {
		return s.complete(ctx, req)
	}
	return s.resp, s.err
}

func TestResponderGenerate(t *testing.T) {
	client := &scriptedClient{resp: llm.Response{Text: "that sounds really hard"}}
	responder := NewResponder(client, "responder-model", 0, nil)

	history := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}
	reply, err := responder.Generate(context.Background(), history, "I had a bad week", "digest text")

	require.NoError(t, err)
	assert.Equal(t, "that sounds really hard", reply)

	req := client.lastReq
	assert.Equal(t, "responder-model", req.Model)
	require.Len(t, req.System, 2)
	assert.Contains(t, req.System[0], "You are Haven")
	assert.Equal(t, "digest text", req.System[1])
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "I had a bad week", req.Messages[2].Content)
}

func TestResponderGenerateWithoutDigest(t *testing.T) {
	client := &scriptedClient{resp: llm.Response{Text: "ok"}}
	responder := NewResponder(client, "responder-model", 0, nil)

	_, err := responder.Generate(context.Background(), nil, "hello", "")
	require.NoError(t, err)
	assert.Len(t, client.lastReq.System, 1)
}

func TestResponderGenerateEmptyInput(t *testing.T) {
	responder := NewResponder(&scriptedClient{}, "responder-model", 0, nil)

	_, err := responder.Generate(context.Background(), nil, "   ", "")
	assert.Error(t, err)
}

func TestResponderGenerateEmptyReply(t *testing.T) {
	client := &scriptedClient{resp: llm.Response{Text: "  "}}
	responder := NewResponder(client, "responder-model", 0, nil)

	_, err := responder.Generate(context.Background(), nil, "hello", "")
	assert.Error(t, err)
}

func TestResponderGenerateKeepsErrorCategory(t *testing.T) {
	client := &scriptedClient{err: errors.New("error, status code: 429, message: busy")}
	responder := NewResponder(client, "responder-model", 0, nil)

	_, err := responder.Generate(context.Background(), nil, "hello", "")

	require.Error(t, err)
	assert.Equal(t, llm.ErrorQuota, llm.CategoryOf(err))
}
