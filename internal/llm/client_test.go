package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/revrost/go-openrouter"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osintgraph/internal/extract"
)

func fakeClient(reply string, err error, calls *int) *Client {
	complete := func(ctx context.Context, req openrouter.ChatCompletionRequest) (string, error) {
		if calls != nil {
			*calls++
		}
		if _, ok := ctx.Deadline(); !ok {
			return "", errors.New("no deadline set")
		}
		return reply, err
	}
	return newClient(Config{Timeout: time.Second}, complete, nil)
}

func TestNew(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	c, err := New(Config{APIKey: "key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestExtract(t *testing.T) {
	t.Run("parses entities", func(t *testing.T) {
		c := fakeClient(`{"entities":[{"text":"Alice","type":"PERSON"},{"text":"evil.example","type":"DOMAIN"}]}`, nil, nil)
		chunks, err := c.Extract(context.Background(), "Alice registered evil.example")
		require.NoError(t, err)
		assert.Equal(t, []extract.Chunk{{Text: "Alice", Type: "PERSON"}, {Text: "evil.example", Type: "DOMAIN"}}, chunks)
	})

	t.Run("accepts fenced JSON", func(t *testing.T) {
		c := fakeClient("```json\n{\"entities\":[{\"text\":\"Bob\",\"type\":\"PERSON\"}]}\n```", nil, nil)
		chunks, err := c.Extract(context.Background(), "Bob")
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := fakeClient("not json", nil, nil).Extract(context.Background(), "x")
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	out, err := fakeClient("  A summary.\n", nil, nil).Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "A summary.", out)
}

func TestCircuitBreakerOpens(t *testing.T) {
	calls := 0
	c := fakeClient("", errors.New("provider down"), &calls)

	for i := 0; i < 3; i++ {
		_, err := c.Summarize(context.Background(), "x")
		assert.Error(t, err)
	}
	_, err := c.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence(` {"a":1} `))
}
