package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"text", `{"text": "hello"}`, "hello"},
		{"result text", `{"result": {"text": "nested"}}`, "nested"},
		{"output", `{"output": "out"}`, "out"},
		{"text wins over output", `{"text": "a", "output": "b"}`, "a"},
		{"preferred keys", `{"rc": 0, "phase": "eval", "value": true}`, "rc: 0\nphase: eval\nvalue: true"},
		{"preferred keys under result", `{"result": {"rc": 1, "value": "x"}}`, "rc: 1\nvalue: x"},
		{"bare string", `"just text"`, "just text"},
		{"number", `42`, "42"},
		{"array", `[1, 2]`, "[1,2]"},
		{"unknown object", `{"foo": "bar"}`, `{"foo":"bar"}`},
		{"not json", `plain`, "plain"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render([]byte(tc.body)))
		})
	}
}

func TestEvaluate(t *testing.T) {
	var got Request
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": {"text": "pong"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	out, err := c.Evaluate(context.Background(), Request{Prompt: "ping", Ast: true})

	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, "ping", got.Prompt)
	assert.True(t, got.Ast)
	assert.False(t, got.Mem)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestEvaluateNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.Evaluate(context.Background(), Request{Prompt: "ping"})

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestEvaluateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.Evaluate(context.Background(), Request{Prompt: "ping"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestEvaluateConnectionError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	_, err := c.Evaluate(context.Background(), Request{Prompt: "ping"})
	assert.Error(t, err)
}
