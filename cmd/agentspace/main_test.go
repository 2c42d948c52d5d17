package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/agentspace/providers/ai"
)

func frames(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, line := range lines {
		_, _ = io.WriteString(w, line)
	}
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	router.Post("/stream/perplexity", func(w http.ResponseWriter, r *http.Request) {
		frames(w,
			"event: token\ndata: {\"answer\":\"p\"}\n\n",
			"event: token\ndata: {\"answer\":\"o\"}\n\n",
			"event: done\ndata: [DONE]\n\n",
		)
	})
	router.Post("/stream/gemini", func(w http.ResponseWriter, r *http.Request) {
		var request ai.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&request)
		frames(w,
			"data: {\"answer\":\"you said "+request.Message+"\"}\n\n",
			"data: [DONE]\n\n",
		)
	})
	router.Post("/chat/perplexity", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":{"answer":"sync answer","facts":["f1"]}}`)
	})
	router.Post("/chat/multi_agent", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"provider":"Sonar","response":"plain text"},{"provider":"R1","response":{"answer":"structured"}}]`)
	})
	router.Post("/api/feedback", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// run executes the CLI with args against backendURL and returns stdout.
func run(t *testing.T, backendURL, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AGENTSPACE_BASE_URL", "")
	t.Setenv("AGENTSPACE_PROVIDERS_FILE", "")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--base-url", backendURL,
		"--no-color",
	}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func TestProvidersCmd(t *testing.T) {
	out, err := run(t, "http://unused", "", "providers")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Sonar")
	assert.Contains(t, out, "/stream/perplexity")
	assert.Contains(t, out, "Qwen")
}

func TestProvidersCmd_JSON(t *testing.T) {
	out, err := run(t, "http://unused", "", "providers", "--json")
	require.NoError(t, err)

	var decoded struct {
		Providers []struct {
			Name string `json:"name"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Providers, 4)
	assert.Equal(t, "R1", decoded.Providers[2].Name)
}

func TestAskCmd_Streams(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "", "ask", "-q", "-p", "Sonar", "-p", "Gemini", "hello", "there")
	require.NoError(t, err)

	assert.Equal(t, "── Sonar ──\npo\n\n── Gemini ──\nyou said hello there\n", out)
}

func TestAskCmd_UnknownProvider(t *testing.T) {
	backend := newBackend(t)

	_, err := run(t, backend.URL, "", "ask", "-q", "-p", "Claude", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Claude")
}

func TestAskCmd_NoStream(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "", "ask", "--no-stream", "hi")
	require.NoError(t, err)

	assert.Contains(t, out, "── Sonar ──\nsync answer\n")
	assert.Contains(t, out, "  • f1\n")
}

func TestAskCmd_MultiAgent(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "", "ask", "--multi-agent", "-p", "Sonar", "-p", "R1", "hi")
	require.NoError(t, err)

	assert.Equal(t, "── Sonar ──\nplain text\n\n── R1 ──\nstructured\n", out)
}

func TestChatCmd(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "first\n\n/reset\nsecond\n/quit\n", "chat", "-p", "Gemini")
	require.NoError(t, err)

	assert.Contains(t, out, "Chatting with Gemini.")
	assert.Contains(t, out, "you said first\n")
	assert.Contains(t, out, "History cleared.")
	assert.Contains(t, out, "you said second\n")
}

func TestChatCmd_History(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "/history\nhello\n/history\n/quit\n", "chat", "-p", "Gemini")
	require.NoError(t, err)

	assert.Contains(t, out, "History is empty.")
	assert.Contains(t, out, "you: hello\nGemini: you said hello\n")
}

func TestFeedbackCmd(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend.URL, "", "feedback", "great", "tool")
	require.NoError(t, err)
	assert.Equal(t, "Thanks, feedback sent.\n", out)
}
