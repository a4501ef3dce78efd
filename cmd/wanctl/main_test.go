package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDashScope serves task creation and task status. Task "slow" needs two
// polls, every other id succeeds at once.
func fakeDashScope(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var slowPolls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/video-synthesis"):
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "wan2.2-t2v-plus", body["model"])
			_, _ = io.WriteString(w, `{"output":{"task_id":"new-task","task_status":"PENDING"}}`)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/tasks/"):
			id := strings.TrimPrefix(r.URL.Path, "/tasks/")
			if id == "slow" && slowPolls.Add(1) < 2 {
				_, _ = io.WriteString(w, `{"output":{"task_id":"slow","task_status":"RUNNING"}}`)
				return
			}
			_, _ = io.WriteString(w, `{"output":{"task_id":"`+id+`","task_status":"SUCCEEDED","video_url":"https://v.example/`+id+`.mp4"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &slowPolls
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DASHSCOPE_API_KEY", "test-key")
	t.Setenv("DASHSCOPE_BASE_URL", baseURL)
	t.Setenv("POLL_INTERVAL_MS", "1")
	t.Setenv("POLL_MAX_ATTEMPTS", "5")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	setEnv(t, "http://unused")

	_, err := runCLI(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "render")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "poll")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "watch")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Submit(t *testing.T) {
	srv, _ := fakeDashScope(t)
	setEnv(t, srv.URL)

	out, err := runCLI(t, "submit", "-prompt", "a red kite", "-resolution", "480P", "-ratio", "3:4")
	require.NoError(t, err)
	assert.JSONEq(t, `{"taskId":"new-task"}`, out)
}

func TestRun_SubmitAndWatch(t *testing.T) {
	srv, _ := fakeDashScope(t)
	setEnv(t, srv.URL)

	out, err := runCLI(t, "submit", "-prompt", "a red kite", "-watch")
	require.NoError(t, err)
	assert.JSONEq(t, `{"taskId":"new-task","status":"SUCCEEDED","url":"https://v.example/new-task.mp4"}`, out)
}

func TestRun_SubmitValidation(t *testing.T) {
	srv, _ := fakeDashScope(t)
	setEnv(t, srv.URL)

	_, err := runCLI(t, "submit", "-prompt", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt is required")
}

func TestRun_Poll(t *testing.T) {
	srv, _ := fakeDashScope(t)
	setEnv(t, srv.URL)

	out, err := runCLI(t, "poll", "-task", "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SUCCEEDED","url":"https://v.example/abc.mp4"}`, out)
}

func TestRun_WatchMany(t *testing.T) {
	srv, slowPolls := fakeDashScope(t)
	setEnv(t, srv.URL)

	out, err := runCLI(t, "watch", "slow", srv.URL+"/tasks/fast")
	require.NoError(t, err)

	var results []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0]["taskId"])
	assert.Equal(t, "SUCCEEDED", results[0]["status"])
	assert.Equal(t, srv.URL+"/tasks/fast", results[1]["pollUrl"])
	assert.Equal(t, "https://v.example/fast.mp4", results[1]["url"])
	assert.Equal(t, int32(2), slowPolls.Load())
}

func TestRun_EnhanceWithoutKey(t *testing.T) {
	setEnv(t, "http://unused")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := runCLI(t, "enhance", "-prompt", "a cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestParseHandle(t *testing.T) {
	assert.Equal(t, "abc", parseHandle(" abc ").TaskID)
	assert.Equal(t, "https://x.example/t", parseHandle("https://x.example/t").PollURL)
	assert.Empty(t, parseHandle("https://x.example/t").TaskID)
}
