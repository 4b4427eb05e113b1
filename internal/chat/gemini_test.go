package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini records the last request body and answers per path.
type fakeGemini struct {
	calls   atomic.Int32
	lastReq generateRequest
	query   map[string]string
}

func (f *fakeGemini) server(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.query = map[string]string{
			"key": r.URL.Query().Get("key"),
			"alt": r.URL.Query().Get("alt"),
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastReq))
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func textResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func TestGeminiGenerate(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, textResponse("hi there"))
	})

	g := NewGemini("secret", "gemini-test", srv.URL, 0)
	got, err := g.Generate(context.Background(), []Turn{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleAssistant, Text: "hey"},
		{Role: RoleUser, Text: "how are you"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
	assert.Equal(t, "secret", f.query["key"])

	require.Len(t, f.lastReq.Contents, 3)
	assert.Equal(t, "user", f.lastReq.Contents[0].Role)
	assert.Equal(t, "model", f.lastReq.Contents[1].Role)
	assert.Equal(t, "how are you", f.lastReq.Contents[2].Parts[0].Text)
	assert.Equal(t, generationConfig{Temperature: 1, TopK: 40, TopP: 0.95, MaxOutputTokens: 8192}, f.lastReq.GenerationConfig)
}

func TestGeminiGenerate_UpstreamError(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	})

	_, err := NewGemini("secret", "m", srv.URL, 0).Generate(context.Background(), []Turn{{Role: RoleUser, Text: "x"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGeminiGenerate_EmptyCandidates(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := NewGemini("secret", "m", srv.URL, 0).Generate(context.Background(), []Turn{{Role: RoleUser, Text: "x"}})
	assert.Error(t, err)
}

func TestGeminiStream(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/m:streamGenerateContent", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", textResponse("Hel"))
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprintf(w, "data: %s\n\n", textResponse("lo"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var fragments []string
	for frag, err := range NewGemini("secret", "m", srv.URL, 0).Stream(context.Background(), []Turn{{Role: RoleUser, Text: "x"}}) {
		require.NoError(t, err)
		fragments = append(fragments, frag)
	}

	assert.Equal(t, []string{"Hel", "lo"}, fragments)
	assert.Equal(t, "sse", f.query["alt"])
}

func TestGeminiStream_StopsWhenConsumerBreaks(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		for i := range 5 {
			fmt.Fprintf(w, "data: %s\n\n", textResponse(fmt.Sprint(i)))
		}
	})

	var got []string
	for frag, err := range NewGemini("k", "m", srv.URL, 0).Stream(context.Background(), []Turn{{Role: RoleUser, Text: "x"}}) {
		require.NoError(t, err)
		got = append(got, frag)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"0", "1"}, got)
}

func TestGeminiStream_ErrorStatus(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	var errs []error
	for _, err := range NewGemini("k", "m", srv.URL, 0).Stream(context.Background(), []Turn{{Role: RoleUser, Text: "x"}}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "500")
}

func TestGeminiStream_CancelledContext(t *testing.T) {
	f := &fakeGemini{}
	srv := f.server(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range NewGemini("k", "m", srv.URL, 0).Stream(ctx, []Turn{{Role: RoleUser, Text: "x"}}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Zero(t, f.calls.Load(), "no request should be sent on a cancelled context")
}

func TestGeminiConfigured(t *testing.T) {
	assert.False(t, NewGemini("", "m", "http://unused", 1).Configured())
	assert.True(t, NewGemini("k", "m", "http://unused", 1).Configured())
}
