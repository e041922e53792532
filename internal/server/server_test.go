package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/config"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/registry"
	"github.com/livetemplate/pagecraft/internal/tree"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	n := 0
	ed := pagecraft.NewEditor(pagecraft.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}))
	srv := New(ed, cfg, logging.Nop())
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestGetDocument(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Editor().AddBlock(block.TypeHeading, -1, "")

	var doc tree.Snapshot
	resp := getJSON(t, ts.URL+"/api/document", &doc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Heading", doc.Blocks[0].Settings.(*block.HeadingSettings).Text)
}

func TestGetTypesAndPresets(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var defs []registry.Definition
	getJSON(t, ts.URL+"/api/types", &defs)
	assert.NotEmpty(t, defs)

	var lib struct {
		Layouts []struct {
			ID string `json:"id"`
		} `json:"layouts"`
	}
	getJSON(t, ts.URL+"/api/presets", &lib)
	assert.NotEmpty(t, lib.Layouts)
}

func TestPutDocument(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBlocks int
	}{
		{
			name:       "valid tree",
			body:       `{"blocks":[{"id":"s1","type":"stack","children":[{"id":"t1","type":"text","settings":{"text":"hi"}}]}]}`,
			wantStatus: http.StatusOK,
			wantBlocks: 1,
		},
		{
			name:       "malformed json",
			body:       `{"blocks":`,
			wantStatus: http.StatusBadRequest,
			wantBlocks: 1,
		},
		{
			name:       "disallowed nesting",
			body:       `{"blocks":[{"id":"t2","type":"text","children":[{"id":"t3","type":"text"}]}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBlocks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/document", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Len(t, srv.Editor().Document().Blocks, tt.wantBlocks)
		})
	}
	assert.Equal(t, "hi", srv.Editor().Store().FindBlockByID("t1").Settings.(*block.TextSettings).Text)
}

func TestImportMarkdownEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/import", "text/markdown", strings.NewReader("---\ntitle: Hi\n---\n# Hello\n"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hi", srv.Editor().Document().Page.Title)

	resp, err = http.Post(ts.URL+"/api/import", "text/markdown", strings.NewReader("---\ntitle: x\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unclosed frontmatter", body["error"])
	assert.EqualValues(t, 1, body["line"])
}

func TestAPIRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API = &config.APIConfig{RateLimit: &config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}}
	_, ts := newTestServer(t, cfg)

	codes := make([]int, 3)
	for i := range codes {
		resp, err := http.Get(ts.URL + "/api/types")
		require.NoError(t, err)
		resp.Body.Close()
		codes[i] = resp.StatusCode
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
