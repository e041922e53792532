package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/config"
	"github.com/livetemplate/pagecraft/internal/dnd"
	"github.com/livetemplate/pagecraft/internal/tree"
)

// wsTestClient is a helper for websocket protocol testing.
type wsTestClient struct {
	conn    *websocket.Conn
	t       *testing.T
	timeout time.Duration
}

// newWSTestClient connects and consumes the initial document message.
func newWSTestClient(t *testing.T, server *httptest.Server) *wsTestClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wsTestClient{conn: conn, t: t, timeout: time.Second}
	first := c.receive()
	require.Equal(t, TypeDocument, first.Type)
	return c
}

func (c *wsTestClient) send(env Envelope) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(env))
}

// receive reads one message; Result stays raw for the caller to decode.
func (c *wsTestClient) receive() rawResponse {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(c.timeout)))
	var r rawResponse
	require.NoError(c.t, c.conn.ReadJSON(&r))
	return r
}

// call sends env and returns its reply.
func (c *wsTestClient) call(env Envelope) rawResponse {
	c.t.Helper()
	c.send(env)
	r := c.receive()
	require.Equal(c.t, TypeResponse, r.Type)
	require.Equal(c.t, env.ID, r.ID)
	return r
}

func (c *wsTestClient) document() tree.Snapshot {
	c.t.Helper()
	r := c.receive()
	require.Equal(c.t, TypeDocument, r.Type)
	var snap tree.Snapshot
	require.NoError(c.t, json.Unmarshal(r.Result, &snap))
	return snap
}

type rawResponse struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

func data(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWebSocketInitialDocument(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Editor().AddBlock(block.TypeText, -1, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	c := &wsTestClient{conn: conn, t: t, timeout: time.Second}
	snap := c.document()
	assert.Len(t, snap.Blocks, 1)
	assert.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketActionRoundTrip(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	c := newWSTestClient(t, ts)

	r := c.call(Envelope{ID: "1", Action: "add", Data: data(t, map[string]any{"type": "stack"})})
	require.True(t, r.OK, r.Error)
	var stack block.Block
	require.NoError(t, json.Unmarshal(r.Result, &stack))
	assert.Equal(t, block.TypeStack, stack.Type)
	assert.Len(t, c.document().Blocks, 1)

	r = c.call(Envelope{ID: "2", Action: "add", Data: data(t, map[string]any{"type": "text", "parent_id": stack.ID})})
	require.True(t, r.OK, r.Error)
	snap := c.document()
	require.Len(t, snap.Blocks[0].Children, 1)
	textID := snap.Blocks[0].Children[0].ID

	r = c.call(Envelope{ID: "3", Action: "update_settings", BlockID: textID, Data: data(t, map[string]any{"text": "Hello"})})
	require.True(t, r.OK, r.Error)
	snap = c.document()
	assert.Equal(t, "Hello", snap.Blocks[0].Children[0].Settings.(*block.TextSettings).Text)

	r = c.call(Envelope{ID: "4", Action: "undo"})
	require.True(t, r.OK, r.Error)
	c.document()
	assert.Equal(t, "Text", srv.Editor().Store().FindBlockByID(textID).Settings.(*block.TextSettings).Text)
}

func TestWebSocketRejections(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := newWSTestClient(t, ts)

	tests := []struct {
		name    string
		env     Envelope
		wantErr string
	}{
		{"unknown action", Envelope{ID: "a", Action: "explode"}, "unknown action"},
		{"missing block", Envelope{ID: "b", Action: "delete", BlockID: "nope"}, ErrRejected.Error()},
		{"bad data", Envelope{ID: "c", Action: "reorder", Data: json.RawMessage(`"x"`)}, "invalid data"},
		{"unknown layout", Envelope{ID: "d", Action: "apply_layout", Data: json.RawMessage(`{"id":"nope"}`)}, "nope"},
		{"nothing to undo", Envelope{ID: "e", Action: "undo"}, ErrRejected.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.call(tt.env)
			assert.False(t, r.OK)
			assert.Contains(t, r.Error, tt.wantErr)
		})
	}

	// Rejected edits are not broadcast: the next message is the reply.
	r := c.call(Envelope{ID: "f", Action: "effective_styles", BlockID: "nope"})
	assert.False(t, r.OK)
}

func TestWebSocketSharedStyle(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	btn := srv.Editor().AddBlock(block.TypeButton, -1, "")
	c := newWSTestClient(t, ts)

	r := c.call(Envelope{ID: "1", Action: "shared_style", BlockID: btn.ID, Data: data(t, map[string]any{"id": "cta"})})
	require.True(t, r.OK, r.Error)
	snap := c.document()
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, "cta", snap.Blocks[0].SharedStyleID)

	r = c.call(Envelope{ID: "2", Action: "shared_style", BlockID: btn.ID, Data: data(t, map[string]any{"id": "cta"})})
	assert.False(t, r.OK)
	assert.Equal(t, ErrRejected.Error(), r.Error)
}

func TestWebSocketBroadcastsToAllClients(t *testing.T) {
	_, ts := newTestServer(t, nil)
	a := newWSTestClient(t, ts)
	b := newWSTestClient(t, ts)

	r := a.call(Envelope{ID: "1", Action: "apply_layout", Data: data(t, map[string]any{"id": "blank"})})
	require.True(t, r.OK, r.Error)
	a.document()

	snap := b.document()
	require.Len(t, snap.Blocks, 2)
	assert.Equal(t, block.TypeHeader, snap.Blocks[0].Type)
}

func TestWebSocketSelectionDoesNotBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	stack := srv.Editor().AddBlock(block.TypeStack, -1, "")
	text := srv.Editor().AddBlock(block.TypeText, -1, stack.ID)
	c := newWSTestClient(t, ts)

	r := c.call(Envelope{ID: "1", Action: "select", BlockID: text.ID})
	require.True(t, r.OK)
	var crumbs []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &crumbs))
	require.Len(t, crumbs, 2)
	assert.Equal(t, stack.ID, crumbs[0].ID)

	r = c.call(Envelope{ID: "2", Action: "viewport", Data: data(t, map[string]any{"viewport": "mobile"})})
	require.True(t, r.OK)
	r = c.call(Envelope{ID: "3", Action: "viewport", Data: data(t, map[string]any{"viewport": "watch"})})
	assert.False(t, r.OK)

	r = c.call(Envelope{ID: "4", Action: "update_styles", BlockID: text.ID, Data: data(t, map[string]any{"color": "red"})})
	require.True(t, r.OK, r.Error)
	c.document()
	assert.Equal(t, "red", srv.Editor().Store().FindBlockByID(text.ID).Styles.Mobile["color"])
}

func TestWebSocketDragAndDrop(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	stack := srv.Editor().AddBlock(block.TypeStack, -1, "")
	c := newWSTestClient(t, ts)

	tag, payload, err := dnd.EncodePayload(dnd.NewBlock(block.TypeButton))
	require.NoError(t, err)

	r := c.call(Envelope{ID: "1", Action: "drag_start", Data: data(t, map[string]any{"tag": tag, "data": payload})})
	require.True(t, r.OK, r.Error)
	r = c.call(Envelope{ID: "2", Action: "drag_over", Data: data(t, dnd.Target{ParentID: stack.ID, Index: 0})})
	require.True(t, r.OK, r.Error)
	r = c.call(Envelope{ID: "3", Action: "drop"})
	require.True(t, r.OK, r.Error)

	var res dnd.Result
	require.NoError(t, json.Unmarshal(r.Result, &res))
	assert.Equal(t, stack.ID, res.ParentID)
	snap := c.document()
	require.Len(t, snap.Blocks[0].Children, 1)
	assert.Equal(t, block.TypeButton, snap.Blocks[0].Children[0].Type)

	r = c.call(Envelope{ID: "4", Action: "drag_start", Data: data(t, map[string]any{"tag": "text/plain", "data": "{}"})})
	assert.False(t, r.OK)
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API = &config.APIConfig{RateLimit: &config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}}
	_, ts := newTestServer(t, cfg)
	c := newWSTestClient(t, ts)

	r := c.call(Envelope{ID: "1", Action: "select"})
	assert.True(t, r.OK)
	r = c.call(Envelope{ID: "2", Action: "select"})
	assert.False(t, r.OK)
	assert.Equal(t, ErrRateLimited.Error(), r.Error)
}

func TestWebSocketInvalidMessage(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := newWSTestClient(t, ts)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	r := c.receive()
	assert.Equal(t, TypeResponse, r.Type)
	assert.False(t, r.OK)
	assert.Contains(t, r.Error, "invalid message")
}

func TestPresetWatchNotifiesClients(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	dir := t.TempDir()
	require.NoError(t, srv.EnableWatch(dir))
	c := newWSTestClient(t, ts)
	c.timeout = 3 * time.Second

	extra := "layouts:\n  - id: extra\n    name: Extra\n    blocks:\n      - type: text\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(extra), 0644))

	r := c.receive()
	assert.Equal(t, TypePresets, r.Type)
	_, err := srv.Editor().Presets().Layout("extra")
	assert.NoError(t, err)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "editor.test", true},
		{"same origin", nil, "http://editor.test", "editor.test", true},
		{"same origin with port", nil, "http://localhost:8080", "localhost:8080", true},
		{"foreign origin", nil, "http://evil.test", "editor.test", false},
		{"configured origin", []string{"http://app.test"}, "http://app.test", "editor.test", true},
		{"unlisted origin", []string{"http://app.test"}, "http://evil.test", "editor.test", false},
		{"wildcard", []string{"*"}, "http://evil.test", "editor.test", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.origins)(r))
		})
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, srv.ClientCount())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {ts.URL}})
	require.NoError(t, err)
	conn.Close()
}
