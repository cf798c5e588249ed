package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/rnm-query/internal/testutil"
	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/client"
	"github.com/Sternrassler/rnm-query/pkg/query"
	"github.com/Sternrassler/rnm-query/pkg/trigger"
)

type fixture struct {
	api    *testutil.MockAPI
	http   *httptest.Server
	server *Server
	store  *query.Store[character.Character]
}

func newFixture(t *testing.T, total int) *fixture {
	t.Helper()

	api := testutil.NewMockAPI(total)
	t.Cleanup(api.Close)

	cfg := client.DefaultConfig("rnm-query-test/1.0")
	cfg.BaseURL = api.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	store := query.NewStore[character.Character]()
	t.Cleanup(store.Close)

	srv, err := New(c, store, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{api: api, http: ts, server: srv, store: store}
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) waitIdle(t *testing.T) queryView {
	t.Helper()

	var view queryView
	require.Eventually(t, func() bool {
		f.do(t, http.MethodGet, "/characters", "", &view)
		return !view.IsLoading
	}, 2*time.Second, 10*time.Millisecond)
	return view
}

func TestNew_Validation(t *testing.T) {
	store := query.NewStore[character.Character]()
	defer store.Close()

	_, err := New(nil, store, DefaultConfig())
	assert.Error(t, err)

	c, err := client.New(client.DefaultConfig("rnm-query-test/1.0"))
	require.NoError(t, err)

	_, err = New(c, nil, DefaultConfig())
	assert.Error(t, err)

	store.Close()
	_, err = New(c, store, DefaultConfig())
	assert.ErrorIs(t, err, query.ErrStoreClosed)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0)

	var body map[string]string
	status := f.do(t, http.MethodGet, "/health", "", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGetCharacters_LoadsFirstPage(t *testing.T) {
	f := newFixture(t, 45)

	view := f.waitIdle(t)

	assert.Equal(t, query.StatusSuccess, view.Status)
	assert.Len(t, view.Data, 20)
	assert.True(t, view.HasNextPage)
	assert.False(t, view.IsError)
	assert.Equal(t, 1, view.Pages)

	// Later reads do not fetch again.
	f.do(t, http.MethodGet, "/characters", "", nil)
	f.do(t, http.MethodGet, "/characters", "", nil)
	assert.Equal(t, 1, f.api.RequestCount())
}

func TestPostNext(t *testing.T) {
	f := newFixture(t, 25)

	var resp nextResponse
	status := f.do(t, http.MethodPost, "/characters/next?wait=true", "", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Started)
	assert.Len(t, resp.Query.Data, 20)
	assert.True(t, resp.Query.HasNextPage)

	f.do(t, http.MethodPost, "/characters/next?wait=true", "", &resp)
	assert.True(t, resp.Started)
	assert.Len(t, resp.Query.Data, 25)
	assert.False(t, resp.Query.HasNextPage)

	status = f.do(t, http.MethodPost, "/characters/next", "", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Started)

	assert.Equal(t, 2, f.api.RequestCount())
}

func TestPostNext_Async(t *testing.T) {
	f := newFixture(t, 40)
	release := f.api.Block()

	var resp nextResponse
	status := f.do(t, http.MethodPost, "/characters/next", "", &resp)
	assert.Equal(t, http.StatusAccepted, status)
	assert.True(t, resp.Started)
	assert.True(t, resp.Query.IsLoading)

	for i := 0; i < 5; i++ {
		f.do(t, http.MethodPost, "/characters/next", "", &resp)
		assert.False(t, resp.Started)
	}

	release()
	view := f.waitIdle(t)
	assert.Len(t, view.Data, 20)
	assert.Equal(t, 1, f.api.RequestCount())
}

func TestPostNext_Error(t *testing.T) {
	f := newFixture(t, 40)
	f.api.SetPageResponse(1, testutil.NewMalformedResponse())

	var resp nextResponse
	f.do(t, http.MethodPost, "/characters/next?wait=true", "", &resp)

	assert.True(t, resp.Query.IsError)
	assert.Equal(t, query.StatusError, resp.Query.Status)
	assert.Contains(t, resp.Query.ErrorMessage, "parse error")
	assert.Empty(t, resp.Query.Data)
}

func TestPostScroll(t *testing.T) {
	f := newFixture(t, 40)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"mid page", `{"viewportHeight":800,"scrollTop":100,"documentHeight":4000}`, trigger.OutcomeNotAtBottom},
		{"bottom", `{"viewportHeight":800,"scrollTop":3200,"documentHeight":4000}`, trigger.OutcomeStarted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp scrollResponse
			status := f.do(t, http.MethodPost, "/characters/scroll", tt.body, &resp)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, resp.Outcome)
		})
	}

	f.waitIdle(t)

	var stats trigger.Stats
	f.do(t, http.MethodGet, "/characters/scroll/stats", "", &stats)
	assert.Equal(t, trigger.Stats{Events: 2, Fired: 1, Started: 1}, stats)
}

func TestPostScroll_Invalid(t *testing.T) {
	f := newFixture(t, 40)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `scroll`},
		{"negative", `{"viewportHeight":-1,"scrollTop":0,"documentHeight":10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			status := f.do(t, http.MethodPost, "/characters/scroll", tt.body, &resp)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "invalid_request", resp.Error.Code)
		})
	}
}

func TestPostCharacter(t *testing.T) {
	f := newFixture(t, 40)

	var resp nextResponse
	f.do(t, http.MethodPost, "/characters/next?wait=true", "", &resp)

	var view queryView
	status := f.do(t, http.MethodPost, "/characters",
		`{"id":2,"name":"Morty Smith","status":"Alive","species":"Human","image":"https://rickandmortyapi.com/api/character/avatar/2.jpeg"}`,
		&view)

	require.Equal(t, http.StatusCreated, status)
	require.Len(t, view.Data, 21)
	assert.Equal(t, "Morty Smith", view.Data[20].Name)
	assert.Equal(t, 2, view.Data[20].ID)
	assert.True(t, view.HasNextPage)
	assert.Equal(t, 1, f.api.RequestCount())
}

func TestPostCharacter_Invalid(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing id", `{"name":"Morty"}`},
		{"missing name", `{"id":2}`},
		{"bad status", `{"id":2,"name":"Morty","status":"Undead"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := f.do(t, http.MethodPost, "/characters", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	assert.Empty(t, f.server.characters.Snapshot().Data)
}

func TestPostImport(t *testing.T) {
	f := newFixture(t, 40)

	var resp importResponse
	status := f.do(t, http.MethodPost, "/characters/2/import", "", &resp)

	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 2, resp.Character.ID)
	assert.Equal(t, "Character 2", resp.Character.Name)
	require.Len(t, resp.Query.Data, 1)
	assert.Equal(t, query.StatusSuccess, resp.Query.Status)
	assert.False(t, resp.Query.HasNextPage)
}

func TestPostImport_Errors(t *testing.T) {
	f := newFixture(t, 10)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"not a number", "/characters/abc/import", http.StatusBadRequest},
		{"zero", "/characters/0/import", http.StatusBadRequest},
		{"not found", "/characters/999/import", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := f.do(t, http.MethodPost, tt.path, "", nil)
			assert.Equal(t, tt.wantCode, status)
		})
	}

	assert.Empty(t, f.server.characters.Snapshot().Data)
}

func TestStream(t *testing.T) {
	f := newFixture(t, 40)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/characters/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan queryView, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var view queryView
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &view) == nil {
				events <- view
			}
		}
	}()

	first := <-events
	assert.Equal(t, query.StatusIdle, first.Status)

	f.do(t, http.MethodPost, "/characters/next", "", nil)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-events:
			require.True(t, ok, "stream closed early")
			if view.Status == query.StatusSuccess {
				assert.Len(t, view.Data, 20)
				return
			}
		case <-deadline:
			t.Fatal("no success event received")
		}
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, 20)
	f.waitIdle(t)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rnm_requests_total")
	assert.Contains(t, string(body), "rnm_query_fetches_total")
}
