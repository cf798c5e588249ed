// Package testutil provides an in-process fake of the character API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/rnm-query/pkg/character"
)

// MockResponse overrides the reply for one page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI serves /api/character and /api/character/{id} from a generated
// data set, paging it PageSize records at a time.
type MockAPI struct {
	server *httptest.Server

	mu         sync.Mutex
	characters []character.Character
	overrides  map[int]MockResponse
	delay      time.Duration
	gate       chan struct{}
	etags      bool

	requests         []string
	conditionalCount int
}

// NewMockAPI starts a server holding total generated characters.
func NewMockAPI(total int) *MockAPI {
	m := &MockAPI{
		characters: GenerateCharacters(total),
		overrides:  make(map[int]MockResponse),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/character", m.handleList)
	mux.HandleFunc("/api/character/", m.handleOne)
	m.server = httptest.NewServer(m.track(mux))

	return m
}

// GenerateCharacters builds n deterministic characters with ids 1..n.
func GenerateCharacters(n int) []character.Character {
	statuses := []character.Status{character.StatusAlive, character.StatusDead, character.StatusUnknown}
	species := []string{"Human", "Alien", "Robot"}

	out := make([]character.Character, n)
	for i := range out {
		id := i + 1
		out[i] = character.Character{
			ID:      id,
			Name:    fmt.Sprintf("Character %d", id),
			Status:  statuses[i%len(statuses)],
			Species: species[i%len(species)],
			Image:   fmt.Sprintf("https://rickandmortyapi.com/api/character/avatar/%d.jpeg", id),
		}
	}
	return out
}

// URL returns the server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts the server down, releasing any blocked handlers first.
func (m *MockAPI) Close() {
	m.mu.Lock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	m.mu.Unlock()
	m.server.Close()
}

// Characters returns the full generated data set.
func (m *MockAPI) Characters() []character.Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]character.Character(nil), m.characters...)
}

// SetDelay delays every response by d.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// EnableETags makes list responses carry an ETag and honour If-None-Match.
func (m *MockAPI) EnableETags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags = true
}

// SetPageResponse replaces the reply for page.
func (m *MockAPI) SetPageResponse(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = resp
}

// ClearPageResponse restores the generated reply for page.
func (m *MockAPI) ClearPageResponse(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, page)
}

// Block holds every incoming request until the returned release func is
// called. Requests are still counted while held.
func (m *MockAPI) Block() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gate := make(chan struct{})
	m.gate = gate

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				close(gate)
				m.gate = nil
			}
			m.mu.Unlock()
		})
	}
}

// RequestCount returns the number of requests received.
func (m *MockAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the path and query of every request, in arrival order.
func (m *MockAPI) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// PageRequests counts list requests for page.
func (m *MockAPI) PageRequests(page int) int {
	want := "/api/character?page=" + strconv.Itoa(page)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.requests {
		if r == want {
			n++
		}
	}
	return n
}

// ConditionalCount returns how many requests carried If-None-Match.
func (m *MockAPI) ConditionalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditionalCount
}

func (m *MockAPI) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.URL.RequestURI())
		if r.Header.Get("If-None-Match") != "" {
			m.conditionalCount++
		}
		gate := m.gate
		delay := m.delay
		m.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if delay > 0 {
			time.Sleep(delay)
		}

		next.ServeHTTP(w, r)
	})
}

func (m *MockAPI) handleList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Hey! you must provide a valid page")
			return
		}
		page = n
	}

	m.mu.Lock()
	override, hasOverride := m.overrides[page]
	etags := m.etags
	all := m.characters
	m.mu.Unlock()

	if hasOverride {
		writeOverride(w, override)
		return
	}

	total := len(all)
	pages := (total + character.PageSize - 1) / character.PageSize
	if page < 1 || page > pages {
		writeError(w, http.StatusNotFound, "There is nothing here")
		return
	}

	if etags {
		etag := fmt.Sprintf(`W/"page-%d-of-%d"`, page, total)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	start := (page - 1) * character.PageSize
	end := min(start+character.PageSize, total)

	info := character.Info{Count: total, Pages: pages}
	if page < pages {
		info.Next = fmt.Sprintf("%s/api/character?page=%d", m.server.URL, page+1)
	}
	if page > 1 {
		info.Prev = fmt.Sprintf("%s/api/character?page=%d", m.server.URL, page-1)
	}

	writeJSON(w, http.StatusOK, character.PageResponse{
		Info:    info,
		Results: all[start:end],
	})
}

func (m *MockAPI) handleOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/character/"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Hey! you must provide an id")
		return
	}

	m.mu.Lock()
	all := m.characters
	m.mu.Unlock()

	if id < 1 || id > len(all) {
		writeError(w, http.StatusNotFound, "Character not found")
		return
	}
	writeJSON(w, http.StatusOK, all[id-1])
}

func writeOverride(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, character.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewPageResponse builds a well-formed page body holding chars.
func NewPageResponse(chars []character.Character, pages int) MockResponse {
	body, _ := json.Marshal(character.PageResponse{
		Info:    character.Info{Count: len(chars), Pages: pages},
		Results: chars,
	})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse returns a 200 whose body is not a page.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"info":{"count":1},"results":"nope"`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse returns a 500 with an API error body.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
