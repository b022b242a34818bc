// SPDX-License-Identifier: MIT

package panopto

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockServer provides a configurable Panopto mock server for testing.
type MockServer struct {
	*httptest.Server
	mu          sync.RWMutex
	sessions    map[string][]Session // folder ID -> sessions, in listing order
	totals      map[string]int       // declared TotalNumberOfResults per folder
	failAtPage  int                  // fail the Nth sessions request (0 = never)
	failStatus  int                  // status code used for injected failures
	malformedAt int                  // return a non-JSON body on the Nth sessions request
	accessToken string
	requests    int      // sessions requests served (including injected failures)
	bearers     []string // Authorization header values observed
}

// NewMockServer creates a Panopto mock server with a token endpoint and a
// folder sessions listing endpoint.
func NewMockServer() *MockServer {
	mock := &MockServer{
		sessions:    make(map[string][]Session),
		totals:      make(map[string]int),
		failStatus:  http.StatusInternalServerError,
		accessToken: "mock-access-token",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Panopto/oauth2/connect/token", mock.handleToken)
	mux.HandleFunc("/Panopto/api/v1/folders/", mock.handleSessions)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// SetFolder installs the sessions for a folder. The declared total defaults
// to the number of sessions.
func (m *MockServer) SetFolder(folderID string, sessions []Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[folderID] = sessions
	m.totals[folderID] = len(sessions)
}

// SetDeclaredTotal overrides the TotalNumberOfResults reported for a folder.
func (m *MockServer) SetDeclaredTotal(folderID string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[folderID] = total
}

// FailRequest makes the nth sessions request (1-based) return the given status.
func (m *MockServer) FailRequest(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAtPage = n
	m.failStatus = status
}

// MalformRequest makes the nth sessions request (1-based) return invalid JSON.
func (m *MockServer) MalformRequest(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformedAt = n
}

// Requests reports how many sessions requests the server has seen.
func (m *MockServer) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests
}

// Bearers returns the Authorization headers observed on sessions requests.
func (m *MockServer) Bearers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.bearers))
	copy(out, m.bearers)
	return out
}

// AccessToken returns the token the mock token endpoint issues.
func (m *MockServer) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *MockServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	m.mu.RLock()
	token := m.accessToken
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (m *MockServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests++
	n := m.requests
	m.bearers = append(m.bearers, r.Header.Get("Authorization"))
	failAt, failStatus, malformedAt := m.failAtPage, m.failStatus, m.malformedAt
	m.mu.Unlock()

	if failAt > 0 && n == failAt {
		http.Error(w, "injected failure", failStatus)
		return
	}
	if malformedAt > 0 && n == malformedAt {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
		return
	}

	folderID := folderFromPath(r.URL.Path)

	m.mu.RLock()
	all := m.sessions[folderID]
	total := m.totals[folderID]
	m.mu.RUnlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if page < 1 || size < 1 {
		http.Error(w, "bad paging parameters", http.StatusBadRequest)
		return
	}

	start := (page - 1) * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	results := all[start:end]
	if results == nil {
		results = []Session{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SessionPage{Results: results, Total: total})
}

// folderFromPath extracts the folder ID from
// /Panopto/api/v1/folders/{id}/sessions.
func folderFromPath(path string) string {
	const prefix = "/Panopto/api/v1/folders/"
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i]
		}
	}
	return rest
}
