// Package testutil provides shared test helpers, most notably a fake
// Docker Hub API server used by integration tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// FakeTag is one tag entry served from the fake listing endpoint.
// LastUpdated is the raw string the API would return; leave it empty to
// simulate a tag without a timestamp.
type FakeTag struct {
	Name        string
	LastUpdated string
}

// FakeHub simulates the Docker Hub v2 endpoints the cleaner depends on:
// login, paginated repository and tag listings, and tag deletion. Tag
// listings are served in the order given, paginated by the page_size
// query parameter.
type FakeHub struct {
	Username  string
	Password  string
	Namespace string
	Repos     []string
	Tags      map[string][]FakeTag

	// LoginFailures makes the first N login attempts answer 503.
	LoginFailures int

	LoginAttempts int
	Deleted       []string

	t      *testing.T
	server *httptest.Server
}

// Start spins up the fake server and returns its base URL. The server
// shuts down with the test.
func (h *FakeHub) Start(t *testing.T) string {
	h.t = t
	h.server = httptest.NewServer(http.HandlerFunc(h.handle))
	t.Cleanup(h.server.Close)
	return h.server.URL
}

func (h *FakeHub) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && len(parts) == 2 && parts[0] == "users" && parts[1] == "login":
		h.handleLogin(w, r)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "repositories":
		if !h.requireAuth(w, r) {
			return
		}
		h.servePage(w, r, len(h.Repos), func(i int) any {
			return map[string]string{"name": h.Repos[i]}
		})
	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "repositories" && parts[3] == "tags":
		if !h.requireAuth(w, r) {
			return
		}
		tags := h.Tags[parts[2]]
		h.servePage(w, r, len(tags), func(i int) any {
			return map[string]string{"name": tags[i].Name, "last_updated": tags[i].LastUpdated}
		})
	case r.Method == http.MethodDelete && len(parts) == 5 && parts[0] == "repositories" && parts[3] == "tags":
		if !h.requireAuth(w, r) {
			return
		}
		h.Deleted = append(h.Deleted, parts[2]+":"+parts[4])
		w.WriteHeader(http.StatusNoContent)
	default:
		h.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FakeHub) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.LoginAttempts++
	if h.LoginAttempts <= h.LoginFailures {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var credentials map[string]string
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if credentials["username"] != h.Username || credentials["password"] != h.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"token": "fake-jwt"})
}

func (h *FakeHub) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer fake-jwt" {
		h.t.Errorf("missing bearer token on %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *FakeHub) servePage(w http.ResponseWriter, r *http.Request, total int, item func(int) any) {
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 {
		pageSize = 100
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	results := make([]any, 0, end-start)
	for i := start; i < end; i++ {
		results = append(results, item(i))
	}
	next := ""
	if end < total {
		next = fmt.Sprintf("%s%s?page_size=%d&page=%d", h.server.URL, r.URL.Path, pageSize, page+1)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"next": next, "results": results})
}
