package testutil

import (
	"net/http"
	"strings"
)

// Mux emulates the "METHOD /path" ServeMux patterns introduced in Go
// 1.22 so test fixtures written against them also run on older
// toolchains. Only the exact-path patterns the tests use are
// supported.
type Mux struct {
	// path -> method -> handler; "" holds method-less registrations
	routes map[string]map[string]http.HandlerFunc
}

func NewMux() *Mux {
	return &Mux{routes: map[string]map[string]http.HandlerFunc{}}
}

func (m *Mux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		method, path = "", pattern
	}
	if m.routes[path] == nil {
		m.routes[path] = map[string]http.HandlerFunc{}
	}
	m.routes[path][method] = handler
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	byMethod, ok := m.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	handler, ok := byMethod[r.Method]
	if !ok {
		handler, ok = byMethod[""]
	}
	if !ok && r.Method == http.MethodHead {
		handler, ok = byMethod[http.MethodGet]
	}
	if !ok {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}
