package fakeprovider

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/manishahirrao/postpilot/csrf"
	"github.com/manishahirrao/postpilot/identity"
)

type reply struct {
	status int
	body   any
}

// Server is an in-process identity provider for tests. Every endpoint answers
// with whatever was last configured for it and counts its calls.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]reply
	accepted map[string]bool
	calls    map[string]int
	order    []string
	bodies   map[string][]byte
	auth     map[string]string
}

// New starts a provider whose endpoints all succeed with empty payloads until
// configured otherwise.
func New() *Server {
	s := &Server{
		replies: map[string]reply{
			csrf.TokenPath:        {http.StatusOK, map[string]any{"success": true, "csrfToken": "csrf-token"}},
			identity.LogoutPath:   {http.StatusOK, map[string]any{"success": true}},
			identity.MePath:       {http.StatusUnauthorized, map[string]any{"success": false, "message": "no user configured"}},
			identity.LoginPath:    {http.StatusUnauthorized, map[string]any{"success": false, "message": "no login configured"}},
			identity.RefreshPath:  {http.StatusUnauthorized, map[string]any{"success": false, "message": "no refresh configured"}},
			identity.RegisterPath: {http.StatusBadRequest, map[string]any{"success": false, "message": "no register configured"}},
		},
		accepted: map[string]bool{},
		calls:    map[string]int{},
		bodies:   map[string][]byte{},
		auth:     map[string]string{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Reply configures the status and JSON body returned for path.
func (s *Server) Reply(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[path] = reply{status: status, body: body}
}

// AcceptTokens makes /auth/me answer 401 unless the bearer token is one of tokens.
func (s *Server) AcceptTokens(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		s.accepted[token] = true
	}
}

func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls counts every request except anti-forgery token fetches.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for path, n := range s.calls {
		if path != csrf.TokenPath {
			total += n
		}
	}
	return total
}

// Order lists the paths hit, in order, excluding anti-forgery token fetches.
func (s *Server) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// LastBody returns the last request body sent to path.
func (s *Server) LastBody(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

// LastAuthorization returns the last Authorization header sent to path.
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls[r.URL.Path]++
	if r.URL.Path != csrf.TokenPath {
		s.order = append(s.order, r.URL.Path)
	}
	s.bodies[r.URL.Path] = body
	s.auth[r.URL.Path] = r.Header.Get("Authorization")
	rep, ok := s.replies[r.URL.Path]
	if ok && r.URL.Path == identity.MePath && len(s.accepted) > 0 {
		if !s.accepted[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")] {
			rep = reply{status: http.StatusUnauthorized, body: map[string]any{"success": false, "message": "invalid token"}}
		}
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_ = json.NewEncoder(w).Encode(rep.body)
}
