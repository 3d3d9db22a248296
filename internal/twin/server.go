package twin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse/internal/logging"
)

// Route paths served by the twin.
const (
	ListPath   = "/api/character"
	AvatarPath = "/api/character/avatar/"
	HitsPath   = "/admin/hits"
)

// Server is the catalog twin. It implements http.Handler.
type Server struct {
	Router chi.Router

	store *Store
	log   logrus.FieldLogger

	mu           sync.RWMutex
	defaultDelay time.Duration
	imageDelay   map[int]time.Duration
	listStatus   int
	hits         map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithImageDelay delays every portrait response by d.
func WithImageDelay(d time.Duration) Option {
	return func(s *Server) {
		s.defaultDelay = d
	}
}

// New creates a twin serving the characters in store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		store:      store,
		log:        logging.Discard(),
		imageDelay: make(map[int]time.Duration),
		hits:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.logRequests)
	s.Router.Get(ListPath, s.listCharacters)
	s.Router.Get(AvatarPath+"{file}", s.avatar)
	s.Router.Get(HitsPath, s.adminHits)
	return s
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// SetImageDelay delays the portrait for one character. A zero duration
// falls back to the server-wide delay.
func (s *Server) SetImageDelay(id int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == 0 {
		delete(s.imageDelay, id)
		return
	}
	s.imageDelay[id] = d
}

// SetListStatus forces the list endpoint to fail with code. Zero clears it.
func (s *Server) SetListStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listStatus = code
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

// AvatarURL returns the portrait path for a character ID.
func AvatarURL(base string, id int) string {
	return fmt.Sprintf("%s%s%d.png", strings.TrimSuffix(base, "/"), AvatarPath, id)
}

type originJSON struct {
	Name string `json:"name"`
}

type characterJSON struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Status  string      `json:"status"`
	Species string      `json:"species"`
	Origin  *originJSON `json:"origin,omitempty"`
	Image   string      `json:"image"`
}

type listResponse struct {
	Info    map[string]any  `json:"info"`
	Results []characterJSON `json:"results"`
}

func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.listStatus
	s.mu.RUnlock()
	if status != 0 {
		writeJSON(w, status, map[string]any{"error": http.StatusText(status)})
		return
	}

	base := requestBase(r)
	chars := s.store.List()
	resp := listResponse{
		Info:    map[string]any{"count": len(chars), "pages": 1, "next": nil, "prev": nil},
		Results: make([]characterJSON, 0, len(chars)),
	}
	for _, c := range chars {
		cj := characterJSON{
			ID:      c.ID,
			Name:    c.Name,
			Status:  c.Status,
			Species: c.Species,
			Image:   AvatarURL(base, c.ID),
		}
		if c.Origin != "" {
			cj.Origin = &originJSON{Name: c.Origin}
		}
		resp.Results = append(resp.Results, cj)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) avatar(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	id, err := strconv.Atoi(strings.TrimSuffix(file, ".png"))
	if err != nil || !strings.HasSuffix(file, ".png") {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Character not found"})
		return
	}
	c, ok := s.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Character not found"})
		return
	}

	if d := s.delayFor(id); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-r.Context().Done():
			return
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Portrait(c.Name, PortraitSize)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) adminHits(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make(map[string]int, len(s.hits))
	for k, v := range s.hits {
		out[k] = v
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) delayFor(id int) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.imageDelay[id]; ok {
		return d
	}
	return s.defaultDelay
}

// logRequests counts hits per path and logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != HitsPath {
			s.mu.Lock()
			s.hits[r.URL.Path]++
			s.mu.Unlock()
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("twin request")
	})
}

func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
