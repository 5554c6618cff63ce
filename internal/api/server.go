package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/logging"
	"github.com/pbaille/kbtags/internal/store"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server handles HTTP requests for the knowledge base API
type Server struct {
	store *store.Store
	addr  string
	log   logging.Logger
}

// New creates a new API server
func New(s *store.Store, addr string, log logging.Logger) *Server {
	return &Server{store: s, addr: addr, log: logging.OrNop(log)}
}

// Handler returns the routed API with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)

	// Tags
	mux.HandleFunc("GET /tags", s.listTags)
	mux.HandleFunc("GET /tags/{id}", s.getTag)
	mux.HandleFunc("PATCH /tags/{id}", s.renameTag)
	mux.HandleFunc("DELETE /tags/{id}", s.deleteTag)

	// Search
	mux.HandleFunc("GET /search", s.searchEntries)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("starting server on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	entry, err := s.store.AddEntry(req.Content)
	if err != nil {
		s.fail(w, err)
		return
	}

	for _, name := range req.Tags {
		tag, err := s.store.GetOrCreateTag(name, nil)
		if err != nil {
			s.log.Warn("entry %s: skip tag %q: %v", entry.ID, name, err)
			continue
		}
		if err := s.store.LinkEntryTag(entry.ID, tag.ID); err != nil {
			s.log.Warn("entry %s: link tag %q: %v", entry.ID, name, err)
		}
	}

	entry, err = s.store.GetEntry(entry.ID)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Support prefix matching
	entries, err := s.store.ListEntries(100, 0)
	if err != nil {
		s.fail(w, err)
		return
	}

	var fullID string
	for _, e := range entries {
		if strings.HasPrefix(e.ID, id) {
			fullID = e.ID
			break
		}
	}

	if fullID == "" {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	entry, err := s.store.GetEntry(fullID)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := s.store.ListEntries(limit, offset)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

// TagNode represents a tag with its children for hierarchical display
type TagNode struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BindingCount int       `json:"binding_count"`
	Children     []TagNode `json:"children,omitempty"`
}

// BuildTree arranges a flat tag list by parent. Tags whose parent is missing
// become roots.
func BuildTree(tags []domain.Tag) []TagNode {
	tagMap := make(map[string]domain.Tag, len(tags))
	for _, t := range tags {
		tagMap[t.ID] = t
	}

	children := make(map[string][]string)
	var rootIDs []string
	for _, t := range tags {
		if t.ParentID == nil {
			rootIDs = append(rootIDs, t.ID)
			continue
		}
		if _, ok := tagMap[*t.ParentID]; !ok {
			rootIDs = append(rootIDs, t.ID)
			continue
		}
		children[*t.ParentID] = append(children[*t.ParentID], t.ID)
	}

	var buildNode func(id string) TagNode
	buildNode = func(id string) TagNode {
		t := tagMap[id]
		node := TagNode{ID: t.ID, Name: t.Name, BindingCount: t.BindingCount}
		for _, childID := range children[id] {
			node.Children = append(node.Children, buildNode(childID))
		}
		return node
	}

	tree := make([]TagNode, 0, len(rootIDs))
	for _, rootID := range rootIDs {
		tree = append(tree, buildNode(rootID))
	}
	return tree
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags()
	if err != nil {
		s.fail(w, err)
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": BuildTree(tags),
		"flat": tags,
	})
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.store.GetTag(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// RenameTagRequest is the request body for renaming a tag
type RenameTagRequest struct {
	Name string `json:"name"`
}

func (s *Server) renameTag(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req RenameTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.RenameTag(r.Context(), id, req.Name); err != nil {
		s.fail(w, err)
		return
	}

	tag, err := s.store.GetTag(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.log.Info("renamed tag %s to %q", id, tag.Name)
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.DeleteTag(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	s.log.Info("deleted tag %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	entries, err := s.store.SearchEntries(query)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"query":   query,
	})
}

// fail maps store errors onto HTTP statuses
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNameTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
