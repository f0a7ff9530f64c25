// Package handler provides the HTTP API of the collection server.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stevemurr/collection-sync/schema"
	"github.com/stevemurr/collection-sync/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// reserved names are routed elsewhere and cannot be used as collections.
var reserved = map[string]bool{
	"collections": true,
	"schemas":     true,
	"health":      true,
	"metrics":     true,
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store    store.Store
	mux      *http.ServeMux
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
	chain    http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithRegistry sets the registry the HTTP metrics are registered on and
// served from at /metrics.
func WithRegistry(r *prometheus.Registry) Option {
	return func(h *Handler) { h.registry = r }
}

// New creates a Handler and wires up all routes.
func New(s store.Store, opts ...Option) *Handler {
	h := &Handler{store: s, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.metrics = newMetrics(h.registry)
	h.routes()
	h.chain = h.withRequestID(h.withObservability(h.mux))
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	h.mux.HandleFunc("GET /collections", h.listCollections)

	// --- Schema endpoints ---
	h.mux.HandleFunc("GET /schemas", h.listSchemas)
	h.mux.HandleFunc("GET /schemas/{collection}", h.getSchema)
	h.mux.HandleFunc("PUT /schemas/{collection}", h.putSchema)
	h.mux.HandleFunc("DELETE /schemas/{collection}", h.deleteSchema)

	// --- Collection endpoints ---
	h.mux.HandleFunc("GET /{collection}", h.list)
	h.mux.HandleFunc("POST /{collection}", h.create)
	h.mux.HandleFunc("GET /{collection}/{id}", h.get)
	h.mux.HandleFunc("PUT /{collection}/{id}", h.replace)
	h.mux.HandleFunc("DELETE /{collection}/{id}", h.remove)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// internalError logs err and hides it from the client.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", w.Header().Get(requestIDHeader)),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// readDocument decodes a JSON object body.
func readDocument(w http.ResponseWriter, r *http.Request) (store.Document, error) {
	var doc store.Document
	if err := readJSON(w, r, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return doc, nil
}

// collectionParam validates the {collection} path value.
func collectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("collection")
	if !collectionName.MatchString(name) || reserved[name] {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
		return "", false
	}
	return name, true
}

// idParam validates the {id} path value.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Collection Server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- collection list ----------

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListCollections(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// ---------- item CRUD ----------

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	docs, err := h.store.List(r.Context(), collection)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, found, err := h.store.Get(r.Context(), collection, id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	doc, err := readDocument(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	// The server owns identifiers.
	delete(doc, store.IDField)

	if !h.validateAgainstSchema(w, r, collection, doc) {
		return
	}
	created, err := h.store.Insert(r.Context(), collection, doc)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, err := readDocument(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if _, present := doc[store.IDField]; present {
		bodyID, valid := store.DocID(doc)
		if !valid || bodyID != id {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("body id %v does not match path id %d", doc[store.IDField], id))
			return
		}
	}
	doc[store.IDField] = id

	if !h.validateAgainstSchema(w, r, collection, doc) {
		return
	}
	updated, found, err := h.store.Replace(r.Context(), collection, id, doc)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	existed, err := h.store.Delete(r.Context(), collection, id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// ---------- schema endpoints ----------

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.store.ListSchemas(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if schemas == nil {
		schemas = map[string]*schema.Schema{}
	}
	writeJSON(w, http.StatusOK, schemas)
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	s, err := h.store.GetSchema(r.Context(), collection)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no schema for collection %q", collection))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) putSchema(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	var s schema.Schema
	if err := readJSON(w, r, &s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.store.PutSchema(r.Context(), collection, &s); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &s)
}

func (h *Handler) deleteSchema(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	existed, err := h.store.DeleteSchema(r.Context(), collection)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no schema for collection %q", collection))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "collection": collection})
}

// ---------- schema validation helper ----------

// validateAgainstSchema writes the error response and returns false when doc
// is rejected.
func (h *Handler) validateAgainstSchema(w http.ResponseWriter, r *http.Request, collection string, doc store.Document) bool {
	s, err := h.store.GetSchema(r.Context(), collection)
	if err != nil {
		h.internalError(w, r, err)
		return false
	}
	if err := s.Validate(doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "schema validation failed: "+err.Error())
		return false
	}
	return true
}
