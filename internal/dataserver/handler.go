package dataserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/layout"
	"github.com/five82/beaconscope/internal/records"
)

const maxPageSize = 100

type handler struct {
	store     *Store
	logger    *slog.Logger
	shardSize int
}

// NewHandler serves the indexer's file layout and range endpoint from store.
func NewHandler(store *Store, logger *slog.Logger, shardSize int) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if shardSize <= 0 {
		shardSize = indexer.DefaultShardSize
	}
	h := &handler{store: store, logger: logger, shardSize: shardSize}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+layout.Root+"/{dataset}/meta.cbor", h.meta)
	mux.HandleFunc("GET "+layout.Root+"/{dataset}/range", h.rangeQuery)
	mux.HandleFunc("GET "+layout.Root+"/{dataset}/s/{sort}/{shard}", h.shard)
	mux.HandleFunc("GET "+layout.Root+"/{dataset}/{record}", h.record)
	return h.logRequests(mux)
}

func (h *handler) meta(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.PathValue("dataset"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCBOR(w, r, indexer.Meta{Count: count})
}

func (h *handler) record(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("record"), layout.RecordExt)
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	payload, err := h.store.Record(r.PathValue("dataset"), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(payload)
}

func (h *handler) rangeQuery(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")
	q := r.URL.Query()
	if q.Get("kind") == "epoch" {
		http.Error(w, "epoch ranges are resolved by the client", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 || size > maxPageSize {
		http.Error(w, "invalid size", http.StatusBadRequest)
		return
	}
	desc := q.Get("desc") == "1" || q.Get("desc") == "true"

	ids, err := h.store.Page(dataset, q.Get("sort"), desc, page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rng := make(grid.Range, len(ids))
	for i, id := range ids {
		rng[i] = grid.Entry{ID: id, Path: layout.RecordPath(dataset, id)}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rng); err != nil {
		h.logger.Warn("encode range failed", "dataset", dataset, "error", err)
	}
}

func (h *handler) shard(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")
	name, ok := strings.CutSuffix(r.PathValue("shard"), layout.RecordExt)
	n, err := strconv.Atoi(name)
	if !ok || err != nil || n < 1 {
		http.NotFound(w, r)
		return
	}
	ids, err := h.store.Page(dataset, r.PathValue("sort"), false, n-1, h.shardSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(ids) == 0 {
		http.NotFound(w, r)
		return
	}
	if ids[0].IsString() {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.String()
		}
		h.writeCBOR(w, r, out)
		return
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i], _ = id.Uint64()
	}
	h.writeCBOR(w, r, out)
}

func (h *handler) writeCBOR(w http.ResponseWriter, r *http.Request, v any) {
	data, err := records.Encode(v)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(data)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, ErrUnknownSort):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
