// internal/server/handlers.go
package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/storage"
)

const errStorageDisabled = "draft storage is not configured"

type extractRequest struct {
	URL  string `json:"url"`
	Save bool   `json:"save"`
}

type extractResponse struct {
	Success bool             `json:"success"`
	Product *product.Product `json:"product"`
	Draft   *product.Draft   `json:"draft,omitempty"`
}

type batchRequest struct {
	URLs   []string `json:"urls"`
	Text   string   `json:"text"`
	Narrow bool     `json:"narrow"`
}

type batchResult struct {
	URL     string         `json:"url"`
	Success bool           `json:"success"`
	Product *product.Draft `json:"product,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type batchResponse struct {
	Success   bool          `json:"success"`
	Results   []batchResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

type draftResponse struct {
	Success bool           `json:"success"`
	Product *product.Draft `json:"product"`
}

type listResponse struct {
	Success  bool             `json:"success"`
	Products []*product.Draft `json:"products"`
	Count    int              `json:"count"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

// statusFor maps an extraction failure to an HTTP status
func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidURL, errors.KindUnsupportedSource:
		return http.StatusBadRequest
	case errors.KindFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleExtract(extractor importer.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		if !s.decode(w, r, &req) {
			return
		}

		prod, err := extractor.Import(r.Context(), req.URL)
		if err != nil {
			writeError(w, statusFor(err), errors.UserMessage(err))
			return
		}

		resp := extractResponse{Success: true, Product: &prod}
		if req.Save {
			if s.store == nil {
				writeError(w, http.StatusServiceUnavailable, errStorageDisabled)
				return
			}
			draft := product.NewDraft(prod, s.now())
			if err := s.store.Save(r.Context(), draft); err != nil {
				s.logger.WithField("error", err.Error()).Error("failed to save draft")
				writeError(w, http.StatusInternalServerError, "failed to save draft")
				return
			}
			resp.Draft = draft
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	urls := req.URLs
	if req.Text != "" {
		urls = append(urls, importer.ParseURLList(req.Text)...)
	}

	im := s.batch
	if req.Narrow {
		im = s.narrowBatch
	}
	results, err := im.ImportBatch(r.Context(), urls)
	if stderrors.Is(err, importer.ErrEmptyBatch) || stderrors.Is(err, importer.ErrBatchTooLarge) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := batchResponse{Success: err == nil, Results: make([]batchResult, len(results))}
	for i, res := range results {
		resp.Results[i] = batchResult{URL: res.URL, Success: res.Success(), Product: res.Draft, Error: res.Message()}
		if res.Success() {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errStorageDisabled)
		return
	}

	var opts storage.ListOptions
	query := r.URL.Query()
	if v := query.Get("status"); v != "" {
		status, err := product.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Status = status
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}

	drafts, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("failed to list drafts")
		writeError(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Products: drafts, Count: len(drafts)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errStorageDisabled)
		return
	}
	draft, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Success: true, Product: draft})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errStorageDisabled)
		return
	}
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := product.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := s.store.UpdateStatus(r.Context(), mux.Vars(r)["id"], status, s.now())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Success: true, Product: draft})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errStorageDisabled)
		return
	}
	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.WithField("error", err.Error()).Error("storage operation failed")
	writeError(w, http.StatusInternalServerError, "storage operation failed")
}
