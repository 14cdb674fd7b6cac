package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
	"github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/usecase/health"
	"github.com/kailas-cloud/facetdex/internal/usecase/records"
)

// maxBodySize caps request bodies. Batches of 1000 records fit comfortably.
const maxBodySize = 16 << 20

// IndexService manages index definitions.
type IndexService interface {
	Create(ctx context.Context, name string, fields []field.Field, ordering *response.FacetOrdering) (domidx.Index, error)
	Get(ctx context.Context, name string) (domidx.Index, error)
	List(ctx context.Context) ([]domidx.Index, error)
	Delete(ctx context.Context, name string) error
	SetFacetOrdering(ctx context.Context, name string, ordering *response.FacetOrdering) (domidx.Index, error)
	Stats(ctx context.Context, name string) (domidx.Stats, error)
}

// RecordService manages records of an index.
type RecordService interface {
	Upsert(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error)
	UpsertBatch(ctx context.Context, index string, items []map[string]any) ([]records.ItemResult, error)
	Get(ctx context.Context, index, id string) (domrec.Record, error)
	Delete(ctx context.Context, index, id string) error
}

// SearchService runs faceted searches.
type SearchService interface {
	Search(ctx context.Context, st state.State) (*results.Results, error)
	Refine(ctx context.Context, st state.State, ops []state.Operation) (*results.Results, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// SearchLimits bounds maxValuesPerFacet.
type SearchLimits struct {
	DefaultMaxValuesPerFacet int
	MaxValuesPerFacet        int
}

// Server implements the HTTP handlers.
type Server struct {
	indexes     IndexService
	records     RecordService
	search      SearchService
	health      HealthChecker
	limits      SearchLimits
	resolutions *prometheus.CounterVec
}

// NewServer creates a Server. resolutions may be nil.
func NewServer(
	indexes IndexService,
	recs RecordService,
	search SearchService,
	hc HealthChecker,
	limits SearchLimits,
	resolutions *prometheus.CounterVec,
) *Server {
	return &Server{
		indexes:     indexes,
		records:     recs,
		search:      search,
		health:      hc,
		limits:      limits,
		resolutions: resolutions,
	}
}

// --- Index handlers ---

// CreateIndex handles POST /indexes.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	var req CreateIndexRequest
	if !s.decode(w, r, &req) {
		return
	}
	fields, err := fieldsFromRequest(req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	idx, err := s.indexes.Create(r.Context(), req.Name, fields, req.FacetOrdering)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, indexToResponse(idx))
}

// ListIndexes handles GET /indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	idxs, err := s.indexes.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]IndexResponse, len(idxs))
	for i, idx := range idxs {
		items[i] = indexToResponse(idx)
	}
	writeJSON(w, http.StatusOK, IndexListResponse{Items: items})
}

// GetIndex handles GET /indexes/{index}.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.indexes.Get(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToResponse(idx))
}

// IndexStats handles GET /indexes/{index}/stats.
func (s *Server) IndexStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.indexes.Stats(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndexStatsResponse{Entries: st.Entries, Indexing: st.Indexing})
}

// DeleteIndex handles DELETE /indexes/{index}.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.indexes.Delete(r.Context(), chi.URLParam(r, "index")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFacetOrdering handles PUT /indexes/{index}/settings/facet-ordering.
// An empty body ("null") clears the ordering.
func (s *Server) SetFacetOrdering(w http.ResponseWriter, r *http.Request) {
	var ordering *response.FacetOrdering
	if !s.decode(w, r, &ordering) {
		return
	}
	idx, err := s.indexes.SetFacetOrdering(r.Context(), chi.URLParam(r, "index"), ordering)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToResponse(idx))
}

// --- Record handlers ---

// PutRecord handles PUT /indexes/{index}/records/{objectID}.
func (s *Server) PutRecord(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]any
	if !s.decode(w, r, &attrs) {
		return
	}
	if attrs == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "record must be a JSON object")
		return
	}
	attrs[domrec.IDAttribute] = chi.URLParam(r, "objectID")

	rec, err := s.records.Upsert(r.Context(), chi.URLParam(r, "index"), attrs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Attributes())
}

// GetRecord handles GET /indexes/{index}/records/{objectID}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "objectID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Attributes())
}

// DeleteRecord handles DELETE /indexes/{index}/records/{objectID}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	err := s.records.Delete(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "objectID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchRecords handles POST /indexes/{index}/records/batch.
func (s *Server) BatchRecords(w http.ResponseWriter, r *http.Request) {
	var req RecordBatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "records must not be empty")
		return
	}

	res, err := s.records.UpsertBatch(r.Context(), chi.URLParam(r, "index"), req.Records)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := BatchResponse{Items: make([]BatchItemResponse, len(res))}
	for i, item := range res {
		if item.OK() {
			out.Items[i] = BatchItemResponse{ObjectID: item.ID, Status: "ok"}
			out.Succeeded++
			continue
		}
		_, code, msg := classify(item.Err)
		out.Items[i] = BatchItemResponse{ObjectID: item.ID, Status: "error", Code: code, Error: msg}
		out.Failed++
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Search handlers ---

// Search handles POST /indexes/{index}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.facetOptions(w, r)
	if !ok {
		return
	}
	var req SearchState
	if !s.decode(w, r, &req) {
		return
	}
	st, ok := s.buildState(w, r, req)
	if !ok {
		return
	}

	res, err := s.search.Search(r.Context(), st)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeResults(w, r, res, opts)
}

// Refine handles POST /indexes/{index}/refine: it applies operations to
// the posted state and searches with the result.
func (s *Server) Refine(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.facetOptions(w, r)
	if !ok {
		return
	}
	var req RefineRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, ok := s.buildState(w, r, req.State)
	if !ok {
		return
	}

	res, err := s.search.Refine(r.Context(), st, req.Operations)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeResults(w, r, res, opts)
}

func (s *Server) buildState(w http.ResponseWriter, r *http.Request, req SearchState) (state.State, bool) {
	req.MaxValuesPerFacet = s.clampMaxValues(req.MaxValuesPerFacet)
	p, err := req.params(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return state.State{}, false
	}
	st, err := state.New(p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return state.State{}, false
	}
	return st, true
}

func (s *Server) clampMaxValues(n int) int {
	if n <= 0 {
		n = s.limits.DefaultMaxValuesPerFacet
	}
	if s.limits.MaxValuesPerFacet > 0 && n > s.limits.MaxValuesPerFacet {
		n = s.limits.MaxValuesPerFacet
	}
	return n
}

// facetOptions reads ?sortBy=count:desc,name:asc and ?facetOrdering=false.
func (s *Server) facetOptions(w http.ResponseWriter, r *http.Request) (results.FacetOptions, bool) {
	var sortBy []string
	err := runtime.BindQueryParameter("form", false, false, "sortBy", r.URL.Query(), &sortBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid sortBy: %v", err))
		return results.FacetOptions{}, false
	}
	var ordering *bool
	err = runtime.BindQueryParameter("form", true, false, "facetOrdering", r.URL.Query(), &ordering)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid facetOrdering: %v", err))
		return results.FacetOptions{}, false
	}
	opts := results.FacetOptions{SortBy: sortBy, FacetOrdering: ordering}
	if err := opts.Validate(); err != nil {
		s.handleDomainError(w, r, err)
		return results.FacetOptions{}, false
	}
	return opts, true
}

func (s *Server) writeResults(w http.ResponseWriter, r *http.Request, res *results.Results, opts results.FacetOptions) {
	st := res.State()
	out := SearchResponse{
		Hits:             res.Hits(),
		NbHits:           res.NbHits(),
		Page:             res.Page(),
		NbPages:          res.NbPages(),
		HitsPerPage:      res.HitsPerPage(),
		ProcessingTimeMS: res.ProcessingTimeMS(),
		QueryID:          res.QueryID(),
		Refinements:      res.Refinements(),
		State:            stateToWire(st),
	}
	if out.Hits == nil {
		out.Hits = []json.RawMessage{}
	}
	if out.Refinements == nil {
		out.Refinements = []results.Refinement{}
	}

	names := res.FacetOrder()
	out.Facets = make([]FacetResponse, 0, len(names))
	for _, name := range names {
		kind, _ := st.Kind(name)
		fr, err := s.resolveFacet(res, kind, name, opts)
		s.countResolution(kind, err)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		out.Facets = append(out.Facets, fr)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveFacet(
	res *results.Results, kind facet.Kind, name string, opts results.FacetOptions,
) (FacetResponse, error) {
	fr := FacetResponse{Name: name, Kind: kind, Exhaustive: res.Exhaustive(name)}
	if kind == facet.Hierarchical {
		tree, err := res.HierarchicalValues(name, opts)
		if err != nil {
			return FacetResponse{}, err
		}
		fr.Tree = &tree
		return fr, nil
	}

	values, err := res.FacetValues(name, opts)
	if err != nil {
		return FacetResponse{}, err
	}
	fr.Values = values
	if stats, ok := res.Stats(name); ok {
		fr.Stats = &stats
	}
	return fr, nil
}

func (s *Server) countResolution(kind facet.Kind, err error) {
	if s.resolutions == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.resolutions.WithLabelValues(string(kind), status).Inc()
}

// --- Health ---

// Health handles GET /healthz. A degraded service still answers 200 since
// searches keep working without the cache.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status == health.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// --- Error handling ---

// errorHandler maps a domain error to an HTTP status, code and client-safe
// message. Returns false if the error is not handled.
type errorHandler func(err error) (int, ErrorCode, string, bool)

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(err error) (int, ErrorCode, string, bool) {
		if errors.Is(err, sentinel) {
			return status, code, safeDomainMessage(err, sentinel), true
		}
		return 0, "", "", false
	}
}

func configurationHandler(err error) (int, ErrorCode, string, bool) {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest, CodeConfiguration, cfgErr.Error(), true
	}
	return 0, "", "", false
}

// invalidRequestHandler exposes the full message: validation details are
// caller input, not internals.
func invalidRequestHandler(err error) (int, ErrorCode, string, bool) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return http.StatusBadRequest, CodeValidationFailed, err.Error(), true
	}
	return 0, "", "", false
}

var errorHandlers = []errorHandler{
	configurationHandler,
	invalidRequestHandler,
	sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
	sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound),
	sentinelHandler(domain.ErrIndexAlreadyExists, http.StatusConflict, CodeIndexAlreadyExists),
	sentinelHandler(domain.ErrResponseCount, http.StatusBadGateway, CodeResponseCount),
	sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, CodeBackendUnavailable),
}

// safeDomainMessage returns the sentinel message, never the wrapped chain.
func safeDomainMessage(_ error, sentinel error) string {
	return sentinel.Error()
}

func classify(err error) (int, ErrorCode, string) {
	for _, h := range errorHandlers {
		if status, code, msg, ok := h(err); ok {
			return status, code, msg
		}
	}
	return http.StatusInternalServerError, CodeInternalError, "internal server error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err), zap.Int("status", status))
	} else {
		log.Warn("request rejected", zap.Error(err), zap.Int("status", status))
	}
	writeError(w, status, code, msg)
}

// --- Helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
