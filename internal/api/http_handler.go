package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowgrid/flowgrid/internal/dataflow"
	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/export"
	"github.com/flowgrid/flowgrid/internal/ingestion"
	"github.com/flowgrid/flowgrid/internal/middleware"
	"github.com/flowgrid/flowgrid/internal/repository"

	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20

// Handler fronts the editor: pipeline CRUD, row resolution, derived
// join schemas, record uploads and exports.
type Handler struct {
	pipelines repository.PipelineRepository
	ingestion *ingestion.Service
	exports   *export.Service
}

func NewHTTPHandler(pipelines repository.PipelineRepository, ingestionService *ingestion.Service, exportService *export.Service) http.Handler {
	return &Handler{
		pipelines: pipelines,
		ingestion: ingestionService,
		exports:   exportService,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)
	if len(segments) == 0 || segments[0] != "api" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	segments = segments[1:]

	switch {
	case len(segments) >= 1 && segments[0] == "pipelines":
		h.servePipelines(w, r, segments[1:])
	case len(segments) == 3 && segments[0] == "exports" && segments[1] == "files" && r.Method == http.MethodGet:
		h.handleDownload(w, r, segments[2])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) servePipelines(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case len(segments) == 0 && r.Method == http.MethodGet:
		h.handleList(w, r)
	case len(segments) == 0 && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case len(segments) == 1 && segments[0] == "batch" && r.Method == http.MethodPost:
		h.handleBatchGet(w, r)
	case len(segments) == 1:
		h.servePipeline(w, r, segments[0])
	case len(segments) == 4 && segments[1] == "nodes":
		h.serveNode(w, r, segments[0], segments[2], segments[3])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) servePipeline(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		http.Error(w, "invalid pipeline id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		pipeline, err := h.pipelines.GetByID(r.Context(), id)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pipeline)
	case http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		if err := h.pipelines.Delete(r.Context(), id); err != nil {
			writeRepositoryError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveNode(w http.ResponseWriter, r *http.Request, rawID, nodeID, action string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		http.Error(w, "invalid pipeline id", http.StatusBadRequest)
		return
	}

	switch {
	case action == "rows" && r.Method == http.MethodGet:
		h.handleRows(w, r, id, nodeID)
	case action == "join-fields" && r.Method == http.MethodGet:
		h.handleJoinFields(w, r, id, nodeID)
	case action == "records" && r.Method == http.MethodPost:
		h.handleUploadRecords(w, r, id, nodeID)
	case action == "export" && r.Method == http.MethodPost:
		h.handleExport(w, r, id, nodeID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type pipelinePayload struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Nodes       []domain.Node `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload pipelinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "pipeline name is required", http.StatusBadRequest)
		return
	}
	if err := validateFilterConfigs(payload.Nodes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.pipelines.Create(r.Context(), domain.Pipeline{
		Name:        payload.Name,
		Description: payload.Description,
		Nodes:       payload.Nodes,
		Edges:       payload.Edges,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var payload pipelinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateFilterConfigs(payload.Nodes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.pipelines.Update(r.Context(), domain.Pipeline{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
		Nodes:       payload.Nodes,
		Edges:       payload.Edges,
	})
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.pipelines.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pipelines)
}

type batchGetPayload struct {
	IDs []string `json:"ids"`
}

func (h *Handler) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	var payload batchGetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ids := make([]uuid.UUID, 0, len(payload.IDs))
	for _, raw := range payload.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid pipeline id %q", raw), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	var pipelines []domain.Pipeline
	var err error
	if loader := middleware.PipelineLoaderFromContext(r.Context()); loader != nil {
		pipelines, err = loader.LoadMany(r.Context(), ids)
	} else {
		pipelines, err = h.pipelines.GetByIDs(r.Context(), ids)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pipelines)
}

type rowsResponse struct {
	Rows  []domain.Row `json:"rows"`
	Count int          `json:"count"`
}

func (h *Handler) handleRows(w http.ResponseWriter, r *http.Request, id uuid.UUID, nodeID string) {
	pipeline, err := h.pipelines.GetByID(r.Context(), id)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	if _, ok := pipeline.NodeByID(nodeID); !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}

	rows := dataflow.ResolveRows(nodeID, pipeline.Nodes, pipeline.Edges)
	if rows == nil {
		rows = []domain.Row{}
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: rows, Count: len(rows)})
}

func (h *Handler) handleJoinFields(w http.ResponseWriter, r *http.Request, id uuid.UUID, nodeID string) {
	pipeline, err := h.pipelines.GetByID(r.Context(), id)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	node, ok := pipeline.NodeByID(nodeID)
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	if node.Kind != domain.NodeKindJoin {
		http.Error(w, "node is not a join node", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, dataflow.DeriveJoinFields(nodeID, pipeline.Nodes, pipeline.Edges))
}

func (h *Handler) handleUploadRecords(w http.ResponseWriter, r *http.Request, id uuid.UUID, nodeID string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart payload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	summary, err := h.ingestion.IngestRecords(r.Context(), id, nodeID, header.Filename, payload)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, id uuid.UUID, nodeID string) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}

	result, err := h.exports.Export(r.Context(), id, nodeID, format)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request, fileName string) {
	path, err := h.exports.FilePath(fileName)
	if err != nil {
		http.Error(w, "export not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	http.ServeFile(w, r, path)
}

// validateFilterConfigs enforces the alias invariant at the persistence
// boundary so the projection engine never sees a colliding config.
func validateFilterConfigs(nodes []domain.Node) error {
	for _, node := range nodes {
		if node.Kind != domain.NodeKindFilter || node.Filter == nil {
			continue
		}
		if err := node.Filter.ValidateAliases(); err != nil {
			return fmt.Errorf("filter node %s: %w", node.ID, err)
		}
	}
	return nil
}

func writeRepositoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
