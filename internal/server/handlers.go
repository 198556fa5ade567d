package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.storage.ListTypes(r.Context())
	if err != nil {
		s.logger.Error("list types failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if types == nil {
		types = []*models.TypeDef{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"types": types})
}

func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var def models.TypeDef
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if def.Name == "" {
		s.respondError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if !models.ValidTypeName(def.Name) {
		s.respondError(w, r, http.StatusBadRequest, "invalid type name")
		return
	}
	s.logger.Debug("register type request", zap.String("name", def.Name))
	if err := s.indexer.RegisterType(r.Context(), &def); err != nil {
		s.logger.Error("register type failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"name": def.Name, "status": "registered"})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err == nil {
		var offset int
		offset, err = intParam(r.URL.Query().Get("offset"), "offset")
		if err == nil {
			var page models.PageRequest
			page, err = discovery.ResolvePage(limit, offset, s.config.Search.MaxLimit, s.config.Search.DefaultLimit)
			if err == nil {
				s.listEntities(w, r, page)
				return
			}
		}
	}
	s.respondError(w, r, http.StatusBadRequest, err.Error())
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request, page models.PageRequest) {
	entities, err := s.storage.ListEntities(r.Context(), page.Offset, page.Limit)
	if err != nil {
		s.logger.Error("list entities failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if entities == nil {
		entities = []*models.Entity{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entities": entities,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

func (s *Server) handleIndexEntity(w http.ResponseWriter, r *http.Request) {
	var input models.EntityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.TypeName == "" {
		s.respondError(w, r, http.StatusBadRequest, "typeName is required")
		return
	}
	if !models.ValidTypeName(input.TypeName) {
		s.respondError(w, r, http.StatusBadRequest, "invalid type name")
		return
	}
	s.logger.Debug("index entity request", zap.String("guid", input.GUID), zap.String("type", input.TypeName))
	entity, err := s.indexer.IndexEntity(r.Context(), &input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	entity, err := s.storage.GetEntity(r.Context(), guid)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, r, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, entity)
}

// handleDeleteEntity soft-deletes by default; ?purge=true removes the entity.
func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	s.logger.Debug("delete entity request", zap.String("guid", guid), zap.Bool("purge", purge))

	if purge {
		if _, err := s.storage.GetEntity(r.Context(), guid); errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, r, http.StatusNotFound, "entity not found")
			return
		}
		if err := s.indexer.PurgeEntity(r.Context(), guid); err != nil {
			s.logger.Error("purge failed", zap.Error(err))
			s.respondError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"guid": guid, "status": "purged"})
		return
	}

	err := s.indexer.DeleteEntity(r.Context(), guid)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, r, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"guid": guid, "status": models.StatusDeleted})
}

type importRequest struct {
	Path string `json:"path"`
}

// handleImport imports a file or every import file under a directory, on the server's filesystem.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		s.respondError(w, r, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, r, http.StatusNotFound, "path not found")
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("import request", zap.String("path", abs))

	resp := map[string]interface{}{"path": abs}
	if info.IsDir() {
		n, err := s.indexer.ImportDirectory(r.Context(), abs, s.config.Watch.Extensions)
		if err != nil {
			s.logger.Error("import directory failed", zap.Error(err))
			s.respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp["files"] = n
	} else {
		n, err := s.indexer.ImportFile(r.Context(), abs, nil)
		if err != nil {
			s.logger.Error("import file failed", zap.Error(err))
			s.respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp["entities"] = n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityCount, err := s.storage.CountEntities(ctx)
	if err != nil {
		s.logger.Error("status: count entities failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	typeCount, err := s.storage.CountTypes(ctx)
	if err != nil {
		s.logger.Error("status: count types failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"entities": entityCount,
		"types":    typeCount,
	}
	if s.keywordIndex != nil {
		if n, err := s.keywordIndex.DocCount(); err == nil {
			resp["indexed_entities"] = n
		}
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}

	configInfo := map[string]interface{}{
		"default_limit":    s.config.Search.DefaultLimit,
		"max_limit":        s.config.Search.MaxLimit,
		"database_path":    s.config.Storage.DatabasePath,
		"bleve_index_path": s.config.Storage.BleveIndexPath,
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, r, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, r, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, r, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, r, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, r, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, r, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, r, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message, RequestID: RequestIDFromContext(r.Context())})
}
