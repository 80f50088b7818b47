package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/registry"
)

// ProjectCreateRequest is the body for POST /api/projects.
type ProjectCreateRequest struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Description string `json:"description"`
}

func (s *Service) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req ProjectCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	id, err := s.store.CreateProject(r.Context(), req.Name, req.Language, req.Description)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			respondError(w, http.StatusConflict, fmt.Sprintf("project %q already exists", req.Name))
			return
		}
		s.logger.Error("create project", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.logger.Error("read back project", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	s.logEvent(r.Context(), events.TypeProjectCreated, "project", strconv.FormatInt(id, 10), true)
	s.logger.Info("project created", "id", id, "name", req.Name)
	respond(w, http.StatusCreated, project)
}

func (s *Service) handleProjectList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("list projects", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []*registry.Project{}
	}
	respond(w, http.StatusOK, projects)
}

// ProjectDetail is the response for GET /api/projects/{id}.
type ProjectDetail struct {
	*registry.Project
	Documents []*registry.Document `json:"documents"`
}

func (s *Service) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	docs, err := s.store.ListDocuments(r.Context(), id)
	if err != nil {
		s.logger.Error("list documents", "project", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*registry.Document{}
	}
	respond(w, http.StatusOK, ProjectDetail{Project: project, Documents: docs})
}

func (s *Service) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	paths, err := s.store.DeleteProject(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.removeFiles(paths)
	// The project directory itself may now be empty.
	os.RemoveAll(filepath.Join(s.cfg.UploadRoot, "projects", project.Name))

	s.logEvent(r.Context(), events.TypeProjectDeleted, "project", strconv.FormatInt(id, 10), true)
	s.logger.Info("project deleted", "id", id, "name", project.Name, "files", len(paths))
	respond(w, http.StatusOK, map[string]any{"deleted": true, "files_removed": len(paths)})
}

// removeFiles deletes registry-relative paths from disk best-effort.
// Records are already gone; an orphaned file is only worth a warning.
func (s *Service) removeFiles(paths []string) {
	for _, p := range paths {
		abs := filepath.Join(s.cfg.UploadRoot, filepath.FromSlash(p))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove file", "path", p, "error", err)
		}
	}
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Service) respondStoreError(w http.ResponseWriter, err error) {
	var pnf *registry.ErrProjectNotFound
	var dnf *registry.ErrDocumentNotFound
	switch {
	case errors.As(err, &pnf):
		respondError(w, http.StatusNotFound, "project not found")
	case errors.As(err, &dnf):
		respondError(w, http.StatusNotFound, "document not found")
	default:
		s.logger.Error("store error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
