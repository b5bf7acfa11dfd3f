package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"vidtrans/internal/credits"
	"vidtrans/internal/middleware"
	"vidtrans/internal/models"
	"vidtrans/internal/services"
	"vidtrans/internal/store"
	"vidtrans/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 500 << 20

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r)
	keyword := r.URL.Query().Get("keyword")
	projects, total, err := h.projects.List(r.Context(), userID, keyword, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load projects")
		return
	}
	list := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		list = append(list, projectResponse(project))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"list":  list,
		"total": total,
	})
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}
	name := r.FormValue("name")
	if err := validator.ValidateProjectName(name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var languages []string
	if err := json.Unmarshal([]byte(r.FormValue("languages")), &languages); err != nil {
		respondError(w, http.StatusBadRequest, "invalid language list")
		return
	}
	if err := validator.ValidateLanguages(languages); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	localPath, videoURL, err := h.saveUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or unreadable video file")
		return
	}
	result, err := h.projectSvc.CreateProject(r.Context(), services.CreateProjectInput{
		UserID:    userID,
		Name:      name,
		Languages: languages,
		VideoPath: localPath,
		VideoURL:  videoURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, services.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user not found")
		default:
			respondError(w, http.StatusInternalServerError, "unable to create project")
		}
		return
	}
	payload := projectResponse(result.Project)
	payload["balance"] = result.Balance
	respondJSON(w, http.StatusOK, payload)
}

// saveUpload stores the uploaded video under the configured directory and
// returns the local path (for the duration probe) and the reference URL kept
// on the project.
func (h *Handler) saveUpload(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("video")
	if err != nil {
		return "", "", err
	}
	defer file.Close()
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		return "", "", err
	}
	filename := uuid.NewString() + filepath.Ext(header.Filename)
	localPath := filepath.Join(h.cfg.UploadDir, filename)
	out, err := os.Create(localPath)
	if err != nil {
		return "", "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(localPath)
		return "", "", err
	}
	return localPath, path.Join(h.cfg.UploadBase, filename), nil
}

type updateProjectRequest struct {
	Name      *string  `json:"name"`
	Languages []string `json:"languages"`
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "id")
	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name != nil {
		if err := validator.ValidateProjectName(*req.Name); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.projects.UpdateName(r.Context(), projectID, userID, *req.Name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "project not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "unable to update project")
			return
		}
	}
	if len(req.Languages) > 0 {
		if err := validator.ValidateLanguages(req.Languages); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		project, err := h.projectSvc.AddLanguages(r.Context(), projectID, userID, req.Languages)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInsufficientFunds):
				respondError(w, http.StatusBadRequest, "insufficient balance")
			case errors.Is(err, services.ErrProjectNotFound):
				respondError(w, http.StatusNotFound, "project not found")
			default:
				respondError(w, http.StatusInternalServerError, "unable to update project")
			}
			return
		}
		respondJSON(w, http.StatusOK, projectResponse(project))
		return
	}
	project, err := h.projects.GetByOwner(r.Context(), projectID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load project")
		return
	}
	respondJSON(w, http.StatusOK, projectResponse(project))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "id")
	if err := h.projects.Delete(r.Context(), projectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to delete project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ProjectStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "id")
	if _, err := h.projects.GetByOwner(r.Context(), projectID, userID); err != nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	task, err := h.tasks.GetByProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (h *Handler) ProjectPreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "id")
	project, err := h.projects.GetByOwner(r.Context(), projectID, userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	translations := models.Translations{}
	if task, err := h.tasks.GetByProject(r.Context(), projectID); err == nil {
		translations = task.Translations
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":           project.ID,
		"name":         project.Name,
		"video_url":    project.VideoURL,
		"languages":    project.Languages,
		"translations": translations,
	})
}

func projectResponse(project models.Project) map[string]any {
	return map[string]any{
		"id":               project.ID,
		"name":             project.Name,
		"languages":        project.Languages,
		"video_url":        project.VideoURL,
		"duration_seconds": project.DurationSeconds,
		"video_duration":   credits.FormatDuration(project.DurationSeconds),
		"cost":             project.Cost,
		"status":           project.Status,
		"created_at":       project.CreatedAt,
		"updated_at":       project.UpdatedAt,
	}
}
