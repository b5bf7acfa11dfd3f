package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidtrans/internal/models"
	"vidtrans/internal/services"
	"vidtrans/internal/store"

	"github.com/go-chi/chi/v5"
)

// PollTask assigns one pending task to the calling worker. An empty queue is
// a normal response, not an error.
func (h *Handler) PollTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.dispatcher.Poll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to poll tasks")
		return
	}
	if task == nil {
		respondJSON(w, http.StatusOK, map[string]any{"task": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"task": map[string]any{
			"task_id":    task.ID,
			"project_id": task.ProjectID,
			"video_url":  task.VideoURL,
			"languages":  task.Languages,
		},
	})
}

type completeTaskRequest struct {
	Status       string              `json:"status"`
	Translations models.Translations `json:"translations"`
	Error        string              `json:"error"`
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	var req completeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Status != models.StatusCompleted && req.Status != models.StatusFailed {
		respondError(w, http.StatusBadRequest, "status must be completed or failed")
		return
	}
	outcome := store.Outcome{Success: req.Status == models.StatusCompleted}
	if outcome.Success {
		outcome.Translations = req.Translations
	} else {
		outcome.Error = req.Error
	}
	if err := h.dispatcher.Complete(r.Context(), taskID, outcome); err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to complete task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
