package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidtrans/internal/models"
	"vidtrans/internal/services"

	"github.com/go-chi/chi/v5"
)

func TestListProjects(t *testing.T) {
	h := newTestHandler(handlerDeps{
		projects: stubProjectStore{
			listFn: func(_ context.Context, userID, keyword string, limit, offset int) ([]models.Project, int, error) {
				if userID != "user-1" || keyword != "demo" || limit != 10 || offset != 0 {
					t.Fatalf("unexpected query: %s %s %d %d", userID, keyword, limit, offset)
				}
				return []models.Project{{ID: "proj-1", Name: "demo", DurationSeconds: 125}}, 1, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/projects?keyword=demo", nil)
	rr := serveWithAuth(t, h.ListProjects, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp struct {
		List  []map[string]any `json:"list"`
		Total int              `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Total != 1 || len(resp.List) != 1 {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if resp.List[0]["video_duration"] != "2m5s" {
		t.Fatalf("display duration must be derived: %#v", resp.List[0])
	}
}

func multipartProject(t *testing.T, name, languages string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("languages", languages); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("video", "a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake video bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/projects", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateProject(t *testing.T) {
	h := newTestHandler(handlerDeps{
		projectSvc: stubProjectService{
			createProjectFn: func(_ context.Context, in services.CreateProjectInput) (services.CreateProjectResult, error) {
				if in.UserID != "user-1" || in.Name != "demo" || len(in.Languages) != 2 {
					t.Fatalf("unexpected input: %#v", in)
				}
				if in.VideoPath == "" || in.VideoURL == "" {
					t.Fatalf("upload paths missing: %#v", in)
				}
				return services.CreateProjectResult{
					Project: models.Project{ID: "proj-1", Name: in.Name, DurationSeconds: 125, Cost: 60},
					Balance: 940,
				}, nil
			},
		},
	})
	h.cfg.UploadDir = t.TempDir()
	h.cfg.UploadBase = "/uploads"
	rr := serveWithAuth(t, h.CreateProject, multipartProject(t, "demo", `["en","fr"]`), "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["id"] != "proj-1" || resp["balance"] != float64(940) || resp["cost"] != float64(60) {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestCreateProjectInsufficientBalance(t *testing.T) {
	h := newTestHandler(handlerDeps{
		projectSvc: stubProjectService{
			createProjectFn: func(_ context.Context, _ services.CreateProjectInput) (services.CreateProjectResult, error) {
				return services.CreateProjectResult{}, services.ErrInsufficientFunds
			},
		},
	})
	h.cfg.UploadDir = t.TempDir()
	rr := serveWithAuth(t, h.CreateProject, multipartProject(t, "demo", `["en"]`), "user-1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestCreateProjectRejectsBadLanguages(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	h.cfg.UploadDir = t.TempDir()
	rr := serveWithAuth(t, h.CreateProject, multipartProject(t, "demo", `["en","en"]`), "user-1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func projectRequest(t *testing.T, method, projectID, body string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/projects/"+projectID, reader)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", projectID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUpdateProjectAddsLanguages(t *testing.T) {
	h := newTestHandler(handlerDeps{
		projectSvc: stubProjectService{
			addLanguagesFn: func(_ context.Context, projectID, userID string, languages []string) (models.Project, error) {
				if projectID != "proj-1" || userID != "user-1" || len(languages) != 1 || languages[0] != "de" {
					t.Fatalf("unexpected call: %s %s %#v", projectID, userID, languages)
				}
				return models.Project{ID: projectID, Languages: []string{"en", "fr", "de"}, Cost: 90}, nil
			},
		},
	})
	rr := serveWithAuth(t, h.UpdateProject, projectRequest(t, http.MethodPut, "proj-1", `{"languages":["de"]}`), "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["cost"] != float64(90) {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestUpdateProjectInsufficientBalance(t *testing.T) {
	h := newTestHandler(handlerDeps{
		projectSvc: stubProjectService{
			addLanguagesFn: func(_ context.Context, _, _ string, _ []string) (models.Project, error) {
				return models.Project{}, services.ErrInsufficientFunds
			},
		},
	})
	rr := serveWithAuth(t, h.UpdateProject, projectRequest(t, http.MethodPut, "proj-1", `{"languages":["de"]}`), "user-1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestProjectStatus(t *testing.T) {
	h := newTestHandler(handlerDeps{
		tasks: stubTaskReader{
			getByProjectFn: func(_ context.Context, projectID string) (models.Task, error) {
				return models.Task{ID: projectID, ProjectID: projectID, Status: models.StatusProcessing}, nil
			},
		},
	})
	rr := serveWithAuth(t, h.ProjectStatus, projectRequest(t, http.MethodGet, "proj-1", ""), "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var task models.Task
	if err := json.NewDecoder(rr.Body).Decode(&task); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if task.Status != models.StatusProcessing {
		t.Fatalf("unexpected task: %#v", task)
	}
}
