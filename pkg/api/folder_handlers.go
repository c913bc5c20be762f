package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/patentdesk/pkg/folders"
	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxUploadFiles        = 10
)

// FolderHandlers handles saved patent, folder and workfile requests
type FolderHandlers struct {
	folderService  FolderService
	maxUploadBytes int64
}

// NewFolderHandlers creates a new FolderHandlers. maxUploadBytes bounds a multipart import request.
func NewFolderHandlers(folderService FolderService, maxUploadBytes int64) *FolderHandlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &FolderHandlers{folderService: folderService, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes registers saved patent routes; all require authentication
func (h *FolderHandlers) RegisterRoutes(router *mux.Router, authn func(http.Handler) http.Handler) {
	sub := router.PathPrefix("/savedPatent").Subrouter()
	sub.Use(mux.MiddlewareFunc(authn))

	sub.HandleFunc("/save", h.SavePatent).Methods("POST")
	sub.HandleFunc("/folders", h.ListFolders).Methods("GET")
	sub.HandleFunc("/customList", h.CreateFolder).Methods("POST")
	sub.HandleFunc("/addPatent", h.AddPatents).Methods("POST")
	sub.HandleFunc("/removePatent", h.RemovePatent).Methods("POST")
	sub.HandleFunc("/mergeWorkFiles", h.MergeWorkfiles).Methods("POST")
	sub.HandleFunc("/folders/{id}", h.DeleteFolder).Methods("DELETE")
	sub.HandleFunc("/folders/{id}/workfiles/{workfileId}", h.DeleteWorkfile).Methods("DELETE")
	sub.HandleFunc("/upload", h.Upload).Methods("POST")
}

type savePatentRequest struct {
	PatentID string `json:"patentId"`
	Title    string `json:"title"`
}

// SavePatent bookmarks a single patent
func (h *FolderHandlers) SavePatent(w http.ResponseWriter, r *http.Request) {
	var req savePatentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("patentId", req.PatentID)) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	saved, err := h.folderService.SavePatent(r.Context(), authCtx.UserID, req.PatentID, req.Title)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Patent saved", saved)
}

// ListFolders returns the caller's folder tree
func (h *FolderHandlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	list, err := h.folderService.ListFolders(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Folders fetched", list)
}

// CreateFolder creates a folder, optionally seeded with patents
func (h *FolderHandlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folders.CreateFolderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("name", req.Name)) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	folder, err := h.folderService.CreateFolder(r.Context(), authCtx.UserID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteCreated(w, "Folder created", folder)
}

type addPatentsRequest struct {
	FolderID     string   `json:"folderId"`
	WorkfileName string   `json:"workfileName"`
	PatentIDs    []string `json:"patentIds"`
}

// AddPatents adds patents to a workfile or a folder list
func (h *FolderHandlers) AddPatents(w http.ResponseWriter, r *http.Request) {
	var req addPatentsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("folderId", req.FolderID),
		httputil.MinItems("patentIds", len(req.PatentIDs), 1),
	) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	update, err := h.folderService.AddPatents(r.Context(), authCtx.UserID, req.FolderID, req.WorkfileName, req.PatentIDs)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Patents added", update)
}

type removePatentRequest struct {
	FolderID   string `json:"folderId"`
	WorkfileID string `json:"workfileId"`
	PatentID   string `json:"patentId"`
}

// RemovePatent removes one patent from a workfile, or from the whole folder
func (h *FolderHandlers) RemovePatent(w http.ResponseWriter, r *http.Request) {
	var req removePatentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("folderId", req.FolderID),
		httputil.Required("patentId", req.PatentID),
	) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.folderService.RemovePatent(r.Context(), authCtx.UserID, req.FolderID, req.WorkfileID, req.PatentID); err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Patent removed", nil)
}

type mergeWorkfilesRequest struct {
	FolderID    string   `json:"folderId"`
	WorkfileIDs []string `json:"workfileIds"`
	Name        string   `json:"name"`
}

// MergeWorkfiles creates a workfile from the union of others
func (h *FolderHandlers) MergeWorkfiles(w http.ResponseWriter, r *http.Request) {
	var req mergeWorkfilesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("folderId", req.FolderID),
		httputil.Required("name", req.Name),
		httputil.MinItems("workfileIds", len(req.WorkfileIDs), 2),
	) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	merged, err := h.folderService.MergeWorkfiles(r.Context(), authCtx.UserID, req.FolderID, req.WorkfileIDs, req.Name)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteCreated(w, "Workfiles merged", merged)
}

// DeleteFolder deletes a folder and everything in it
func (h *FolderHandlers) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.folderService.DeleteFolder(r.Context(), authCtx.UserID, folderID); err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Folder deleted", nil)
}

// DeleteWorkfile deletes one workfile
func (h *FolderHandlers) DeleteWorkfile(w http.ResponseWriter, r *http.Request) {
	folderID, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}
	workfileID, ok := httputil.ParsePathUUIDOrError(w, r, "workfileId")
	if !ok {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.folderService.DeleteWorkfile(r.Context(), authCtx.UserID, folderID, workfileID); err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteSuccess(w, "Workfile deleted", nil)
}

// Upload imports patent lists from multipart "files" into the folder named by "folderId"
func (h *FolderHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		httputil.WriteBadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	folderID := r.FormValue("folderId")
	if !httputil.Validate(w, httputil.Required("folderId", folderID)) {
		return
	}
	headers := r.MultipartForm.File["files"]
	if !httputil.Validate(w, httputil.MinItems("files", len(headers), 1)) {
		return
	}
	if len(headers) > maxUploadFiles {
		httputil.WriteBadRequest(w, fmt.Sprintf("at most %d files per upload", maxUploadFiles))
		return
	}

	uploads := make([]folders.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			httputil.WriteBadRequest(w, "failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httputil.WriteBadRequest(w, "failed to read uploaded file")
			return
		}
		uploads = append(uploads, folders.Upload{FileName: fh.Filename, Data: data})
	}

	authCtx := middleware.GetAuthContext(r)
	result, err := h.folderService.ImportFiles(r.Context(), authCtx.UserID, folderID, r.FormValue("workfileName"), uploads)
	if err != nil {
		httputil.WriteServiceError(w, r, err, folderErrors)
		return
	}
	httputil.WriteCreated(w, "Patents imported", result)
}
