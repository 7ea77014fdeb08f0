package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"medportal/internal/files/storage"
	apperrors "medportal/pkg/errors"
	httputil "medportal/pkg/http"
	"medportal/pkg/logger"
)

type uploadResponse struct {
	Success   bool   `json:"success"`
	FileID    string `json:"fileId"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SessionID string `json:"sessionId"`
}

type UploadHandler struct {
	storage     storage.Storage
	maxFileSize int64
	log         *logger.Logger
}

func NewUploadHandler(storage storage.Storage, maxFileSize int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		storage:     storage,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid multipart form")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Upload", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	userID := r.FormValue("userId")
	if userID == "" {
		h.writeError(w, apperrors.MissingField("userId"))
		return
	}

	// Uploads may arrive before the first chat message; mint a session id
	// so the client can attach the file to a conversation afterwards.
	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		sessionID = "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperrors.MissingField("file"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	fileID := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s/%s", userID, fileID, header.Filename)

	if err := h.storage.Put(r.Context(), key, mimeType, file); err != nil {
		h.log.Error("failed to store upload", "file_id", fileID, "user_id", userID, "error", err)
		h.writeError(w, apperrors.Internal("Failed to store file", err))
		return
	}

	h.log.Info("file uploaded", "file_id", fileID, "user_id", userID, "session_id", sessionID, "size", header.Size)

	if err := httputil.WriteJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		FileID:    fileID,
		FileName:  header.Filename,
		MimeType:  mimeType,
		SessionID: sessionID,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Upload", "operation", "WriteJSON", "error", err)
	}
}

func (h *UploadHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Upload", "operation", "WriteError", "error", writeErr)
	}
}

func (h *UploadHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/upload", h.Upload)
}
