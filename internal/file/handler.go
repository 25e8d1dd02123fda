package file

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/ndunkgo99/Viyey-worker/internal/middleware"
	"github.com/ndunkgo99/Viyey-worker/internal/response"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Handler handles HTTP requests for uploads and deletions.
type Handler struct {
	svc     *Service
	maxSize int64
	logger  log.Logger
}

// NewHandler creates a file Handler. maxSize caps the request body of an upload.
func NewHandler(svc *Service, maxSize int64, logger log.Logger) *Handler {
	return &Handler{svc: svc, maxSize: maxSize, logger: logger}
}

type uploadResponse struct {
	Success      bool   `json:"success" example:"true"`
	OriginalName string `json:"originalName" example:"clip.mp4"`
	Size         int64  `json:"size" example:"1000"`
	URL          string `json:"url" example:"http://localhost:9000/media/1760862600000-1a2b3c4d"`
	ShortURL     string `json:"shortUrl,omitempty" example:"https://sho.rt/abc"`
	FileID       string `json:"fileId" example:"1760862600000-1a2b3c4d"`
}

type deleteRequest struct {
	FileID string `json:"fileId" example:"1760862600000-1a2b3c4d"`
}

type deleteResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"File 1760862600000-1a2b3c4d deleted"`
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores the file, shortens its public URL when a shortener is configured, records its metadata and bumps the aggregate.
//	@Tags			files
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"File to upload"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxSize {
		response.TooLarge(w, "file exceeds the upload size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "file exceeds the upload size limit")
			return
		}
		response.BadRequest(w, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file uploaded")
		return
	}
	defer f.Close()

	level.Debug(h.logger).Log("msg", "upload received",
		"file", header.Filename,
		"subject", middleware.SubjectFromContext(r.Context()),
	)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.svc.Upload(r.Context(), UploadInput{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, uploadResponse{
		Success:      true,
		OriginalName: res.Record.Name,
		Size:         res.Record.SizeBytes,
		URL:          res.Record.Storage.URL,
		ShortURL:     res.Record.ShortURL,
		FileID:       res.Record.ID,
	})
}

// Delete godoc
//
//	@Summary		Delete a file
//	@Description	Removes the stored object and its metadata and takes its size off the aggregate. Unknown ids succeed.
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		deleteRequest	true	"File id"
//	@Success		200		{object}	deleteResponse
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/delete [post]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.FileID == "" {
		response.BadRequest(w, "No fileId provided")
		return
	}

	res, err := h.svc.Delete(r.Context(), req.FileID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, deleteResponse{Success: true, Message: res.Message})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		response.BadRequest(w, err.Error())
		return
	}
	level.Error(h.logger).Log("msg", "request failed", "err", err)
	response.InternalError(w, err.Error())
}
