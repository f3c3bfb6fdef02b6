// AngelaMos | 2026
// handler.go

package image

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

const multipartMemory = 32 << 20

type Handler struct {
	service        *Service
	audit          *audit.Service
	maxUploadBytes int64
}

func NewHandler(service *Service, auditSvc *audit.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		audit:          auditSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts /images. consumeLimit guards the routes that spend
// credits.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	consumeLimit func(http.Handler) http.Handler,
) {
	r.Route("/images", func(r chi.Router) {
		r.Use(authenticator)

		r.With(consumeLimit).Post("/upload", h.Upload)
		r.Get("/", h.List)
		r.Get("/{imageID}", h.Get)
		r.Delete("/{imageID}", h.Delete)
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			core.JSONError(w, core.NewAppError(
				core.ErrPayloadTooBig,
				"upload exceeds the size limit",
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
			))
			return
		}
		core.BadRequest(w, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	files, err := readFiles(r.MultipartForm.File["files"])
	if err != nil {
		core.BadRequest(w, "could not read uploaded files")
		return
	}

	images, err := h.service.Upload(r.Context(), userID, files)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.audit != nil {
		ids := make([]string, len(images))
		for i := range images {
			ids[i] = images[i].ID
		}
		h.audit.RecordRequest(r, userID, audit.ActionImageUpload, map[string]any{
			"count":     len(images),
			"image_ids": ids,
		})
	}

	core.Created(w, ToImageResponseList(images))
}

func readFiles(headers []*multipart.FileHeader) ([]File, error) {
	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
		files = append(files, File{Filename: fh.Filename, Data: data})
	}
	return files, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	params := ListParams{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 50),
	}
	params.Normalize()

	images, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToImageResponseList(images), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "imageID")
	if !core.ValidID(id) {
		core.NotFound(w, "image")
		return
	}

	img, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToImageResponse(img))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "imageID")
	if !core.ValidID(id) {
		core.NotFound(w, "image")
		return
	}

	img, err := h.service.Delete(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.audit != nil {
		h.audit.RecordRequest(r, userID, audit.ActionImageDelete, map[string]any{
			"image_id": img.ID,
			"filename": img.Filename,
		})
	}

	core.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := entitlement.AsAppError(err); ok {
		core.JSONError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, validationMessage(err))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "image")
	default:
		core.InternalServerError(w, err)
	}
}

func validationMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Field + ": " + ve.Message
	}
	return err.Error()
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
