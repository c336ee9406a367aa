package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/middleware"
	"agrisite-api/internal/service"
	"agrisite-api/internal/upload"

	"github.com/go-chi/chi/v5"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to
// temporary files.
const multipartMemory = 8 << 20

// ResourceServicer defines the operations of one content resource.
type ResourceServicer[T any] interface {
	Info() service.Info
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, p service.Payload) (*T, error)
	Update(ctx context.Context, id int64, p service.Payload) (*T, error)
	Delete(ctx context.Context, id int64) error
	Current(ctx context.Context) (*T, error)
	Put(ctx context.Context, p service.Payload) (*T, bool, error)
	Remove(ctx context.Context) error
}

// Mounter registers a handler's routes on a router.
type Mounter interface {
	Mount(r chi.Router, wrap func(middleware.AppHandler) http.Handler)
}

// ResourceHandler serves the JSON endpoints of one content resource.
type ResourceHandler[T any] struct {
	svc     ResourceServicer[T]
	info    service.Info
	maxBody int64
	log     logger.Logger
}

// NewResourceHandler creates a ResourceHandler. maxBody limits request bodies; zero
// means no limit.
func NewResourceHandler[T any](svc ResourceServicer[T], maxBody int64, log logger.Logger) *ResourceHandler[T] {
	return &ResourceHandler[T]{svc: svc, info: svc.Info(), maxBody: maxBody, log: log}
}

// Mount registers the resource's routes below /api.
func (h *ResourceHandler[T]) Mount(r chi.Router, wrap func(middleware.AppHandler) http.Handler) {
	base := "/api" + h.info.Path
	if h.info.Singleton {
		r.Method(http.MethodGet, base, wrap(h.current))
		r.Method(http.MethodPost, base, wrap(h.create))
		r.Method(http.MethodPut, base, wrap(h.put))
		r.Method(http.MethodDelete, base, wrap(h.remove))
		return
	}

	r.Method(http.MethodGet, base, wrap(h.list))
	r.Method(http.MethodPost, base, wrap(h.create))
	r.Method(http.MethodGet, base+"/{id}", wrap(h.get))
	if !h.info.Immutable {
		r.Method(http.MethodPut, base+"/{id}", wrap(h.update))
		r.Method(http.MethodDelete, base+"/{id}", wrap(h.delete))
	}
}

func (h *ResourceHandler[T]) list(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	records, err := h.svc.List(r.Context())
	if err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, records)
	return nil
}

func (h *ResourceHandler[T]) get(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := h.recordID(r)
	if appErr != nil {
		return appErr
	}
	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, record)
	return nil
}

func (h *ResourceHandler[T]) create(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	payload, cleanup, appErr := h.decode(w, r)
	if appErr != nil {
		return appErr
	}
	defer cleanup()

	record, err := h.svc.Create(r.Context(), payload)
	if err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusCreated, record)
	return nil
}

func (h *ResourceHandler[T]) update(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := h.recordID(r)
	if appErr != nil {
		return appErr
	}
	payload, cleanup, appErr := h.decode(w, r)
	if appErr != nil {
		return appErr
	}
	defer cleanup()

	record, err := h.svc.Update(r.Context(), id, payload)
	if err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, record)
	return nil
}

func (h *ResourceHandler[T]) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := h.recordID(r)
	if appErr != nil {
		return appErr
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": h.deletedMessage()})
	return nil
}

func (h *ResourceHandler[T]) current(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	record, err := h.svc.Current(r.Context())
	if err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, record)
	return nil
}

func (h *ResourceHandler[T]) put(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	payload, cleanup, appErr := h.decode(w, r)
	if appErr != nil {
		return appErr
	}
	defer cleanup()

	record, created, err := h.svc.Put(r.Context(), payload)
	if err != nil {
		return appError(err, h.info.Name)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	middleware.WriteJSON(w, code, record)
	return nil
}

func (h *ResourceHandler[T]) remove(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.svc.Remove(r.Context()); err != nil {
		return appError(err, h.info.Name)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": h.deletedMessage()})
	return nil
}

func (h *ResourceHandler[T]) deletedMessage() string {
	return fmt.Sprintf("%s deleted", capitalize(h.info.Name))
}

// recordID parses the {id} URL parameter. An id that is not a positive integer cannot
// name a record, so it is reported as not found.
func (h *ResourceHandler[T]) recordID(r *http.Request) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appError(data.ErrNotFound, h.info.Name)
	}
	return id, nil
}

// decode reads a JSON, urlencoded or multipart body into a Payload. The returned cleanup
// releases any uploaded file and must be called once the payload is no longer needed.
func (h *ResourceHandler[T]) decode(w http.ResponseWriter, r *http.Request) (service.Payload, func(), *middleware.AppError) {
	noop := func() {}
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return service.Payload{}, noop, h.bodyError(err)
		}
		payload := service.Payload{Fields: formFields(r.MultipartForm.Value)}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }
		if h.info.File == nil {
			return payload, cleanup, nil
		}
		file, header, err := r.FormFile(h.info.File.FormKey)
		if errors.Is(err, http.ErrMissingFile) {
			return payload, cleanup, nil
		}
		if err != nil {
			cleanup()
			return service.Payload{}, noop, h.bodyError(err)
		}
		payload.File = &upload.File{Name: header.Filename, Reader: file}
		return payload, func() {
			_ = file.Close()
			cleanup()
		}, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return service.Payload{}, noop, h.bodyError(err)
		}
		return service.Payload{Fields: formFields(r.PostForm)}, noop, nil

	default:
		fields := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
			return service.Payload{}, noop, h.bodyError(err)
		}
		return service.Payload{Fields: fields}, noop, nil
	}
}

func (h *ResourceHandler[T]) bodyError(err error) *middleware.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return appError(upload.ErrTooLarge, h.info.Name)
	}
	return badRequest(err, "Invalid request body")
}

func formFields(values map[string][]string) map[string]any {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields
}
