package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/upload"

	"github.com/jmoiron/sqlx"
)

// Repository defines the database operations a Resource needs.
type Repository[T any] interface {
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	First(ctx context.Context) (*T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, id int64) error
}

// FileStore stores and removes uploaded files.
type FileStore interface {
	Save(f upload.File, kind upload.Kind) (string, error)
	Remove(path string) error
}

// Resource provides list/get/create/update/delete for one content type, configured
// by its Descriptor.
type Resource[T any, PT data.RecordPtr[T]] struct {
	desc  Descriptor[T]
	repo  Repository[T]
	files FileStore
	log   logger.Logger
	now   func() time.Time
}

// NewResource creates a Resource over the given repository and file store.
func NewResource[T any, PT data.RecordPtr[T]](desc Descriptor[T], repo Repository[T], files FileStore, log logger.Logger) *Resource[T, PT] {
	return &Resource[T, PT]{
		desc:  desc,
		repo:  repo,
		files: files,
		log:   log.With(map[string]interface{}{"resource": desc.Name}),
		now:   time.Now,
	}
}

// NewSQLResource creates a Resource backed by a ContentRepository on db.
func NewSQLResource[T any, PT data.RecordPtr[T]](db *sqlx.DB, desc Descriptor[T], files FileStore, log logger.Logger) *Resource[T, PT] {
	repo := data.NewContentRepository[T, PT](db, desc.Schema())
	return NewResource[T, PT](desc, repo, files, log)
}

// Info returns the routing and authorization metadata of the resource.
func (r *Resource[T, PT]) Info() Info { return r.desc.Info }

// List returns every record ordered by id.
func (r *Resource[T, PT]) List(ctx context.Context) ([]*T, error) {
	records, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		r.present(rec)
	}
	return records, nil
}

// Get returns one record, or data.ErrNotFound.
func (r *Resource[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.present(rec)
	return rec, nil
}

// Create validates the payload, stores its file and persists a new record.
func (r *Resource[T, PT]) Create(ctx context.Context, p Payload) (*T, error) {
	if r.desc.Singleton {
		_, err := r.repo.First(ctx)
		if err == nil {
			return nil, &ConflictError{Message: fmt.Sprintf("%s already exists", r.desc.Name)}
		}
		if !errors.Is(err, data.ErrNotFound) {
			return nil, err
		}
	}
	return r.create(ctx, p)
}

func (r *Resource[T, PT]) create(ctx context.Context, p Payload) (*T, error) {
	rec := new(T)
	saved, err := r.apply(rec, p, true)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		r.discard(saved)
		return nil, err
	}
	r.log.Debug(fmt.Sprintf("Created %s %d", r.desc.Name, PT(rec).RecordID()))
	r.present(rec)
	return rec, nil
}

// Update applies the payload to an existing record. Fields absent from the payload keep
// their value unless the descriptor asks for full replacement of required fields.
func (r *Resource[T, PT]) Update(ctx context.Context, id int64, p Payload) (*T, error) {
	rec, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, rec, p)
}

func (r *Resource[T, PT]) update(ctx context.Context, rec *T, p Payload) (*T, error) {
	old := PT(rec).Attachment()
	saved, err := r.apply(rec, p, r.desc.ReplaceOnUpdate)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Update(ctx, rec); err != nil {
		r.discard(saved)
		return nil, err
	}
	if old != "" && old != PT(rec).Attachment() {
		r.discard(old)
	}
	r.present(rec)
	return rec, nil
}

// Delete removes a record and then, best-effort, its stored file.
func (r *Resource[T, PT]) Delete(ctx context.Context, id int64) error {
	rec, err := r.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.discard(PT(rec).Attachment())
	return nil
}

// Current returns the singleton record, or data.ErrNotFound when none exists yet.
func (r *Resource[T, PT]) Current(ctx context.Context) (*T, error) {
	rec, err := r.repo.First(ctx)
	if err != nil {
		return nil, err
	}
	r.present(rec)
	return rec, nil
}

// Put updates the singleton record, creating it when absent. The boolean reports
// whether a record was created.
func (r *Resource[T, PT]) Put(ctx context.Context, p Payload) (*T, bool, error) {
	rec, err := r.repo.First(ctx)
	if errors.Is(err, data.ErrNotFound) {
		created, err := r.create(ctx, p)
		return created, true, err
	}
	if err != nil {
		return nil, false, err
	}
	updated, err := r.update(ctx, rec, p)
	return updated, false, err
}

// Remove deletes the singleton record.
func (r *Resource[T, PT]) Remove(ctx context.Context) error {
	rec, err := r.repo.First(ctx)
	if err != nil {
		return err
	}
	return r.Delete(ctx, PT(rec).RecordID())
}

// apply validates the payload and copies it onto rec. When requireAll is set, every
// required field must be present. A supplied file is stored only after validation
// succeeds; its stored path is returned so callers can discard it on failure.
func (r *Resource[T, PT]) apply(rec *T, p Payload, requireAll bool) (string, error) {
	current := PT(rec).Attachment()
	values := make(map[string]any, len(r.desc.Fields)+2)
	for _, f := range r.desc.Fields {
		v, ok := p.Fields[f.Name]
		if !ok {
			if requireAll && f.Required {
				return "", missingField(f.Name)
			}
			continue
		}
		v, err := normalize(f, v)
		if err != nil {
			return "", err
		}
		if f.Required && v == nil {
			return "", missingField(f.Name)
		}
		if r.desc.File != nil && f.Name == r.desc.File.Column && !external(v, current) {
			return "", invalidField(f.Name)
		}
		values[f.Name] = v
	}
	if r.desc.Stamped && requireAll {
		values["created_at"] = r.now().UTC()
	}
	if err := assign(rec, values); err != nil {
		return "", err
	}
	if r.desc.Validate != nil {
		if err := r.desc.Validate(rec); err != nil {
			return "", err
		}
	}

	if p.File == nil || r.desc.File == nil {
		return "", nil
	}
	saved, err := r.files.Save(*p.File, r.desc.File.Kind)
	if err != nil {
		return "", err
	}
	if err := assign(rec, map[string]any{r.desc.File.Column: saved}); err != nil {
		r.discard(saved)
		return "", err
	}
	return saved, nil
}

// external reports whether a client-written value for the file column is acceptable:
// empty, unchanged, or a link to media hosted elsewhere. Anything else could name a
// file stored for another record, which would then be removed with this one.
func external(v any, current string) bool {
	s, ok := v.(string)
	if !ok {
		return v == nil
	}
	return s == current || strings.Contains(s, "://")
}

// normalize trims strings, maps blank values to nil and parses numeric form values.
func normalize(f Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !f.Numeric {
		return s, nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, invalidField(f.Name)
	}
	return n, nil
}

// assign copies values onto rec through its JSON field names, so only keys present
// in values are touched.
func assign[T any](rec *T, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return invalidField(typeErr.Field)
		}
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

func (r *Resource[T, PT]) discard(path string) {
	if path == "" {
		return
	}
	if err := r.files.Remove(path); err != nil {
		r.log.Error(err, fmt.Sprintf("Failed to remove stored file %s", path))
	}
}

func (r *Resource[T, PT]) present(rec *T) {
	if r.desc.Present != nil {
		r.desc.Present(rec)
	}
}
