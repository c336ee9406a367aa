//go:build unit

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/upload"
)

// mockRepository is an in-memory implementation of the Repository interface.
type mockRepository[T any, PT data.RecordPtr[T]] struct {
	records     []*T
	nextID      int64
	errOnCreate error
	errOnUpdate error
	deleteCalls int
}

var _ Repository[data.Product] = (*mockRepository[data.Product, *data.Product])(nil)

func (m *mockRepository[T, PT]) List(ctx context.Context) ([]*T, error) {
	return m.records, nil
}

func (m *mockRepository[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	for _, rec := range m.records {
		if PT(rec).RecordID() == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockRepository[T, PT]) First(ctx context.Context) (*T, error) {
	if len(m.records) == 0 {
		return nil, data.ErrNotFound
	}
	cp := *m.records[0]
	return &cp, nil
}

func (m *mockRepository[T, PT]) Create(ctx context.Context, rec *T) error {
	if m.errOnCreate != nil {
		return m.errOnCreate
	}
	m.nextID++
	PT(rec).SetRecordID(m.nextID)
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *mockRepository[T, PT]) Update(ctx context.Context, rec *T) error {
	if m.errOnUpdate != nil {
		return m.errOnUpdate
	}
	for i, existing := range m.records {
		if PT(existing).RecordID() == PT(rec).RecordID() {
			cp := *rec
			m.records[i] = &cp
			return nil
		}
	}
	return data.ErrNotFound
}

func (m *mockRepository[T, PT]) Delete(ctx context.Context, id int64) error {
	m.deleteCalls++
	for i, rec := range m.records {
		if PT(rec).RecordID() == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return data.ErrNotFound
}

// mockFileStore records saved and removed paths.
type mockFileStore struct {
	saved     []string
	removed   []string
	saveErr   error
	removeErr error
}

var _ FileStore = (*mockFileStore)(nil)

func (m *mockFileStore) Save(f upload.File, kind upload.Kind) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	path := "stored_" + f.Name
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *mockFileStore) Remove(path string) error {
	m.removed = append(m.removed, path)
	return m.removeErr
}

func newProductResource() (*Resource[data.Product, *data.Product], *mockRepository[data.Product, *data.Product], *mockFileStore) {
	repo := &mockRepository[data.Product, *data.Product]{}
	files := &mockFileStore{}
	return NewResource[data.Product](ProductDescriptor(), repo, files, logger.Nop()), repo, files
}

func attached(name string) *upload.File {
	return &upload.File{Name: name, Reader: strings.NewReader("img")}
}

func TestResource_Create(t *testing.T) {
	t.Run("success with file", func(t *testing.T) {
		res, repo, files := newProductResource()

		p, err := res.Create(context.Background(), Payload{
			Fields: map[string]any{"name": "Compost", "description": "Rich soil", "price": 9.5, "id": 42},
			File:   attached("compost.png"),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.ID != 1 {
			t.Errorf("expected id assigned by repository, got %d", p.ID)
		}
		if p.Name != "Compost" || *p.Description != "Rich soil" || *p.Price != 9.5 {
			t.Errorf("unexpected product: %+v", p)
		}
		if p.ImagePath == nil || *p.ImagePath != "stored_compost.png" {
			t.Errorf("expected stored image path, got %v", p.ImagePath)
		}
		if len(repo.records) != 1 || len(files.saved) != 1 {
			t.Errorf("expected one record and one file, got %d and %d", len(repo.records), len(files.saved))
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		res, repo, files := newProductResource()

		_, err := res.Create(context.Background(), Payload{
			Fields: map[string]any{"description": "no name"},
			File:   attached("compost.png"),
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Error() != "missing required field: name" {
			t.Errorf("unexpected message %q", verr.Error())
		}
		if len(repo.records) != 0 || len(files.saved) != 0 {
			t.Error("expected nothing to be stored")
		}
	})

	t.Run("blank required field", func(t *testing.T) {
		res, _, _ := newProductResource()

		_, err := res.Create(context.Background(), Payload{Fields: map[string]any{"name": "   "}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "name" {
			t.Fatalf("expected ValidationError for name, got %v", err)
		}
	})

	t.Run("numeric form value", func(t *testing.T) {
		res, _, _ := newProductResource()

		p, err := res.Create(context.Background(), Payload{Fields: map[string]any{"name": "Seeds", "price": "12.25"}})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.Price == nil || *p.Price != 12.25 {
			t.Errorf("expected price 12.25, got %v", p.Price)
		}
	})

	t.Run("malformed numeric value", func(t *testing.T) {
		res, _, _ := newProductResource()

		_, err := res.Create(context.Background(), Payload{Fields: map[string]any{"name": "Seeds", "price": "cheap"}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "price" {
			t.Fatalf("expected ValidationError for price, got %v", err)
		}
	})

	t.Run("wrong json type", func(t *testing.T) {
		res, _, _ := newProductResource()

		_, err := res.Create(context.Background(), Payload{Fields: map[string]any{"name": "Seeds", "price": true}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "price" {
			t.Fatalf("expected ValidationError for price, got %v", err)
		}
	})

	t.Run("rejected file", func(t *testing.T) {
		res, repo, _ := newProductResource()
		res.files = &mockFileStore{saveErr: &upload.FormatError{Kind: upload.Photo}}

		_, err := res.Create(context.Background(), Payload{
			Fields: map[string]any{"name": "Compost"},
			File:   attached("compost.exe"),
		})
		if !errors.Is(err, upload.ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat, got %v", err)
		}
		if len(repo.records) != 0 {
			t.Error("expected no record to be stored")
		}
	})

	t.Run("persistence failure discards file", func(t *testing.T) {
		res, repo, files := newProductResource()
		repo.errOnCreate = errors.New("db down")

		_, err := res.Create(context.Background(), Payload{
			Fields: map[string]any{"name": "Compost"},
			File:   attached("compost.png"),
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if len(files.removed) != 1 || files.removed[0] != "stored_compost.png" {
			t.Errorf("expected stored file to be removed, got %v", files.removed)
		}
	})
}

func TestResource_Update(t *testing.T) {
	t.Run("partial merge keeps absent fields", func(t *testing.T) {
		res, _, _ := newProductResource()
		ctx := context.Background()
		created, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Compost", "description": "Rich soil", "price": 9.5}})
		if err != nil {
			t.Fatal(err)
		}

		updated, err := res.Update(ctx, created.ID, Payload{Fields: map[string]any{"price": 11.0}})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Name != "Compost" || *updated.Description != "Rich soil" || *updated.Price != 11.0 {
			t.Errorf("unexpected product after update: %+v", updated)
		}
	})

	t.Run("new file replaces the old one", func(t *testing.T) {
		res, _, files := newProductResource()
		ctx := context.Background()
		created, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Compost"}, File: attached("old.png")})
		if err != nil {
			t.Fatal(err)
		}

		updated, err := res.Update(ctx, created.ID, Payload{File: attached("new.png")})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if *updated.ImagePath != "stored_new.png" {
			t.Errorf("expected new image path, got %s", *updated.ImagePath)
		}
		if len(files.removed) != 1 || files.removed[0] != "stored_old.png" {
			t.Errorf("expected old file to be removed, got %v", files.removed)
		}
	})

	t.Run("not found", func(t *testing.T) {
		res, _, _ := newProductResource()
		_, err := res.Update(context.Background(), 99, Payload{Fields: map[string]any{"name": "x"}})
		if !errors.Is(err, data.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("replace requires every required field", func(t *testing.T) {
		repo := &mockRepository[data.Nursery, *data.Nursery]{}
		res := NewResource[data.Nursery](NurseryDescriptor(), repo, &mockFileStore{}, logger.Nop())
		ctx := context.Background()
		created, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "North", "description": "Seedlings"}})
		if err != nil {
			t.Fatal(err)
		}

		_, err = res.Update(ctx, created.ID, Payload{Fields: map[string]any{"name": "South"}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "description" {
			t.Fatalf("expected ValidationError for description, got %v", err)
		}
		stored, _ := repo.Get(ctx, created.ID)
		if stored.Name != "North" {
			t.Errorf("expected record to be unchanged, got %q", stored.Name)
		}
	})
}

func TestResource_Delete(t *testing.T) {
	t.Run("removes record then file", func(t *testing.T) {
		res, repo, files := newProductResource()
		ctx := context.Background()
		created, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Compost"}, File: attached("compost.png")})
		if err != nil {
			t.Fatal(err)
		}

		if err := res.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if len(repo.records) != 0 {
			t.Error("expected record to be deleted")
		}
		if len(files.removed) != 1 || files.removed[0] != "stored_compost.png" {
			t.Errorf("expected file removal, got %v", files.removed)
		}
		if _, err := res.Get(ctx, created.ID); !errors.Is(err, data.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("file removal failure does not fail delete", func(t *testing.T) {
		res, repo, files := newProductResource()
		ctx := context.Background()
		created, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Compost"}, File: attached("compost.png")})
		if err != nil {
			t.Fatal(err)
		}
		files.removeErr = errors.New("permission denied")

		if err := res.Delete(ctx, created.ID); err != nil {
			t.Fatalf("expected delete to succeed, got %v", err)
		}
		if len(repo.records) != 0 {
			t.Error("expected record to be deleted")
		}
	})

	t.Run("not found", func(t *testing.T) {
		res, repo, _ := newProductResource()
		if err := res.Delete(context.Background(), 7); !errors.Is(err, data.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if repo.deleteCalls != 0 {
			t.Error("expected repository delete not to be called")
		}
	})
}

func TestResource_MediaLink(t *testing.T) {
	newProcess := func() (*Resource[data.Process, *data.Process], *mockFileStore) {
		repo := &mockRepository[data.Process, *data.Process]{}
		files := &mockFileStore{}
		return NewResource[data.Process](MillingProcessDescriptor(), repo, files, logger.Nop()), files
	}
	ctx := context.Background()

	t.Run("external link accepted", func(t *testing.T) {
		res, _ := newProcess()
		p, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Dehulling", "video_link": "https://videos.example.com/dehull"}})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.VideoLink == nil || *p.VideoLink != "https://videos.example.com/dehull" {
			t.Errorf("unexpected video link %v", p.VideoLink)
		}
	})

	t.Run("stored name of another record rejected", func(t *testing.T) {
		res, files := newProcess()
		owner, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Owner"}, File: attached("mill.mp4")})
		if err != nil {
			t.Fatal(err)
		}
		other, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Other"}})
		if err != nil {
			t.Fatal(err)
		}

		_, err = res.Create(ctx, Payload{Fields: map[string]any{"name": "Thief", "video_link": *owner.VideoLink}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "video_link" {
			t.Fatalf("expected ValidationError for video_link on create, got %v", err)
		}
		_, err = res.Update(ctx, other.ID, Payload{Fields: map[string]any{"video_link": *owner.VideoLink}})
		if !errors.As(err, &verr) || verr.Field != "video_link" {
			t.Fatalf("expected ValidationError for video_link on update, got %v", err)
		}

		if err := res.Delete(ctx, other.ID); err != nil {
			t.Fatal(err)
		}
		if len(files.removed) != 0 {
			t.Errorf("expected the owner's file to be kept, removed %v", files.removed)
		}
	})

	t.Run("unchanged stored path accepted", func(t *testing.T) {
		res, files := newProcess()
		owner, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Owner"}, File: attached("mill.mp4")})
		if err != nil {
			t.Fatal(err)
		}

		updated, err := res.Update(ctx, owner.ID, Payload{Fields: map[string]any{"name": "Renamed", "video_link": *owner.VideoLink}})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Name != "Renamed" || *updated.VideoLink != "stored_mill.mp4" {
			t.Errorf("unexpected process %+v", updated)
		}
		if len(files.removed) != 0 {
			t.Errorf("expected no removal, got %v", files.removed)
		}
	})
}

func TestResource_Singleton(t *testing.T) {
	repo := &mockRepository[data.AboutUs, *data.AboutUs]{}
	res := NewResource[data.AboutUs](AboutUsDescriptor(), repo, &mockFileStore{}, logger.Nop())
	ctx := context.Background()

	if _, err := res.Current(ctx); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}

	about, created, err := res.Put(ctx, Payload{Fields: map[string]any{"vision": "Green fields"}})
	if err != nil || !created {
		t.Fatalf("expected Put to create, got created=%v err=%v", created, err)
	}
	if *about.Vision != "Green fields" {
		t.Errorf("unexpected vision %q", *about.Vision)
	}

	if _, err := res.Create(ctx, Payload{Fields: map[string]any{"vision": "again"}}); err == nil {
		t.Fatal("expected conflict on second create")
	} else {
		var cerr *ConflictError
		if !errors.As(err, &cerr) {
			t.Errorf("expected ConflictError, got %v", err)
		}
	}

	about, created, err = res.Put(ctx, Payload{Fields: map[string]any{"our_story": "Since 1990"}})
	if err != nil || created {
		t.Fatalf("expected Put to update, got created=%v err=%v", created, err)
	}
	if *about.Vision != "Green fields" || *about.OurStory != "Since 1990" {
		t.Errorf("unexpected about us: %+v", about)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected a single row, got %d", len(repo.records))
	}

	if err := res.Remove(ctx); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := res.Current(ctx); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestResource_Inquiry(t *testing.T) {
	repo := &mockRepository[data.Inquiry, *data.Inquiry]{}
	res := NewResource[data.Inquiry](QueryDescriptor(), repo, &mockFileStore{}, logger.Nop())
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	res.now = func() time.Time { return fixed }
	ctx := context.Background()

	q, err := res.Create(ctx, Payload{Fields: map[string]any{"name": "Ama", "email": "ama@example.com", "message": "Price of maize?"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !q.CreatedAt.Equal(fixed) {
		t.Errorf("expected server timestamp, got %v", q.CreatedAt)
	}

	_, err = res.Create(ctx, Payload{Fields: map[string]any{"name": "Ama", "email": "not-an-email", "message": "hi"}})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Errorf("expected ValidationError for email, got %v", err)
	}
}

func TestResource_Present(t *testing.T) {
	repo := &mockRepository[data.HowTo, *data.HowTo]{}
	res := NewResource[data.HowTo](HowToDescriptor(NewRenderer()), repo, &mockFileStore{}, logger.Nop())

	h, err := res.Create(context.Background(), Payload{Fields: map[string]any{
		"title":   "Composting",
		"content": "**Turn** the pile weekly<script>alert(1)</script>",
	}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.Contains(h.ContentHTML, "<strong>Turn</strong>") {
		t.Errorf("expected rendered markdown, got %q", h.ContentHTML)
	}
	if strings.Contains(h.ContentHTML, "<script>") {
		t.Errorf("expected script to be stripped, got %q", h.ContentHTML)
	}

	list, err := res.List(context.Background())
	if err != nil || len(list) != 1 || list[0].ContentHTML == "" {
		t.Errorf("expected listed guide to be rendered, got %v %v", list, err)
	}
}
