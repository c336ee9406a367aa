package service

import (
	"slices"

	"agrisite-api/internal/data"
	"agrisite-api/internal/upload"
)

// Field describes one client-writable attribute of a content type.
type Field struct {
	Name     string
	Numeric  bool
	Required bool
}

// FileSpec describes the optional file a content type accepts.
type FileSpec struct {
	Column  string      // column holding the stored path
	FormKey string      // multipart form key carrying the file
	Kind    upload.Kind // allow-list and size limit to apply
}

// Info is the non-generic part of a Descriptor: everything the HTTP layer needs to
// route and authorize a content type.
type Info struct {
	Name   string // singular, used in messages
	Table  string
	Path   string // route prefix below /api
	Fields []Field
	File   *FileSpec

	// Singleton types have one meaningful row and are addressed without an id.
	Singleton bool
	// ReplaceOnUpdate requires every required field on update instead of merging.
	ReplaceOnUpdate bool
	// PublicCreate lets guests create records; PrivateRead hides reads from guests.
	PublicCreate bool
	PrivateRead  bool
	// Immutable types accept no update or delete.
	Immutable bool
	// Stamped types get a server-assigned created_at.
	Stamped bool
}

// Schema derives the table layout from the fields, file column and timestamp.
func (i Info) Schema() data.Schema {
	cols := make([]string, 0, len(i.Fields)+2)
	for _, f := range i.Fields {
		cols = append(cols, f.Name)
	}
	if i.File != nil && !slices.Contains(cols, i.File.Column) {
		cols = append(cols, i.File.Column)
	}
	if i.Stamped {
		cols = append(cols, "created_at")
	}
	return data.Schema{Table: i.Table, Columns: cols}
}

// Descriptor configures a generic Resource for content type T.
type Descriptor[T any] struct {
	Info
	// Validate checks a record after the payload has been applied.
	Validate func(*T) error
	// Present fills derived, unstored fields before a record is returned.
	Present func(*T)
}

// Payload is a create or update request: raw field values plus an optional file.
type Payload struct {
	Fields map[string]any
	File   *upload.File
}
