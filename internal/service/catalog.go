package service

import (
	"net/mail"

	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/upload"

	"github.com/jmoiron/sqlx"
)

var (
	imageFile = &FileSpec{Column: "image_path", FormKey: "image", Kind: upload.Photo}
	photoFile = &FileSpec{Column: "photo_path", FormKey: "photo", Kind: upload.Photo}
	videoFile = &FileSpec{Column: "video_link", FormKey: "video", Kind: upload.Video}
)

// ProductDescriptor describes the products resource.
func ProductDescriptor() Descriptor[data.Product] {
	return Descriptor[data.Product]{Info: Info{
		Name:  "product",
		Table: "products",
		Path:  "/products",
		Fields: []Field{
			{Name: "name", Required: true},
			{Name: "description"},
			{Name: "price", Numeric: true},
		},
		File: imageFile,
	}}
}

// NurseryDescriptor describes the nurseries resource. Updates replace the record, so
// name and description must always be sent.
func NurseryDescriptor() Descriptor[data.Nursery] {
	return Descriptor[data.Nursery]{Info: Info{
		Name:  "nursery",
		Table: "nurseries",
		Path:  "/nurseries",
		Fields: []Field{
			{Name: "name", Required: true},
			{Name: "location"},
			{Name: "description", Required: true},
		},
		File:            photoFile,
		ReplaceOnUpdate: true,
	}}
}

// AboutUsDescriptor describes the singleton "about us" resource.
func AboutUsDescriptor() Descriptor[data.AboutUs] {
	return Descriptor[data.AboutUs]{Info: Info{
		Name:  "about us",
		Table: "about_us",
		Path:  "/about-us",
		Fields: []Field{
			{Name: "who_we_are"},
			{Name: "our_story"},
			{Name: "mission_statement"},
			{Name: "vision"},
			{Name: "core_values"},
			{Name: "what_we_do"},
			{Name: "why_choose_us"},
		},
		Singleton: true,
	}}
}

func processDescriptor(name, table, path string) Descriptor[data.Process] {
	return Descriptor[data.Process]{Info: Info{
		Name:  name,
		Table: table,
		Path:  path,
		Fields: []Field{
			{Name: "name", Required: true},
			{Name: "description"},
			{Name: "video_link"},
		},
		File: videoFile,
	}}
}

// MillingProcessDescriptor describes the milling process resource.
func MillingProcessDescriptor() Descriptor[data.Process] {
	return processDescriptor("milling process", "milling_processes", "/milling-process")
}

// AggressionProcessDescriptor describes the aggression process resource.
func AggressionProcessDescriptor() Descriptor[data.Process] {
	return processDescriptor("aggression process", "aggression_processes", "/aggression-process")
}

// FarmProgressionDescriptor describes the farm progression resource.
func FarmProgressionDescriptor() Descriptor[data.FarmProgression] {
	return Descriptor[data.FarmProgression]{Info: Info{
		Name:  "farm progression",
		Table: "farm_progressions",
		Path:  "/farm-progression",
		Fields: []Field{
			{Name: "name", Required: true},
			{Name: "description"},
		},
		File: photoFile,
	}}
}

// HowToDescriptor describes the how-to guides. Returned guides carry their content
// rendered to HTML.
func HowToDescriptor(renderer *Renderer) Descriptor[data.HowTo] {
	return Descriptor[data.HowTo]{
		Info: Info{
			Name:  "how-to",
			Table: "how_tos",
			Path:  "/how-to",
			Fields: []Field{
				{Name: "title", Required: true},
				{Name: "content", Required: true},
				{Name: "video_link"},
			},
			File: videoFile,
		},
		Present: func(h *data.HowTo) {
			h.ContentHTML = renderer.Render(h.Content)
		},
	}
}

// AnnouncementDescriptor describes the announcements resource.
func AnnouncementDescriptor() Descriptor[data.Announcement] {
	return Descriptor[data.Announcement]{Info: Info{
		Name:  "announcement",
		Table: "announcements",
		Path:  "/announcements",
		Fields: []Field{
			{Name: "title", Required: true},
			{Name: "content", Required: true},
		},
	}}
}

func inquiryDescriptor(name, table, path string) Descriptor[data.Inquiry] {
	return Descriptor[data.Inquiry]{
		Info: Info{
			Name:  name,
			Table: table,
			Path:  path,
			Fields: []Field{
				{Name: "name", Required: true},
				{Name: "email", Required: true},
				{Name: "message", Required: true},
			},
			PublicCreate: true,
			PrivateRead:  true,
			Immutable:    true,
			Stamped:      true,
		},
		Validate: validateInquiry,
	}
}

func validateInquiry(i *data.Inquiry) error {
	if _, err := mail.ParseAddress(i.Email); err != nil {
		return invalidField("email")
	}
	return nil
}

// QueryDescriptor describes visitor queries.
func QueryDescriptor() Descriptor[data.Inquiry] {
	return inquiryDescriptor("query", "queries", "/queries")
}

// FeedbackDescriptor describes visitor feedback.
func FeedbackDescriptor() Descriptor[data.Inquiry] {
	return inquiryDescriptor("feedback", "feedback", "/feedback")
}

// Catalog holds one Resource per content type.
type Catalog struct {
	Products            *Resource[data.Product, *data.Product]
	Nurseries           *Resource[data.Nursery, *data.Nursery]
	AboutUs             *Resource[data.AboutUs, *data.AboutUs]
	MillingProcesses    *Resource[data.Process, *data.Process]
	AggressionProcesses *Resource[data.Process, *data.Process]
	FarmProgressions    *Resource[data.FarmProgression, *data.FarmProgression]
	HowTos              *Resource[data.HowTo, *data.HowTo]
	Announcements       *Resource[data.Announcement, *data.Announcement]
	Queries             *Resource[data.Inquiry, *data.Inquiry]
	Feedback            *Resource[data.Inquiry, *data.Inquiry]
}

// NewCatalog creates every content Resource on db, sharing one file store.
func NewCatalog(db *sqlx.DB, files FileStore, log logger.Logger) *Catalog {
	renderer := NewRenderer()
	return &Catalog{
		Products:            NewSQLResource[data.Product](db, ProductDescriptor(), files, log),
		Nurseries:           NewSQLResource[data.Nursery](db, NurseryDescriptor(), files, log),
		AboutUs:             NewSQLResource[data.AboutUs](db, AboutUsDescriptor(), files, log),
		MillingProcesses:    NewSQLResource[data.Process](db, MillingProcessDescriptor(), files, log),
		AggressionProcesses: NewSQLResource[data.Process](db, AggressionProcessDescriptor(), files, log),
		FarmProgressions:    NewSQLResource[data.FarmProgression](db, FarmProgressionDescriptor(), files, log),
		HowTos:              NewSQLResource[data.HowTo](db, HowToDescriptor(renderer), files, log),
		Announcements:       NewSQLResource[data.Announcement](db, AnnouncementDescriptor(), files, log),
		Queries:             NewSQLResource[data.Inquiry](db, QueryDescriptor(), files, log),
		Feedback:            NewSQLResource[data.Inquiry](db, FeedbackDescriptor(), files, log),
	}
}

// Infos lists the metadata of every resource in the catalog.
func (c *Catalog) Infos() []Info {
	return []Info{
		c.Products.Info(),
		c.Nurseries.Info(),
		c.AboutUs.Info(),
		c.MillingProcesses.Info(),
		c.AggressionProcesses.Info(),
		c.FarmProgressions.Info(),
		c.HowTos.Info(),
		c.Announcements.Info(),
		c.Queries.Info(),
		c.Feedback.Info(),
	}
}
