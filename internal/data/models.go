package data

import "time"

// Record is implemented by every content model stored through a ContentRepository.
type Record interface {
	RecordID() int64
	SetRecordID(id int64)
	// Attachment returns the stored file path or media link, or "" when there is none.
	Attachment() string
}

// User represents an account that can sign in. Only administrators may change content.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// Product is an item offered for sale.
type Product struct {
	ID          int64    `db:"id" json:"id"`
	Name        string   `db:"name" json:"name"`
	Description *string  `db:"description" json:"description"`
	Price       *float64 `db:"price" json:"price"`
	ImagePath   *string  `db:"image_path" json:"image_path"`
}

func (p *Product) RecordID() int64      { return p.ID }
func (p *Product) SetRecordID(id int64) { p.ID = id }
func (p *Product) Attachment() string   { return deref(p.ImagePath) }

// Nursery is a seedling nursery site.
type Nursery struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Location    *string `db:"location" json:"location"`
	Description string  `db:"description" json:"description"`
	PhotoPath   *string `db:"photo_path" json:"photo_path"`
}

func (n *Nursery) RecordID() int64      { return n.ID }
func (n *Nursery) SetRecordID(id int64) { n.ID = id }
func (n *Nursery) Attachment() string   { return deref(n.PhotoPath) }

// AboutUs holds the narrative text of the "about us" page. Only one row is meaningful.
type AboutUs struct {
	ID               int64   `db:"id" json:"id"`
	WhoWeAre         *string `db:"who_we_are" json:"who_we_are"`
	OurStory         *string `db:"our_story" json:"our_story"`
	MissionStatement *string `db:"mission_statement" json:"mission_statement"`
	Vision           *string `db:"vision" json:"vision"`
	CoreValues       *string `db:"core_values" json:"core_values"`
	WhatWeDo         *string `db:"what_we_do" json:"what_we_do"`
	WhyChooseUs      *string `db:"why_choose_us" json:"why_choose_us"`
}

func (a *AboutUs) RecordID() int64      { return a.ID }
func (a *AboutUs) SetRecordID(id int64) { a.ID = id }
func (a *AboutUs) Attachment() string   { return "" }

// Process describes a milling or aggression process step, with a link to its media.
type Process struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	VideoLink   *string `db:"video_link" json:"video_link"`
}

func (p *Process) RecordID() int64      { return p.ID }
func (p *Process) SetRecordID(id int64) { p.ID = id }
func (p *Process) Attachment() string   { return deref(p.VideoLink) }

// FarmProgression is a photographed stage of the farm's development.
type FarmProgression struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	PhotoPath   *string `db:"photo_path" json:"photo_path"`
}

func (f *FarmProgression) RecordID() int64      { return f.ID }
func (f *FarmProgression) SetRecordID(id int64) { f.ID = id }
func (f *FarmProgression) Attachment() string   { return deref(f.PhotoPath) }

// HowTo is a guide written in markdown. ContentHTML is derived and never stored.
type HowTo struct {
	ID          int64   `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Content     string  `db:"content" json:"content"`
	VideoLink   *string `db:"video_link" json:"video_link"`
	ContentHTML string  `db:"-" json:"content_html"`
}

func (h *HowTo) RecordID() int64      { return h.ID }
func (h *HowTo) SetRecordID(id int64) { h.ID = id }
func (h *HowTo) Attachment() string   { return deref(h.VideoLink) }

// Announcement is a short notice shown on the site.
type Announcement struct {
	ID      int64  `db:"id" json:"id"`
	Title   string `db:"title" json:"title"`
	Content string `db:"content" json:"content"`
}

func (a *Announcement) RecordID() int64      { return a.ID }
func (a *Announcement) SetRecordID(id int64) { a.ID = id }
func (a *Announcement) Attachment() string   { return "" }

// Inquiry is a visitor query or feedback message. Inquiries are append-only.
type Inquiry struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (i *Inquiry) RecordID() int64      { return i.ID }
func (i *Inquiry) SetRecordID(id int64) { i.ID = id }
func (i *Inquiry) Attachment() string   { return "" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
