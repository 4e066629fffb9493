package document

import (
	"fmt"
	"strings"
	"time"
)

// Entity is implemented by the pointer types stored in a collection document.
type Entity interface {
	EntityID() string
	// Stamp assigns identity at creation and resets the publish state.
	Stamp(id string, createdAt time.Time)
	Created() time.Time
	IsPublished() bool
	SetPublished(published bool, at *time.Time)
	Validate() error
}

// ResourceType enumerates the kinds of resources the site lists.
type ResourceType string

const (
	ResourceBooks           ResourceType = "Books"
	ResourceResearchArticle ResourceType = "Research Article"
	ResourceLegalPost       ResourceType = "Legal Post"
	ResourceNewsTelecast    ResourceType = "News Telecast"
)

var resourceTypes = []ResourceType{ResourceBooks, ResourceResearchArticle, ResourceLegalPost, ResourceNewsTelecast}

func (t ResourceType) Valid() bool {
	for _, v := range resourceTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Resource is an article, book, post or telecast. Heading and Body hold HTML.
type Resource struct {
	ID              string       `json:"id"`
	ResourceType    ResourceType `json:"resourceType"`
	Heading         string       `json:"heading"`
	Author          string       `json:"author,omitempty"`
	Images          []string     `json:"images"`
	Videos          []string     `json:"videos,omitempty"`
	Body            string       `json:"body"`
	Links           []Link       `json:"links"`
	Published       bool         `json:"published"`
	CreatedAt       time.Time    `json:"createdAt"`
	PublishedAt     *time.Time   `json:"publishedAt"`
	CoverImageIndex *int         `json:"coverImageIndex,omitempty"`
}

func (r *Resource) EntityID() string   { return r.ID }
func (r *Resource) Created() time.Time { return r.CreatedAt }
func (r *Resource) IsPublished() bool  { return r.Published }

func (r *Resource) Stamp(id string, createdAt time.Time) {
	r.ID = id
	r.CreatedAt = createdAt
	r.Published = false
	r.PublishedAt = nil
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
}

func (r *Resource) SetPublished(published bool, at *time.Time) {
	r.Published = published
	r.PublishedAt = at
}

func (r *Resource) Validate() error {
	var missing []string
	if r.ResourceType == "" {
		missing = append(missing, "resourceType")
	}
	if strings.TrimSpace(r.Heading) == "" {
		missing = append(missing, "heading")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !r.ResourceType.Valid() {
		return fmt.Errorf("%w: unknown resourceType %q", ErrValidation, r.ResourceType)
	}
	if r.CoverImageIndex != nil && (*r.CoverImageIndex < 0 || *r.CoverImageIndex >= len(r.Images)) {
		return fmt.Errorf("%w: coverImageIndex out of range", ErrValidation)
	}
	return nil
}

// Testimonial is a client quote shown on the site.
type Testimonial struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Content     string     `json:"content"`
	Image       string     `json:"image"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (t *Testimonial) EntityID() string   { return t.ID }
func (t *Testimonial) Created() time.Time { return t.CreatedAt }
func (t *Testimonial) IsPublished() bool  { return t.Published }

func (t *Testimonial) Stamp(id string, createdAt time.Time) {
	t.ID = id
	t.CreatedAt = createdAt
	t.Published = false
	t.PublishedAt = nil
}

func (t *Testimonial) SetPublished(published bool, at *time.Time) {
	t.Published = published
	t.PublishedAt = at
}

func (t *Testimonial) Validate() error {
	var missing []string
	if strings.TrimSpace(t.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(t.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Document is the logical content of one collection blob.
type Document[T Entity] struct {
	// Version counts successful writes; 0 means the blob does not exist yet.
	Version   int64
	UpdatedAt *time.Time
	Items     []T
}

// Find returns the index of id in Items, or -1.
func (d *Document[T]) Find(id string) int {
	for i, it := range d.Items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}

// Published returns the published items in document order.
func (d *Document[T]) Published() []T {
	out := make([]T, 0, len(d.Items))
	for _, it := range d.Items {
		if it.IsPublished() {
			out = append(out, it)
		}
	}
	return out
}

// PublishedIDs derives the published index from the items.
func (d *Document[T]) PublishedIDs() []string {
	out := []string{}
	for _, it := range d.Items {
		if it.IsPublished() {
			out = append(out, it.EntityID())
		}
	}
	return out
}

// IDs returns the item ids in document order.
func (d *Document[T]) IDs() []string {
	out := make([]string, len(d.Items))
	for i, it := range d.Items {
		out[i] = it.EntityID()
	}
	return out
}

// Spec describes one collection: where it lives and how its items behave.
type Spec[T Entity] struct {
	// Name is the plural collection name used in routes and metrics.
	Name string
	// Singular is the response key for a single entity.
	Singular string
	// Key is the fixed blob key of the collection document.
	Key string
	// LegacyItemsKey is an older array key accepted on read.
	LegacyItemsKey string
	New            func() T
	// IndexPublished writes a derived publishedIndex next to the items.
	IndexPublished bool
	// PublishViaUpdate lets a generic update patch toggle "published".
	PublishViaUpdate bool
}

func ResourcesSpec() Spec[*Resource] {
	return Spec[*Resource]{
		Name:           "resources",
		Singular:       "resource",
		Key:            "resources.json",
		LegacyItemsKey: "resources",
		New:            func() *Resource { return &Resource{} },
		IndexPublished: true,
	}
}

func TestimonialsSpec() Spec[*Testimonial] {
	return Spec[*Testimonial]{
		Name:             "testimonials",
		Singular:         "testimonial",
		Key:              "testimonials.json",
		LegacyItemsKey:   "testimonials",
		New:              func() *Testimonial { return &Testimonial{} },
		PublishViaUpdate: true,
	}
}
