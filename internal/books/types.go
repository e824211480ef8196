package books

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrVersionConflict indicates the stored version no longer matches the expected one.
	ErrVersionConflict = errors.New("books: version conflict")
	// ErrTitleRequired indicates a draft was created without a title.
	ErrTitleRequired = errors.New("books: title is required")
	// ErrAuthorRequired indicates a draft was created without an author.
	ErrAuthorRequired = errors.New("books: author id is required")
	// ErrSlugInvalid indicates no slug could be derived from the title.
	ErrSlugInvalid = errors.New("books: slug is invalid")
)

// Book is the content entity moved through the publishing workflow.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Slug              string         `bun:"slug,notnull,unique" json:"slug"`
	Status            domain.Status  `bun:"status,notnull,default:'DRAFT'" json:"status"`
	Version           int            `bun:"version,notnull,default:1" json:"version"`
	AuthorID          string         `bun:"author_id,notnull" json:"author_id"`
	IsPublished       bool           `bun:"is_published,notnull,default:false" json:"is_published"`
	PublishedAt       *time.Time     `bun:"published_at,nullzero" json:"published_at,omitempty"`
	LastReviewComment string         `bun:"last_review_comment,nullzero" json:"last_review_comment,omitempty"`
	Fields            map[string]any `bun:"fields,type:jsonb" json:"fields"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Title returns the title field when present.
func (b *Book) Title() string {
	if b == nil {
		return ""
	}
	if title, ok := b.Fields["title"].(string); ok {
		return title
	}
	return ""
}

// StatusUpdate is the version-checked write applied by a transition.
type StatusUpdate struct {
	ID                uuid.UUID
	ExpectedVersion   int
	Status            domain.Status
	IsPublished       bool
	PublishedAt       *time.Time
	LastReviewComment *string
	UpdatedAt         time.Time
}

// DraftInput captures the values needed to create a DRAFT book.
type DraftInput struct {
	ID       uuid.UUID
	AuthorID string
	Slug     string
	Fields   map[string]any
}

// NewDraft builds a DRAFT book at version 1. The slug is derived from the title unless supplied.
func NewDraft(input DraftInput, now time.Time) (*Book, error) {
	if strings.TrimSpace(input.AuthorID) == "" {
		return nil, ErrAuthorRequired
	}
	title, _ := input.Fields["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	source := strings.TrimSpace(input.Slug)
	if source == "" {
		source = title
	}
	normalized, err := slug.Normalize(source)
	if err != nil || normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrSlugInvalid, source)
	}
	if strings.TrimSpace(input.Slug) == "" {
		normalized = normalized + "-" + strings.Split(id.String(), "-")[0]
	}

	return &Book{
		ID:        id,
		Slug:      normalized,
		Status:    domain.StatusDraft,
		Version:   1,
		AuthorID:  strings.TrimSpace(input.AuthorID),
		Fields:    cloneFields(input.Fields),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NotFoundError reports a missing book.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return "book not found"
	}
	return fmt.Sprintf("book %q not found", e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Clone returns a copy safe for callers to mutate.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Fields = cloneFields(b.Fields)
	if b.PublishedAt != nil {
		ts := *b.PublishedAt
		clone.PublishedAt = &ts
	}
	return &clone
}
