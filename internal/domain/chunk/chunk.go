package chunk

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Metadata is the heading context of a chunk.
type Metadata struct {
	DocumentName string
	SectionName  string // level-1 heading
	Heading      string // level-2 heading
	SubHeading   string // level-3 heading
}

// Validate checks that every value is a single line of valid UTF-8.
func (m Metadata) Validate() error {
	for _, v := range []string{m.DocumentName, m.SectionName, m.Heading, m.SubHeading} {
		if !utf8.ValidString(v) {
			return errors.New("metadata is not valid UTF-8")
		}
		if strings.ContainsAny(v, "\r\n") {
			return errors.New("metadata contains a line break")
		}
	}
	return nil
}

// Chunk is a contiguous span of a document with its heading context.
type Chunk struct {
	id       string
	text     string
	meta     Metadata
	position int
}

// New validates and creates a chunk with a fresh ID.
func New(text string, meta Metadata, position int) (Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return Chunk{}, errors.New("chunk text is required")
	}
	if meta.DocumentName == "" {
		return Chunk{}, errors.New("document name is required")
	}
	if position < 0 {
		return Chunk{}, errors.New("position must be non-negative")
	}
	if err := meta.Validate(); err != nil {
		return Chunk{}, err
	}
	return Chunk{id: uuid.NewString(), text: text, meta: meta, position: position}, nil
}

// Reconstruct restores a chunk from storage without validation.
func Reconstruct(id, text string, meta Metadata, position int) Chunk {
	return Chunk{id: id, text: text, meta: meta, position: position}
}

// ID returns the chunk identifier.
func (c Chunk) ID() string { return c.id }

// Text returns the chunk content including its heading line.
func (c Chunk) Text() string { return c.text }

// Metadata returns the heading context.
func (c Chunk) Metadata() Metadata { return c.meta }

// DocumentName returns the source document name.
func (c Chunk) DocumentName() string { return c.meta.DocumentName }

// SectionName returns the level-1 heading.
func (c Chunk) SectionName() string { return c.meta.SectionName }

// Heading returns the level-2 heading.
func (c Chunk) Heading() string { return c.meta.Heading }

// SubHeading returns the level-3 heading.
func (c Chunk) SubHeading() string { return c.meta.SubHeading }

// Position returns the 0-based order of the chunk in its document.
func (c Chunk) Position() int { return c.position }
