// Package chunker splits Markdown documents into heading-scoped chunks.
package chunker

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
)

// MaxHeadingLevel is the deepest heading level that starts a chunk.
const MaxHeadingLevel = 3

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Chunker splits documents at level 1-3 Markdown headings.
type Chunker struct {
	maxChunkBytes int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChunkBytes rejects documents producing a chunk larger than n bytes. 0 disables the check.
func WithMaxChunkBytes(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.maxChunkBytes = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads and decodes a document body.
// A leading UTF-8 BOM is dropped; invalid UTF-8 is an ErrContentLoad.
func Load(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", domain.ErrContentLoad, name, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrContentLoad, name)
	}
	return string(data), nil
}

// Chunk splits text into ordered chunks carrying their heading context.
//
// Each heading line (1-3 leading '#', then a space or end of line) opens a new
// chunk that keeps the heading line and runs up to the next heading. Text
// before the first heading forms a chunk with empty heading fields. Spans that
// are only whitespace produce no chunk. A document without headings yields one
// chunk equal to the input; an empty document yields none.
func (c *Chunker) Chunk(text, documentName string) ([]chunk.Chunk, error) {
	if documentName == "" {
		return nil, fmt.Errorf("%w: document name is required", domain.ErrChunking)
	}

	spans := split(text)
	out := make([]chunk.Chunk, 0, len(spans))

	var meta chunk.Metadata
	meta.DocumentName = documentName

	for _, sp := range spans {
		switch sp.level {
		case 1:
			meta.SectionName, meta.Heading, meta.SubHeading = sp.title, "", ""
		case 2:
			meta.Heading, meta.SubHeading = sp.title, ""
		case 3:
			meta.SubHeading = sp.title
		}

		body := text[sp.start:sp.end]
		if strings.TrimSpace(body) == "" {
			continue
		}
		if c.maxChunkBytes > 0 && len(body) > c.maxChunkBytes {
			return nil, fmt.Errorf("%w: chunk %d of %s is %d bytes (max %d)",
				domain.ErrChunking, len(out), documentName, len(body), c.maxChunkBytes)
		}

		ch, err := chunk.New(body, meta, len(out))
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d of %s: %w", domain.ErrChunking, len(out), documentName, err)
		}
		out = append(out, ch)
	}

	return out, nil
}

// span is a byte range of the document opened by a heading of level (0 = preamble).
type span struct {
	start, end int
	level      int
	title      string
}

func split(text string) []span {
	var spans []span
	cur := span{}
	var fence string

	for off := 0; off < len(text); {
		lineEnd := strings.IndexByte(text[off:], '\n')
		next := len(text)
		if lineEnd >= 0 {
			next = off + lineEnd + 1
			lineEnd += off
		} else {
			lineEnd = len(text)
		}
		line := text[off:lineEnd]

		if marker, ok := fenceMarker(line); ok {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence):
				fence = ""
			}
		} else if fence == "" {
			if level, title, ok := parseHeading(line); ok {
				cur.end = trimLineBreak(text, off)
				if off > 0 {
					spans = append(spans, cur)
				}
				cur = span{start: off, level: level, title: title}
			}
		}

		off = next
	}

	cur.end = len(text)
	return append(spans, cur)
}

// trimLineBreak returns the end of the span preceding a heading at off,
// excluding the line break that separates them.
func trimLineBreak(text string, off int) int {
	end := off
	if end > 0 && text[end-1] == '\n' {
		end--
		if end > 0 && text[end-1] == '\r' {
			end--
		}
	}
	return end
}

// parseHeading recognizes "#", "##" and "###" headings. Deeper levels are content.
func parseHeading(line string) (int, string, bool) {
	s := strings.TrimSpace(line)
	level := 0
	for level < len(s) && s[level] == '#' {
		level++
	}
	if level == 0 || level > MaxHeadingLevel {
		return 0, "", false
	}
	if level < len(s) && s[level] != ' ' && s[level] != '\t' {
		return 0, "", false
	}
	return level, strings.TrimSpace(s[level:]), true
}

// fenceMarker reports whether line opens or closes a fenced code block.
func fenceMarker(line string) (string, bool) {
	s := strings.TrimSpace(line)
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(s) && s[n] == ch {
			n++
		}
		if n >= 3 {
			return s[:n], true
		}
	}
	return "", false
}
