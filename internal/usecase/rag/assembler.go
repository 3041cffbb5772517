package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/search/hit"
)

// blockSeparator joins context blocks with a blank line.
const blockSeparator = "\n\n"

// TokenCounter returns the number of model tokens in s.
type TokenCounter func(s string) int

// TiktokenCounter counts tokens with a tiktoken encoding such as cl100k_base.
func TiktokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}

// Assembler formats retrieved hits into the context handed to the model.
type Assembler struct {
	maxTokens int
	count     TokenCounter
	logger    *zap.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTokenBudget stops adding blocks once the context would exceed maxTokens.
// maxTokens <= 0 or a nil counter leaves the context unbounded.
func WithTokenBudget(maxTokens int, count TokenCounter) AssemblerOption {
	return func(a *Assembler) {
		if maxTokens > 0 && count != nil {
			a.maxTokens = maxTokens
			a.count = count
		}
	}
}

// NewAssembler creates an assembler.
func NewAssembler(logger *zap.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns one five-line block per distinct hit text, in input order,
// joined with a blank line. Malformed hits are skipped. No hits yields "".
func (a *Assembler) Assemble(_ context.Context, hits []hit.Hit) string {
	seen := make(map[string]struct{}, len(hits))
	blocks := make([]string, 0, len(hits))
	used := 0

	for i, h := range hits {
		if _, dup := seen[h.Text()]; dup {
			continue
		}

		block, err := formatBlock(h)
		if err != nil {
			a.logger.Warn("Skipping malformed hit",
				zap.Int("rank", i),
				zap.String("key", h.Key()),
				zap.String("document_name", h.Metadata().DocumentName),
				zap.Error(err),
			)
			continue
		}
		seen[h.Text()] = struct{}{}

		if a.count != nil {
			n := a.count(block)
			if len(blocks) > 0 {
				n += a.count(blockSeparator)
			}
			if used+n > a.maxTokens {
				a.logger.Debug("Context token budget reached",
					zap.Int("kept", len(blocks)),
					zap.Int("offered", len(hits)),
					zap.Int("max_tokens", a.maxTokens),
				)
				break
			}
			used += n
		}

		blocks = append(blocks, block)
	}

	return strings.Join(blocks, blockSeparator)
}

func formatBlock(h hit.Hit) (string, error) {
	if strings.TrimSpace(h.Text()) == "" {
		return "", fmt.Errorf("empty page content")
	}
	meta := h.Metadata()
	if err := meta.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("document_name: ")
	b.WriteString(meta.DocumentName)
	b.WriteString("\nsection_name: ")
	b.WriteString(meta.SectionName)
	b.WriteString("\nheading: ")
	b.WriteString(meta.Heading)
	b.WriteString("\nsub_heading: ")
	b.WriteString(meta.SubHeading)
	b.WriteString("\npage_content: ")
	b.WriteString(h.Text())
	return b.String(), nil
}
