package chunker

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
)

func mustChunk(t *testing.T, text string) []chunk.Chunk {
	t.Helper()
	chunks, err := New().Chunk(text, "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return chunks
}

func TestChunk_IntroDetailsScenario(t *testing.T) {
	chunks := mustChunk(t, "# Intro\nHello\n## Details\nWorld")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first, second := chunks[0], chunks[1]
	if first.SectionName() != "Intro" || first.Heading() != "" || !strings.Contains(first.Text(), "Hello") {
		t.Errorf("first chunk = %+v / %q", first.Metadata(), first.Text())
	}
	if second.SectionName() != "Intro" || second.Heading() != "Details" || !strings.Contains(second.Text(), "World") {
		t.Errorf("second chunk = %+v / %q", second.Metadata(), second.Text())
	}
	if first.Text() != "# Intro\nHello" {
		t.Errorf("first text = %q, heading line kept and separator dropped", first.Text())
	}
	if second.Text() != "## Details\nWorld" {
		t.Errorf("second text = %q", second.Text())
	}
	if first.Position() != 0 || second.Position() != 1 {
		t.Errorf("positions = %d, %d", first.Position(), second.Position())
	}
}

func TestChunk_NoHeadings(t *testing.T) {
	inputs := []string{
		"plain text",
		"line one\nline two\n",
		"  indented\n\n#### deep heading is content\n#hashtag\n",
	}
	for _, in := range inputs {
		chunks := mustChunk(t, in)
		if len(chunks) != 1 {
			t.Fatalf("%q: expected 1 chunk, got %d", in, len(chunks))
		}
		c := chunks[0]
		if c.Text() != in {
			t.Errorf("text = %q, want input unchanged %q", c.Text(), in)
		}
		if c.SectionName() != "" || c.Heading() != "" || c.SubHeading() != "" {
			t.Errorf("heading fields should be empty: %+v", c.Metadata())
		}
		if c.DocumentName() != "doc.md" {
			t.Errorf("DocumentName() = %q", c.DocumentName())
		}
	}
}

func TestChunk_LevelOneOnly(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		leading bool
	}{
		{"three sections", "# A\na\n# B\nb\n# C\nc", 3, false},
		{"with preamble", "intro\n# A\na\n# B\nb", 3, true},
		{"heading only", "# A\n# B", 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks := mustChunk(t, tc.text)
			if len(chunks) != tc.want {
				t.Fatalf("expected %d chunks, got %d", tc.want, len(chunks))
			}
			i := 0
			if tc.leading {
				if chunks[0].SectionName() != "" {
					t.Errorf("preamble section = %q", chunks[0].SectionName())
				}
				i = 1
			}
			for j, c := range chunks[i:] {
				want := string(rune('A' + j))
				if c.SectionName() != want {
					t.Errorf("chunk %d section = %q, want %q", i+j, c.SectionName(), want)
				}
			}
		})
	}
}

func TestChunk_HeadingInheritance(t *testing.T) {
	text := "# S1\n## H1\n### Sub1\nx\n## H2\ny\n# S2\n### Sub2\nz"
	chunks := mustChunk(t, text)

	want := []chunk.Metadata{
		{DocumentName: "doc.md", SectionName: "S1"},
		{DocumentName: "doc.md", SectionName: "S1", Heading: "H1"},
		{DocumentName: "doc.md", SectionName: "S1", Heading: "H1", SubHeading: "Sub1"},
		{DocumentName: "doc.md", SectionName: "S1", Heading: "H2"},
		{DocumentName: "doc.md", SectionName: "S2"},
		{DocumentName: "doc.md", SectionName: "S2", SubHeading: "Sub2"},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata() != want[i] {
			t.Errorf("chunk %d metadata = %+v, want %+v", i, c.Metadata(), want[i])
		}
	}
}

func TestChunk_FencedCodeIsNotHeading(t *testing.T) {
	text := "# Setup\n```bash\n# install deps\nmake\n```\n~~~\n## not a heading\n~~~\n## Run\ngo"
	chunks := mustChunk(t, text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text(), "# install deps") || !strings.Contains(chunks[0].Text(), "## not a heading") {
		t.Errorf("fenced lines should stay in the first chunk: %q", chunks[0].Text())
	}
	if chunks[1].Heading() != "Run" {
		t.Errorf("second heading = %q", chunks[1].Heading())
	}
}

func TestChunk_CRLF(t *testing.T) {
	chunks := mustChunk(t, "# A\r\nx\r\n## B\r\ny\r\n")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text() != "# A\r\nx" {
		t.Errorf("first text = %q", chunks[0].Text())
	}
	if chunks[1].Heading() != "B" || chunks[1].Text() != "## B\r\ny\r\n" {
		t.Errorf("second chunk = %q / %q", chunks[1].Heading(), chunks[1].Text())
	}
}

func TestChunk_WhitespaceSpansSkipped(t *testing.T) {
	chunks := mustChunk(t, "\n\n   \n# A\nbody")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Position() != 0 {
		t.Errorf("Position() = %d, want 0", chunks[0].Position())
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	for _, in := range []string{"", "   \n\t\n"} {
		chunks, err := New().Chunk(in, "empty.md")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("%q: expected no chunks, got %d", in, len(chunks))
		}
	}
}

func TestChunk_Errors(t *testing.T) {
	if _, err := New().Chunk("text", ""); !errors.Is(err, domain.ErrChunking) {
		t.Errorf("empty name: expected ErrChunking, got %v", err)
	}

	c := New(WithMaxChunkBytes(10))
	if _, err := c.Chunk("# A\nshort\n# B\nthis one is too long", "big.md"); !errors.Is(err, domain.ErrChunking) {
		t.Errorf("oversized chunk: expected ErrChunking, got %v", err)
	}
	if _, err := c.Chunk("# A\nshort", "ok.md"); err != nil {
		t.Errorf("chunk within limit: unexpected error %v", err)
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		level int
		title string
		ok    bool
	}{
		{"# Title", 1, "Title", true},
		{"## Title  ", 2, "Title", true},
		{"  ### Sub", 3, "Sub", true},
		{"#", 1, "", true},
		{"#### Deep", 0, "", false},
		{"#NoSpace", 0, "", false},
		{"text # not", 0, "", false},
		{"##\tTab", 2, "Tab", true},
	}
	for _, tc := range tests {
		level, title, ok := parseHeading(tc.line)
		if level != tc.level || title != tc.title || ok != tc.ok {
			t.Errorf("parseHeading(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tc.line, level, title, ok, tc.level, tc.title, tc.ok)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestLoad(t *testing.T) {
	got, err := Load(strings.NewReader("\xEF\xBB\xBF# Title\nbody"), "a.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "# Title\nbody" {
		t.Errorf("Load() = %q, BOM should be stripped", got)
	}

	if _, err := Load(strings.NewReader("bad \xff bytes"), "b.md"); !errors.Is(err, domain.ErrContentLoad) {
		t.Errorf("invalid utf8: expected ErrContentLoad, got %v", err)
	}
	if _, err := Load(failingReader{}, "c.md"); !errors.Is(err, domain.ErrContentLoad) {
		t.Errorf("read failure: expected ErrContentLoad, got %v", err)
	}
}
