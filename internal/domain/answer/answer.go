package answer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Category classifies the topic of an answer.
type Category string

// Answer categories. The set is closed.
const (
	CategoryAPI      Category = "api"
	CategorySecurity Category = "security"
	CategoryPricing  Category = "pricing"
	CategorySupport  Category = "support"
	CategoryOther    Category = "other"
)

// Categories lists every valid category in schema order.
var Categories = []Category{CategoryAPI, CategorySecurity, CategoryPricing, CategorySupport, CategoryOther}

// Source is a citation backing the answer.
type Source struct {
	Doc     string `json:"doc"`
	Snippet string `json:"snippet"`
}

// Payload is the validated structured answer.
type Payload struct {
	Answer     string   `json:"answer"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
}

// wire mirrors Payload with pointers so missing keys are detectable.
type wire struct {
	Answer     *string      `json:"answer" validate:"required,min=1"`
	Category   *string      `json:"category" validate:"required,oneof=api security pricing support other"`
	Confidence *float64     `json:"confidence" validate:"required,gte=0,lte=1"`
	Sources    []wireSource `json:"sources" validate:"dive"`
}

type wireSource struct {
	Doc     *string `json:"doc" validate:"required"`
	Snippet *string `json:"snippet" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates raw model output.
// A surrounding ```json fence is tolerated; unknown fields and trailing data are rejected.
func Parse(raw string) (Payload, error) {
	body := StripFence(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var w wire
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, errors.New("decode: trailing data after JSON object")
	}

	if err := validate.Struct(&w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return Payload{}, fmt.Errorf("field %s failed on %q", e.Namespace(), e.Tag())
		}
		return Payload{}, fmt.Errorf("validate: %w", err)
	}

	p := Payload{
		Answer:     *w.Answer,
		Category:   Category(*w.Category),
		Confidence: *w.Confidence,
		Sources:    make([]Source, 0, len(w.Sources)),
	}
	for _, s := range w.Sources {
		p.Sources = append(p.Sources, Source{Doc: *s.Doc, Snippet: *s.Snippet})
	}
	return p, nil
}

// StripFence removes a Markdown code fence (``` or ```json) wrapping s.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// MarshalJSON encodes the payload with sources always present as an array.
func (p Payload) MarshalJSON() ([]byte, error) {
	type alias Payload
	a := alias(p)
	if a.Sources == nil {
		a.Sources = []Source{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
