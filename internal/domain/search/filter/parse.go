package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Chunk metadata fields accepted by Parse.
const (
	FieldDocumentName = "document_name"
	FieldSectionName  = "section_name"
	FieldHeading      = "heading"
	FieldSubHeading   = "sub_heading"
	FieldPosition     = "position"
)

var tagFields = map[string]bool{
	FieldDocumentName: true,
	FieldSectionName:  true,
	FieldHeading:      true,
	FieldSubHeading:   true,
}

// Parse turns a boolean filter string into an Expression.
//
// Grammar: clause ("and" clause)*, where clause is one of
//
//	tag == "v"
//	tag != "v"
//	tag in ["a", "b"]
//	position (<|<=|>|>=|==) number
//
// Tag fields are document_name, section_name, heading, sub_heading.
// An empty string yields an empty expression.
func Parse(s string) (Expression, error) {
	toks, err := lex(s)
	if err != nil {
		return Expression{}, err
	}
	p := &parser{toks: toks}

	var must, mustNot []Condition
	for !p.done() {
		if len(must)+len(mustNot) > 0 {
			if err := p.expectWord("and"); err != nil {
				return Expression{}, err
			}
		}
		cond, negate, err := p.clause()
		if err != nil {
			return Expression{}, err
		}
		if negate {
			mustNot = append(mustNot, cond)
		} else {
			must = append(must, cond)
		}
	}
	return NewExpression(must, nil, mustNot)
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokNumber
	tokOp
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, text: "]", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '"' || c == '\'':
			val, n, err := lexString(s[i:])
			if err != nil {
				return nil, fmt.Errorf("filter: position %d: %w", i, err)
			}
			toks = append(toks, token{kind: tokString, text: val, pos: i})
			i += n
		case strings.ContainsRune("=!<>", rune(c)):
			op := string(c)
			if i+1 < len(s) && s[i+1] == '=' {
				op += "="
			}
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("filter: position %d: unexpected %q", i, op)
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		case c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: s[i:j], pos: i})
			i = j
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i + 1
			for j < len(s) && (s[j] == '_' || unicode.IsLetter(rune(s[j])) || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j], pos: i})
			i = j
		default:
			return nil, fmt.Errorf("filter: position %d: unexpected character %q", i, c)
		}
	}
	return toks, nil
}

// lexString reads a quoted literal; returns the value and consumed byte count.
func lexString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			b.WriteByte(s[i])
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) next() (token, error) {
	if p.done() {
		return token{}, fmt.Errorf("filter: unexpected end of expression")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t, err := p.next()
	if err != nil {
		return token{}, err
	}
	if t.kind != kind {
		return token{}, fmt.Errorf("filter: position %d: expected %s, got %q", t.pos, what, t.text)
	}
	return t, nil
}

func (p *parser) expectWord(word string) error {
	t, err := p.expect(tokIdent, strconv.Quote(word))
	if err != nil {
		return err
	}
	if !strings.EqualFold(t.text, word) {
		return fmt.Errorf("filter: position %d: expected %q, got %q", t.pos, word, t.text)
	}
	return nil
}

// clause parses one comparison; negate reports a != clause.
func (p *parser) clause() (Condition, bool, error) {
	field, err := p.expect(tokIdent, "field name")
	if err != nil {
		return Condition{}, false, err
	}

	if field.text == FieldPosition {
		c, err := p.positionClause()
		return c, false, err
	}
	if !tagFields[field.text] {
		return Condition{}, false, fmt.Errorf("filter: position %d: unknown field %q", field.pos, field.text)
	}

	op, err := p.next()
	if err != nil {
		return Condition{}, false, err
	}
	switch {
	case op.kind == tokOp && op.text == "==":
		v, err := p.expect(tokString, "quoted value")
		if err != nil {
			return Condition{}, false, err
		}
		c, err := NewMatch(field.text, v.text)
		return c, false, err
	case op.kind == tokOp && op.text == "!=":
		v, err := p.expect(tokString, "quoted value")
		if err != nil {
			return Condition{}, false, err
		}
		c, err := NewMatch(field.text, v.text)
		return c, true, err
	case op.kind == tokIdent && strings.EqualFold(op.text, "in"):
		values, err := p.list()
		if err != nil {
			return Condition{}, false, err
		}
		c, err := NewMatchAny(field.text, values...)
		return c, false, err
	default:
		return Condition{}, false, fmt.Errorf("filter: position %d: unsupported operator %q for %s", op.pos, op.text, field.text)
	}
}

func (p *parser) list() ([]string, error) {
	if _, err := p.expect(tokLBracket, "["); err != nil {
		return nil, err
	}
	var values []string
	for {
		v, err := p.expect(tokString, "quoted value")
		if err != nil {
			return nil, err
		}
		values = append(values, v.text)

		sep, err := p.next()
		if err != nil {
			return nil, err
		}
		switch sep.kind {
		case tokComma:
			continue
		case tokRBracket:
			return values, nil
		default:
			return nil, fmt.Errorf("filter: position %d: expected , or ], got %q", sep.pos, sep.text)
		}
	}
}

func (p *parser) positionClause() (Condition, error) {
	op, err := p.expect(tokOp, "comparison operator")
	if err != nil {
		return Condition{}, err
	}
	num, err := p.expect(tokNumber, "number")
	if err != nil {
		return Condition{}, err
	}
	f, err := strconv.ParseFloat(num.text, 64)
	if err != nil {
		return Condition{}, fmt.Errorf("filter: position %d: invalid number %q", num.pos, num.text)
	}

	var r Range
	switch op.text {
	case ">":
		r, err = NewRangeFilter(&f, nil, nil, nil)
	case ">=":
		r, err = NewRangeFilter(nil, &f, nil, nil)
	case "<":
		r, err = NewRangeFilter(nil, nil, &f, nil)
	case "<=":
		r, err = NewRangeFilter(nil, nil, nil, &f)
	case "==":
		r, err = NewRangeFilter(nil, &f, nil, &f)
	default:
		return Condition{}, fmt.Errorf("filter: position %d: unsupported operator %q for position", op.pos, op.text)
	}
	if err != nil {
		return Condition{}, err
	}
	return NewRange(FieldPosition, r)
}
