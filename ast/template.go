package ast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateSyntax is returned for malformed template strings.
	ErrTemplateSyntax = errors.New("ast: invalid sql template")

	// ErrTemplateArgs is returned when Format gets the wrong number of arguments.
	ErrTemplateArgs = errors.New("ast: template argument count mismatch")
)

// TemplateArgsError reports a Format call with the wrong number of arguments.
type TemplateArgsError struct {
	Template string
	Want     int
	Got      int
}

func (e *TemplateArgsError) Error() string {
	return fmt.Sprintf("ast: template %q expects %d arguments, got %d", e.Template, e.Want, e.Got)
}

func (e *TemplateArgsError) Is(err error) bool {
	return err == ErrTemplateArgs
}

// SqlTemplate is a parsed SQL snippet with {i} placeholders, used for dialect
// specific clauses like limit/offset, identity return and locking.
type SqlTemplate struct {
	text         string
	precedence   int
	fragments    []Fragment
	placeHolders []*PlaceHolder
}

func ParseTemplate(text string) (*SqlTemplate, error) {
	return ParseTemplateWithPrecedence(text, PrecedenceLowest)
}

// ParseTemplateWithPrecedence parses text; fragments produced by Format carry
// the given precedence.
func ParseTemplateWithPrecedence(text string, precedence int) (*SqlTemplate, error) {
	t := &SqlTemplate{text: text, precedence: precedence}
	byIndex := make(map[int]*PlaceHolder)

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.fragments = append(t.fragments, NewText(lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '{' {
			lit.WriteByte(c)
			continue
		}
		j := i + 1
		index := 0
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			index = index*10 + int(text[j]-'0')
			j++
		}
		if j == i+1 || j >= len(text) || text[j] != '}' {
			// not a placeholder token
			lit.WriteByte(c)
			continue
		}
		flush()
		ph, ok := byIndex[index]
		if !ok {
			ph = NewPlaceHolder(index)
			byIndex[index] = ph
			t.placeHolders = append(t.placeHolders, ph)
		}
		t.fragments = append(t.fragments, ph)
		i = j
	}
	flush()

	for i := range t.placeHolders {
		if _, ok := byIndex[i]; !ok {
			return nil, fmt.Errorf("%w: %q has placeholders but no {%d}", ErrTemplateSyntax, text, i)
		}
	}
	return t, nil
}

func MustParseTemplate(text string) *SqlTemplate {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

func MustParseTemplateWithPrecedence(text string, precedence int) *SqlTemplate {
	t, err := ParseTemplateWithPrecedence(text, precedence)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *SqlTemplate) Text() string { return t.text }

func (t *SqlTemplate) Precedence() int { return t.precedence }

// PlaceHolders returns the distinct placeholders in order of first appearance.
func (t *SqlTemplate) PlaceHolders() []*PlaceHolder {
	out := make([]*PlaceHolder, len(t.placeHolders))
	copy(out, t.placeHolders)
	return out
}

// Fragments returns the parsed text and placeholder fragments in order.
func (t *SqlTemplate) Fragments() []Fragment {
	out := make([]Fragment, len(t.fragments))
	copy(out, t.fragments)
	return out
}

// Format substitutes args[i] for every occurrence of {i}. A nil argument
// renders nothing.
func (t *SqlTemplate) Format(args ...Fragment) (Fragment, error) {
	if len(args) != len(t.placeHolders) {
		return nil, &TemplateArgsError{Template: t.text, Want: len(t.placeHolders), Got: len(args)}
	}
	children := make([]Fragment, len(t.fragments))
	for i, f := range t.fragments {
		if ph, ok := f.(*PlaceHolder); ok {
			children[i] = args[ph.Index]
			continue
		}
		children[i] = f
	}
	return NewCompositeWithPrecedence(t.precedence, children...), nil
}

// MustFormat is Format for statically known argument lists.
func (t *SqlTemplate) MustFormat(args ...Fragment) Fragment {
	f, err := t.Format(args...)
	if err != nil {
		panic(err)
	}
	return f
}
