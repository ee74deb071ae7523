package statement

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/visitor"
)

// Statement is a flattened, cacheable SQL unit: an ordered list of leaves and
// the distinct placeholders they reference.
//
// The leaf list and placeholder table live in an immutable layout swapped
// atomically, so Compact and Append never expose a partially built list to
// concurrent renderers.
type Statement struct {
	ExecutionType   ExecutionType
	ResultProcessor ResultProcessor
	// PreActions run for each record before its values are bound, PostActions
	// after the command carrying the statement succeeded. Both are usually nil.
	PreActions  []RecordAction
	PostActions []RecordAction

	layout atomic.Pointer[layout]
}

type layout struct {
	fragments    []ast.Fragment
	placeHolders []*ast.PlaceHolder
	positions    map[*ast.PlaceHolder]int
	occurrences  int // bound placeholder leaves, counting repeats
	compacted    bool
}

// New flattens root with the precedence handler and discovers placeholders in
// order of first occurrence. A nil handler emits no parentheses.
func New(root ast.Fragment, h ast.PrecedenceHandler) *Statement {
	frags := ast.FlattenToSlice(root, h)
	s := &Statement{}
	s.layout.Store(newLayout(frags, DiscoverPlaceholders(frags)))
	return s
}

// NewWithPlaceHolders flattens root but takes the placeholder order from the
// caller. Duplicates are dropped so positions stay contiguous.
func NewWithPlaceHolders(root ast.Fragment, h ast.PrecedenceHandler, placeHolders ...*ast.PlaceHolder) *Statement {
	frags := ast.FlattenToSlice(root, h)
	s := &Statement{}
	s.layout.Store(newLayout(frags, ReIndexPlaceHolders(placeHolders)))
	return s
}

// DiscoverPlaceholders returns the distinct placeholders of a leaf list in
// first-occurrence order.
func DiscoverPlaceholders(frags []ast.Fragment) []*ast.PlaceHolder {
	var out []*ast.PlaceHolder
	seen := make(map[*ast.PlaceHolder]struct{})
	for _, f := range frags {
		if ph, ok := f.(*ast.PlaceHolder); ok {
			if _, dup := seen[ph]; !dup {
				seen[ph] = struct{}{}
				out = append(out, ph)
			}
		}
	}
	return out
}

// ReIndexPlaceHolders returns a fresh, duplicate-free copy of the list. The
// position of a placeholder in the result is its statement index.
func ReIndexPlaceHolders(placeHolders []*ast.PlaceHolder) []*ast.PlaceHolder {
	out := make([]*ast.PlaceHolder, 0, len(placeHolders))
	seen := make(map[*ast.PlaceHolder]struct{}, len(placeHolders))
	for _, ph := range placeHolders {
		if ph == nil {
			continue
		}
		if _, dup := seen[ph]; dup {
			continue
		}
		seen[ph] = struct{}{}
		out = append(out, ph)
	}
	return out
}

func newLayout(frags []ast.Fragment, placeHolders []*ast.PlaceHolder) *layout {
	l := &layout{
		fragments:    frags,
		placeHolders: placeHolders,
		positions:    make(map[*ast.PlaceHolder]int, len(placeHolders)),
	}
	for i, ph := range placeHolders {
		l.positions[ph] = i
	}
	for _, f := range frags {
		if ph, ok := f.(*ast.PlaceHolder); ok && !ph.Inline {
			l.occurrences++
		}
	}
	return l
}

// Append extends the statement with another fragment, separated by ";\n".
// Placeholders found in the new fragment, or the ones supplied, are added
// after the existing ones.
func (s *Statement) Append(f ast.Fragment, h ast.PrecedenceHandler, placeHolders ...*ast.PlaceHolder) {
	tail := ast.FlattenToSlice(f, h)
	if len(placeHolders) == 0 {
		placeHolders = DiscoverPlaceholders(tail)
	}
	for {
		old := s.layout.Load()
		frags := make([]ast.Fragment, 0, len(old.fragments)+len(tail)+2)
		frags = append(frags, old.fragments...)
		if len(frags) > 0 {
			frags = append(frags, ast.Semicolon, ast.NewLine)
		}
		frags = append(frags, tail...)

		merged := make([]*ast.PlaceHolder, 0, len(old.placeHolders)+len(placeHolders))
		merged = append(merged, old.placeHolders...)
		merged = append(merged, placeHolders...)

		if s.layout.CompareAndSwap(old, newLayout(frags, ReIndexPlaceHolders(merged))) {
			return
		}
	}
}

// Compact merges every run of adjacent text leaves into one leaf. It is
// idempotent and safe to call concurrently; racing callers produce identical
// layouts and one of them wins.
func (s *Statement) Compact() {
	for {
		old := s.layout.Load()
		if old.compacted {
			return
		}
		next := &layout{
			fragments:    compactFragments(old.fragments),
			placeHolders: old.placeHolders,
			positions:    old.positions,
			occurrences:  old.occurrences,
			compacted:    true,
		}
		if s.layout.CompareAndSwap(old, next) {
			return
		}
	}
}

func compactFragments(frags []ast.Fragment) []ast.Fragment {
	out := make([]ast.Fragment, 0, len(frags))
	var sb strings.Builder
	run := 0
	flush := func() {
		switch run {
		case 0:
		case 1:
			// keep the original leaf
		default:
			out[len(out)-1] = ast.NewText(sb.String())
		}
		sb.Reset()
		run = 0
	}
	for _, f := range frags {
		t, ok := f.(*ast.Text)
		if !ok {
			flush()
			out = append(out, f)
			continue
		}
		if t.Value == "" {
			continue
		}
		if run == 0 {
			out = append(out, t)
		}
		sb.WriteString(t.Value)
		run++
	}
	flush()
	return out
}

func (s *Statement) IsCompacted() bool { return s.layout.Load().compacted }

// Fragments returns the current leaf list. It must not be modified.
func (s *Statement) Fragments() []ast.Fragment { return s.layout.Load().fragments }

// PlaceHolders returns the distinct placeholders in index order.
func (s *Statement) PlaceHolders() []*ast.PlaceHolder {
	l := s.layout.Load()
	out := make([]*ast.PlaceHolder, len(l.placeHolders))
	copy(out, l.placeHolders)
	return out
}

// Position is the statement index of a placeholder.
func (s *Statement) Position(ph *ast.PlaceHolder) (int, bool) {
	i, ok := s.layout.Load().positions[ph]
	return i, ok
}

// ParamCount is the number of parameters the statement binds. Dialects that
// reuse numbered parameters bind each distinct placeholder once.
func (s *Statement) ParamCount(reuses bool) int {
	l := s.layout.Load()
	if !reuses {
		return l.occurrences
	}
	n := 0
	for _, ph := range l.placeHolders {
		if !ph.Inline {
			n++
		}
	}
	return n
}

// GetSql renders the statement with placeholders shown as {index}.
func (s *Statement) GetSql() string {
	l := s.layout.Load()
	var sb strings.Builder
	for _, f := range l.fragments {
		switch leaf := f.(type) {
		case *ast.Text:
			sb.WriteString(leaf.Value)
		case *ast.PlaceHolder:
			sb.WriteByte('{')
			sb.WriteString(strconv.Itoa(l.positions[leaf]))
			sb.WriteByte('}')
		}
	}
	return sb.String()
}

func (s *Statement) String() string { return s.GetSql() }

// Values resolves placeholder values from src: a record, a record list or a
// positional []any.
func (s *Statement) Values(src any) visitor.ValueLookup {
	l := s.layout.Load()
	return func(ph *ast.PlaceHolder) (any, error) {
		return ph.Resolve(src, l.positions[ph])
	}
}

// Render writes the statement into a native command.
func (s *Statement) Render(v *visitor.SQLVisitor, src any) error {
	return v.VisitFragments(s.Fragments(), s.Values(src))
}

// RunPreActions applies the pre-actions to each record in order.
func (s *Statement) RunPreActions(records ...*schema.EntityRecord) error {
	return runActions(s.PreActions, records)
}

func (s *Statement) RunPostActions(records ...*schema.EntityRecord) error {
	return runActions(s.PostActions, records)
}

func runActions(actions []RecordAction, records []*schema.EntityRecord) error {
	if len(actions) == 0 {
		return nil
	}
	for _, rec := range records {
		for _, act := range actions {
			if err := act(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
