package query

import (
	"fmt"
	"strings"
)

// Warning is a non-fatal diagnostic produced while parsing a query file.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line == 0 {
		return w.Message
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Set holds the queries of one file together with the macros that apply
// to all of them.
type Set struct {
	queries  []Query
	macros   []Macro
	warnings []Warning
}

// FromString builds a set holding a single ad-hoc query and no macros.
func FromString(text string) (*Set, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoQueries
	}
	return &Set{queries: []Query{NewQuery(text)}}, nil
}

// NewSet builds a set from already separated queries and macros.
func NewSet(queries []string, macros []string) (*Set, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	set := &Set{}
	for _, q := range queries {
		set.queries = append(set.queries, NewQuery(q))
	}
	for _, m := range macros {
		set.macros = append(set.macros, Macro{Text: m})
	}
	set.checkFieldCounts()
	return set, nil
}

func (s *Set) Len() int {
	return len(s.queries)
}

func (s *Set) Queries() []Query {
	return s.queries
}

func (s *Set) Macros() []Macro {
	return s.macros
}

// Warnings returns the diagnostics collected while building the set.
func (s *Set) Warnings() []Warning {
	return s.warnings
}

// Validate fails with ErrNoQueries on an empty set.
func (s *Set) Validate() error {
	if s == nil || len(s.queries) == 0 {
		return ErrNoQueries
	}
	return nil
}

// MacroBlock returns all macros joined by newlines.
func (s *Set) MacroBlock() string {
	texts := make([]string, len(s.macros))
	for i, m := range s.macros {
		texts[i] = m.Text
	}
	return strings.Join(texts, "\n")
}

// Text returns the i-th query with the macro block prepended. This is the
// exact text fed to the engine. Without macros the result still starts
// with an empty line.
func (s *Set) Text(i int) string {
	return s.MacroBlock() + "\n" + s.queries[i].Text
}

// Texts returns Text for every query, in order.
func (s *Set) Texts() []string {
	block := s.MacroBlock()
	texts := make([]string, len(s.queries))
	for i, q := range s.queries {
		texts[i] = block + "\n" + q.Text
	}
	return texts
}

// FieldCount returns the field count of the i-th query.
func (s *Set) FieldCount(i int) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if i < 0 || i >= len(s.queries) {
		return 0, fmt.Errorf("query index %d out of range [0, %d)", i, len(s.queries))
	}
	return s.queries[i].FieldCount, nil
}

// MaxFieldCount returns the largest field count among the queries.
func (s *Set) MaxFieldCount() (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	maxCount := 1
	for _, q := range s.queries {
		maxCount = max(maxCount, q.FieldCount)
	}
	return maxCount, nil
}

// checkFieldCounts warns about queries whose field count differs from the
// first query's. Columns of such runs do not line up semantically.
func (s *Set) checkFieldCounts() {
	if len(s.queries) == 0 {
		return
	}
	first := s.queries[0].FieldCount
	for i, q := range s.queries[1:] {
		if q.FieldCount != first {
			s.warnings = append(s.warnings, Warning{
				Line: q.Line,
				Message: fmt.Sprintf("query %d prints %d fields, query 0 prints %d; columns will be padded to the widest query",
					i+1, q.FieldCount, first),
			})
		}
	}
}
