// Package query describes record filters independently of the backing store.
// Each store translates a Predicate into its own query language.
package query

import (
	"time"

	"cdr_api/internal/api/cdr/models"
)

// Field is a logical record field.
type Field string

const (
	FieldReference Field = "reference"
	FieldCallerID  Field = "callerId"
	FieldCallDate  Field = "callDate"
	FieldType      Field = "type"
	FieldCost      Field = "cost"
	FieldDuration  Field = "duration"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLt
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	default:
		return "?"
	}
}

// Predicate is either a Comparison or a Conjunction.
type Predicate interface {
	predicate()
}

// Comparison tests one field against a value.
type Comparison struct {
	Field Field
	Op    Op
	Value any
}

// Conjunction matches when every term matches. An empty conjunction matches everything.
type Conjunction struct {
	Terms []Predicate
}

func (Comparison) predicate()  {}
func (Conjunction) predicate() {}

func Eq(f Field, v any) Comparison  { return Comparison{Field: f, Op: OpEq, Value: v} }
func Gte(f Field, v any) Comparison { return Comparison{Field: f, Op: OpGte, Value: v} }
func Lt(f Field, v any) Comparison  { return Comparison{Field: f, Op: OpLt, Value: v} }

// And combines terms, dropping nil terms.
func And(terms ...Predicate) Conjunction {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			out = append(out, t)
		}
	}
	return Conjunction{Terms: out}
}

// FindOptions controls ordering and size of a Find.
type FindOptions struct {
	SortBy     Field // empty keeps the store's natural order
	Descending bool
	Limit      int64 // 0 means no limit
}

// BuildRangeFilter selects a caller's records with callDate in [start, end).
// An empty callerID omits the caller clause. typ is applied only when it is
// a defined call type.
func BuildRangeFilter(callerID string, start, end time.Time, typ *models.CallType) Predicate {
	terms := make([]Predicate, 0, 4)
	if callerID != "" {
		terms = append(terms, Eq(FieldCallerID, callerID))
	}
	terms = append(terms,
		Gte(FieldCallDate, start.UTC()),
		Lt(FieldCallDate, end.UTC()),
	)
	if typ != nil && typ.IsDefined() {
		terms = append(terms, Eq(FieldType, *typ))
	}
	return And(terms...)
}

// BuildStatisticsFilter is BuildRangeFilter without the caller clause.
func BuildStatisticsFilter(start, end time.Time, typ *models.CallType) Predicate {
	return BuildRangeFilter("", start, end, typ)
}

// ByReference selects the record with the given reference.
func ByReference(reference string) Predicate {
	return Eq(FieldReference, reference)
}

// Match evaluates p against rec. Stores without a query language use it,
// and tests use it to check filter semantics.
func Match(p Predicate, rec models.CallDetailRecord) bool {
	switch p := p.(type) {
	case nil:
		return true
	case Conjunction:
		for _, t := range p.Terms {
			if !Match(t, rec) {
				return false
			}
		}
		return true
	case Comparison:
		return matchComparison(p, rec)
	default:
		return false
	}
}

func matchComparison(c Comparison, rec models.CallDetailRecord) bool {
	switch c.Field {
	case FieldReference:
		v, ok := c.Value.(string)
		return ok && c.Op == OpEq && rec.Reference == v
	case FieldCallerID:
		v, ok := c.Value.(string)
		return ok && c.Op == OpEq && rec.CallerID == v
	case FieldType:
		v, ok := c.Value.(models.CallType)
		return ok && c.Op == OpEq && rec.Type == v
	case FieldCallDate:
		v, ok := c.Value.(time.Time)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			return rec.CallDate.Equal(v)
		case OpGte:
			return !rec.CallDate.Before(v)
		case OpLt:
			return rec.CallDate.Before(v)
		}
	}
	return false
}
