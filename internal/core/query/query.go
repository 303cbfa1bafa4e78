// Package query describes entity filters and listing options as plain data.
//
// Predicates are never evaluated in Go: storage adapters translate them
// into their native query language so filtering happens in the store.
package query

import "github.com/islandman/hotel-listing/internal/core/domain"

// Op is a comparison operator.
type Op string

const (
	OpEq   Op = "="
	OpNe   Op = "<>"
	OpLt   Op = "<"
	OpLte  Op = "<="
	OpGt   Op = ">"
	OpGte  Op = ">="
	OpLike Op = "LIKE"
	OpIn   Op = "IN"

	OpContains Op = "CONTAINS"
)

// Kind tells leaf comparisons apart from boolean combinations.
type Kind int

const (
	KindCompare Kind = iota
	KindAnd
	KindOr
	KindNot
)

// Predicate is a filter over an entity's fields.
type Predicate struct {
	kind     Kind
	field    string
	op       Op
	value    any
	children []Predicate
}

func (p Predicate) Kind() Kind            { return p.kind }
func (p Predicate) Field() string         { return p.field }
func (p Predicate) Op() Op                { return p.op }
func (p Predicate) Value() any            { return p.value }
func (p Predicate) Children() []Predicate { return p.children }

func compare(field string, op Op, v any) Predicate {
	return Predicate{kind: KindCompare, field: field, op: op, value: v}
}

func Eq(field string, v any) Predicate  { return compare(field, OpEq, v) }
func Ne(field string, v any) Predicate  { return compare(field, OpNe, v) }
func Lt(field string, v any) Predicate  { return compare(field, OpLt, v) }
func Lte(field string, v any) Predicate { return compare(field, OpLte, v) }
func Gt(field string, v any) Predicate  { return compare(field, OpGt, v) }
func Gte(field string, v any) Predicate { return compare(field, OpGte, v) }

// Like matches a SQL LIKE pattern ("%" and "_" wildcards).
func Like(field, pattern string) Predicate { return compare(field, OpLike, pattern) }

// Contains matches values holding fragment, ignoring ASCII case. Wildcard
// characters in fragment match themselves.
func Contains(field, fragment string) Predicate { return compare(field, OpContains, fragment) }

// In matches any of values. An empty list matches nothing.
func In[V any](field string, values ...V) Predicate {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return compare(field, OpIn, vs)
}

// ByID matches the entity with the given identity.
func ByID(id int64) Predicate { return Eq("id", id) }

func And(ps ...Predicate) Predicate { return Predicate{kind: KindAnd, children: ps} }
func Or(ps ...Predicate) Predicate  { return Predicate{kind: KindOr, children: ps} }
func Not(p Predicate) Predicate     { return Predicate{kind: KindNot, children: []Predicate{p}} }

// Order sorts a listing by one field.
type Order struct {
	Field string
	Desc  bool
}

// Options collects the listing modifiers accepted by Repository.GetAll.
type Options struct {
	Where    *Predicate
	OrderBy  []Order
	Includes []domain.Relation
	Limit    uint64
}

// Option mutates Options.
type Option func(*Options)

// Where restricts a listing to entities matching p.
func Where(p Predicate) Option {
	return func(o *Options) { o.Where = &p }
}

// OrderBy appends a sort key. Without one, listings follow primary-key order.
func OrderBy(field string, desc bool) Option {
	return func(o *Options) { o.OrderBy = append(o.OrderBy, Order{Field: field, Desc: desc}) }
}

// Include eagerly loads the named relations on every returned entity.
func Include(rels ...domain.Relation) Option {
	return func(o *Options) { o.Includes = append(o.Includes, rels...) }
}

// Limit caps the number of returned entities. Zero means no cap.
func Limit(n uint64) Option {
	return func(o *Options) { o.Limit = n }
}

// Apply folds opts into a fresh Options value.
func Apply(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
