package sqlstore

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/query"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// compile turns a predicate into a WHERE clause. Field names are checked
// against known columns because they are spliced into the SQL text.
func compile(p query.Predicate, known func(string) bool) (sq.Sqlizer, error) {
	switch p.Kind() {
	case query.KindCompare:
		return compileCompare(p, known)

	case query.KindAnd, query.KindOr:
		parts := make([]sq.Sqlizer, 0, len(p.Children()))
		for _, child := range p.Children() {
			c, err := compile(child, known)
			if err != nil {
				return nil, err
			}
			parts = append(parts, c)
		}
		if len(parts) == 0 {
			if p.Kind() == query.KindAnd {
				return sq.Expr("1 = 1"), nil
			}
			return sq.Expr("1 = 0"), nil
		}
		if p.Kind() == query.KindAnd {
			return sq.And(parts), nil
		}
		return sq.Or(parts), nil

	case query.KindNot:
		children := p.Children()
		if len(children) != 1 {
			return nil, fmt.Errorf("not: expected one operand, got %d", len(children))
		}
		inner, err := compile(children[0], known)
		if err != nil {
			return nil, err
		}
		sqlStr, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+sqlStr+")", args...), nil
	}
	return nil, fmt.Errorf("unsupported predicate kind %d", p.Kind())
}

func compileCompare(p query.Predicate, known func(string) bool) (sq.Sqlizer, error) {
	field := p.Field()
	if !known(field) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}

	v := p.Value()
	switch p.Op() {
	case query.OpEq:
		return sq.Eq{field: v}, nil
	case query.OpNe:
		return sq.NotEq{field: v}, nil
	case query.OpLt:
		return sq.Lt{field: v}, nil
	case query.OpLte:
		return sq.LtOrEq{field: v}, nil
	case query.OpGt:
		return sq.Gt{field: v}, nil
	case query.OpGte:
		return sq.GtOrEq{field: v}, nil
	case query.OpLike:
		return sq.Like{field: v}, nil
	case query.OpContains:
		fragment, _ := v.(string)
		return sq.Expr("LOWER("+field+") LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(fragment))+"%"), nil
	case query.OpIn:
		values, _ := v.([]any)
		if len(values) == 0 {
			return sq.Expr("1 = 0"), nil
		}
		return sq.Eq{field: values}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", p.Op())
}
