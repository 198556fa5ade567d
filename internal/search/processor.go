package search

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/models"
)

// DSLQuery is a parsed "<Type> [where <expr>] [limit N] [offset M]" query.
// Limit and Offset are -1 when the clause is absent.
type DSLQuery struct {
	TypeName string
	Expr     string
	Limit    int
	Offset   int
}

var (
	dslHead     = regexp.MustCompile(`(?s)^\s*(` + models.TypeNamePattern + `)(?:\s+(.*?))?\s*$`)
	dslTrailing = regexp.MustCompile(`(?is)^(.*?)\s*\b(limit|offset)\s+(\S+)\s*$`)
	dslWhere    = regexp.MustCompile(`(?is)^where\s+(.+)$`)
)

// ParseDSL splits a DSL query into its clauses. The where expression is returned verbatim;
// its syntax is checked by the index. Errors wrap discovery.ErrParse.
func ParseDSL(query string) (*DSLQuery, error) {
	m := dslHead.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("%w: expected a type name at the start of %q", discovery.ErrParse, query)
	}
	q := &DSLQuery{TypeName: m[1], Limit: -1, Offset: -1}
	rest := m[2]

	for {
		t := dslTrailing.FindStringSubmatch(rest)
		if t == nil {
			break
		}
		n, err := strconv.Atoi(t[3])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer, got %q", discovery.ErrParse, strings.ToLower(t[2]), t[3])
		}
		switch strings.ToLower(t[2]) {
		case "limit":
			if q.Limit >= 0 {
				return nil, fmt.Errorf("%w: duplicate limit clause", discovery.ErrParse)
			}
			q.Limit = n
		case "offset":
			if q.Offset >= 0 {
				return nil, fmt.Errorf("%w: duplicate offset clause", discovery.ErrParse)
			}
			q.Offset = n
		}
		rest = t[1]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return q, nil
	}
	w := dslWhere.FindStringSubmatch(rest)
	if w == nil {
		return nil, fmt.Errorf("%w: unexpected clause %q after type %s", discovery.ErrParse, rest, q.TypeName)
	}
	q.Expr = strings.TrimSpace(w[1])
	return q, nil
}

// Page combines the API paging with the query's own limit and offset. The query limit caps
// the rows visible from its start, so the API offset consumes part of it.
func (q *DSLQuery) Page(apiLimit, apiOffset int) (limit, offset int) {
	limit = apiLimit
	if q.Limit >= 0 {
		remaining := q.Limit - apiOffset
		if remaining < 0 {
			remaining = 0
		}
		if remaining < limit {
			limit = remaining
		}
	}
	offset = apiOffset
	if q.Offset > 0 {
		if apiOffset > math.MaxInt-q.Offset {
			return limit, math.MaxInt
		}
		offset += q.Offset
	}
	return limit, offset
}
