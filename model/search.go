package model

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// PageSize is the number of rows shown on one list page.
const PageSize = 10

// SearchQuery is the free text and the 1-based page number of a list request.
type SearchQuery struct {
	Raw  string
	Page int
}

// NewSearchQuery normalizes the page number; anything below 1 becomes 1.
func NewSearchQuery(raw string, page int) SearchQuery {
	if page < 1 {
		page = 1
	}
	return SearchQuery{Raw: strings.TrimSpace(raw), Page: page}
}

// Offset returns the number of rows to skip for the current page.
func (q SearchQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

// PagedResult is one page of a filtered list.
type PagedResult[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	Total      int64
}

// HasPrev reports whether there is a page before the current one.
func (r PagedResult[T]) HasPrev() bool { return r.Page > 1 }

// HasNext reports whether there is a page after the current one.
func (r PagedResult[T]) HasNext() bool { return r.Page < r.TotalPages }

// totalPages is ceil(total / PageSize).
func totalPages(total int64) int {
	return int((total + PageSize - 1) / PageSize)
}

// SearchSpec describes which columns an entity list searches.
// FirstNameColumn and LastNameColumn are optional; without them a multi word
// search is treated as one term.
type SearchSpec struct {
	Columns         []string
	FirstNameColumn string
	LastNameColumn  string
}

// Filter is the predicate of a list query. It is one of NoFilter,
// SingleTermFilter or TwoTermFilter.
type Filter interface {
	where(postgres bool) (string, []any)
}

// NoFilter matches every row.
type NoFilter struct{}

// SingleTermFilter matches rows where any of Columns contains Term.
type SingleTermFilter struct {
	Columns []string
	Term    string
}

// TwoTermFilter matches rows where FirstColumn contains First and LastColumn contains Last.
type TwoTermFilter struct {
	FirstColumn string
	LastColumn  string
	First       string
	Last        string
}

// BuildFilter tokenizes raw by whitespace and picks the filter variant.
// Tokens after the second one are ignored.
func BuildFilter(raw string, spec SearchSpec) Filter {
	tokens := strings.Fields(raw)
	switch {
	case len(tokens) == 0:
		return NoFilter{}
	case len(tokens) == 1:
		return SingleTermFilter{Columns: spec.Columns, Term: tokens[0]}
	case spec.FirstNameColumn == "" || spec.LastNameColumn == "":
		return SingleTermFilter{Columns: spec.Columns, Term: strings.Join(tokens, " ")}
	default:
		return TwoTermFilter{
			FirstColumn: spec.FirstNameColumn,
			LastColumn:  spec.LastNameColumn,
			First:       tokens[0],
			Last:        tokens[1],
		}
	}
}

func (NoFilter) where(bool) (string, []any) { return "", nil }

func (f SingleTermFilter) where(postgres bool) (string, []any) {
	if len(f.Columns) == 0 {
		return "", nil
	}
	ors := make([]string, 0, len(f.Columns))
	args := make([]any, 0, len(f.Columns))
	for _, col := range f.Columns {
		clause, arg := containsClause(col, f.Term, postgres)
		ors = append(ors, clause)
		args = append(args, arg)
	}
	return "(" + strings.Join(ors, " OR ") + ")", args
}

func (f TwoTermFilter) where(postgres bool) (string, []any) {
	first, firstArg := containsClause(f.FirstColumn, f.First, postgres)
	last, lastArg := containsClause(f.LastColumn, f.Last, postgres)
	return "(" + first + " AND " + last + ")", []any{firstArg, lastArg}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsClause builds a case-insensitive substring match for one column.
// PostgreSQL gets ILIKE, everything else LOWER() LIKE.
func containsClause(col, term string, postgres bool) (string, string) {
	if postgres {
		return fmt.Sprintf(`%s ILIKE ? ESCAPE '\'`, col), "%" + likeEscaper.Replace(term) + "%"
	}
	return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col), "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// filterScope turns a Filter into a gorm scope for the current dialect.
func (s *Store) filterScope(f Filter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f == nil {
			return tx
		}
		where, args := f.where(s.isPostgres())
		if where == "" {
			return tx
		}
		return tx.Where(where, args...)
	}
}

// listOptions configures the item query of paginate. Base is shared by the
// count and the item query and holds the joins.
type listOptions struct {
	Base     func(*gorm.DB) *gorm.DB
	Select   string
	Order    string
	Preloads []string
}

// paginate runs the count and the item query with the same base scope and
// filter so that TotalPages always describes the browsable rows.
func paginate[T any](s *Store, f Filter, q SearchQuery, opts listOptions) (PagedResult[T], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	result := PagedResult[T]{Page: q.Page, Items: []T{}}

	scopes := []func(*gorm.DB) *gorm.DB{s.filterScope(f)}
	if opts.Base != nil {
		scopes = append([]func(*gorm.DB) *gorm.DB{opts.Base}, scopes...)
	}

	if err := s.db.Model(new(T)).Scopes(scopes...).Count(&result.Total).Error; err != nil {
		return result, err
	}
	result.TotalPages = totalPages(result.Total)

	tx := s.db.Model(new(T)).Scopes(scopes...)
	if opts.Select != "" {
		tx = tx.Select(opts.Select)
	}
	for _, p := range opts.Preloads {
		tx = tx.Preload(p)
	}
	if opts.Order != "" {
		tx = tx.Order(opts.Order)
	}
	var rows []T
	if err := tx.Limit(PageSize).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return result, err
	}
	if rows != nil {
		result.Items = rows
	}
	return result, nil
}
