package query

import (
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"codequery/internal/core"
)

const (
	// ApplicationIdentifier precedes the GTIN inside a code.
	ApplicationIdentifier = "01"
	// ManufacturerPrefix is the only GTIN prefix this tool recognizes.
	ManufacturerPrefix = "046"
	// GTINPattern extracts the 14-digit GTIN payload from a code.
	GTINPattern = ApplicationIdentifier + "([0-9]{14})"

	codesTable = "codes"
)

// Statement is a rendered SQL text and its positional arguments.
type Statement struct {
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args"`
}

// FullStatement is the select of a full export.
type FullStatement struct {
	Statement
	// Columns is the selected column list, nil for SELECT *.
	Columns []string
	// StripID is set when id was added only to drive the status update.
	StripID bool
}

type FilterOption func(sq.SelectBuilder) sq.SelectBuilder

// ByDate filters a single day, or an inclusive range when end is set.
func ByDate(field core.DateField, start string, end *string) FilterOption {
	col := string(field) + "::date"
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if end != nil && *end != "" {
			return b.Where(sq.Expr(col+" >= ?", start)).Where(sq.Expr(col+" <= ?", *end))
		}
		return b.Where(sq.Expr(col+" = ?", start))
	}
}

// ByGTIN matches codes that embed the GTIN anywhere.
func ByGTIN(gtin string) FilterOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Like{"code": "%" + gtin + "%"})
	}
}

func ByStatus(status string) FilterOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"status": status})
	}
}

// WithCodePrefix keeps codes starting with the given prefix.
func WithCodePrefix(prefix string) FilterOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Like{"code": prefix + "%"})
	}
}

func WithLimit(limit core.Limit) FilterOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if !limit.Bounded() {
			return b
		}
		return b.Limit(uint64(limit))
	}
}

// Builder produces the parameterized statements of the report endpoints.
type Builder struct {
	codePrefix  string
	gtinPattern string
	allowed     map[string]struct{}
}

func NewBuilder() *Builder {
	allowed := make(map[string]struct{}, len(core.CodeColumns))
	for _, c := range core.CodeColumns {
		allowed[c] = struct{}{}
	}
	return &Builder{
		codePrefix:  ApplicationIdentifier + ManufacturerPrefix,
		gtinPattern: GTINPattern,
		allowed:     allowed,
	}
}

// CodePrefix is the pattern a well-formed code starts with.
func (b *Builder) CodePrefix() string {
	return b.codePrefix
}

// filters returns the base filter in append order: date, GTIN, status.
func (b *Builder) filters(f core.QueryFilter, applyGTIN bool) ([]FilterOption, error) {
	if !f.DateField.Valid() {
		return nil, core.ErrInvalidDateField
	}
	opts := []FilterOption{ByDate(f.DateField, f.StartDate, f.EndDate)}
	if applyGTIN && f.FiltersGTIN() {
		opts = append(opts, ByGTIN(f.SelectedGTIN))
	}
	if f.FiltersStatus() {
		opts = append(opts, ByStatus(string(f.Status)))
	}
	return opts, nil
}

func render(builder sq.SelectBuilder, opts []FilterOption) (Statement, error) {
	sql, args, err := applyAll(builder, opts).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Args: args}, nil
}

// Summary counts well-formed codes grouped by the extracted GTIN.
func (b *Builder) Summary(f core.QueryFilter) (Statement, error) {
	opts, err := b.filters(f, true)
	if err != nil {
		return Statement{}, err
	}
	extract := fmt.Sprintf("SUBSTRING(code FROM '%s')", b.gtinPattern)
	opts = append(opts, WithCodePrefix(b.codePrefix))

	builder := sq.Select(extract+" AS gtin", "COUNT(*)::int AS count").
		From(codesTable)
	builder = applyAll(builder, opts).
		Where(extract + " IS NOT NULL").
		GroupBy(extract).
		OrderBy("count DESC")
	return render(builder, nil)
}

// Total counts every row matching the base filter.
func (b *Builder) Total(f core.QueryFilter) (Statement, error) {
	opts, err := b.filters(f, true)
	if err != nil {
		return Statement{}, err
	}
	return render(sq.Select("COUNT(*)::int AS total").From(codesTable), opts)
}

// PrefixCount counts rows matching the base filter whose code has the
// recognized prefix.
func (b *Builder) PrefixCount(f core.QueryFilter) (Statement, error) {
	opts, err := b.filters(f, true)
	if err != nil {
		return Statement{}, err
	}
	opts = append(opts, WithCodePrefix(b.codePrefix))
	return render(sq.Select("COUNT(*)::int AS prefix_count").From(codesTable), opts)
}

// Full builds the export select. Requested columns are intersected with the
// whitelist; column names never reach the SQL text otherwise.
func (b *Builder) Full(req core.FullExportRequest) (FullStatement, error) {
	opts, err := b.filters(req.QueryFilter, !req.ExportAll)
	if err != nil {
		return FullStatement{}, err
	}
	opts = append(opts, WithLimit(req.Limit))

	columns := b.Columns(req.Columns)
	out := FullStatement{}
	if len(columns) > 0 {
		if req.MarkAsExported && !contains(columns, "id") {
			columns = append(columns, "id")
			out.StripID = true
		}
		out.Columns = columns
	} else if req.MarkAsExported && len(req.Columns) > 0 {
		// Only invalid names were requested, so SELECT * carries id the caller never asked for.
		out.StripID = true
	}

	selectList := []string{"*"}
	if out.Columns != nil {
		selectList = out.Columns
	}
	out.Statement, err = render(sq.Select(selectList...).From(codesTable), opts)
	if err != nil {
		return FullStatement{}, err
	}
	return out, nil
}

// Columns keeps the whitelisted names in request order, without duplicates.
func (b *Builder) Columns(requested []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(requested))
	for _, c := range requested {
		if _, ok := b.allowed[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MarkExported sets the exported status on the given row ids.
func (b *Builder) MarkExported(ids []int64) (Statement, error) {
	sql, args, err := sq.Update(codesTable).
		Set("status", sq.Expr(strconv.Itoa(core.StatusExported))).
		Set("dtime_status", sq.Expr("NOW()")).
		Where("id = ANY(?)", pq.Array(ids)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Args: args}, nil
}

func applyAll(builder sq.SelectBuilder, opts []FilterOption) sq.SelectBuilder {
	for _, opt := range opts {
		builder = opt(builder)
	}
	return builder
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
