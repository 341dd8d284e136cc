// Package tablebrowser renders allow-listed tables for the admin screen
// without per-table code. Tables are described by TableConfig; columns are
// discovered from the rows themselves.
package tablebrowser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/lib/pq"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrTableNotFound = errors.New("table is not browsable")
	ErrReadOnly      = errors.New("table is read-only")
	ErrInvalidColumn = errors.New("invalid column")
	ErrInvalidValue  = errors.New("invalid value")
	ErrRowNotFound   = errors.New("row not found")
)

const (
	// maxFilterRows caps the rows scanned when filters are applied in memory.
	maxFilterRows = 1000
	maxExportRows = 10000
	labelCacheTTL = 5 * time.Minute

	DisplayLayout = "2006-01-02 15:04:05"
)

var readOnlyColumns = map[string]bool{
	"id":         true,
	"store_id":   true,
	"created_at": true,
	"updated_at": true,
}

// isoDateTime matches datetime strings such as 2026-10-19T15:04:05Z.
var isoDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`)

type ColumnKind string

const (
	KindText     ColumnKind = "text"
	KindNumber   ColumnKind = "number"
	KindBool     ColumnKind = "bool"
	KindDateTime ColumnKind = "datetime"
	KindRelation ColumnKind = "relation"
)

type Column struct {
	Name          string     `json:"name"`
	Label         string     `json:"label"`
	Kind          ColumnKind `json:"kind"`
	RelationTable string     `json:"relation_table,omitempty"`
}

// Row carries display values and the stored values they came from.
type Row struct {
	ID     interface{}            `json:"id"`
	Values map[string]interface{} `json:"values"`
	Raw    map[string]interface{} `json:"raw"`
}

type Query struct {
	Page int
	// Filters maps a column to a case-insensitive substring.
	Filters map[string]string
	// Search matches any visible column.
	Search string
}

func (q Query) filtered() bool {
	if strings.TrimSpace(q.Search) != "" {
		return true
	}
	for _, v := range q.Filters {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

type Page struct {
	Table      string   `json:"table"`
	Label      string   `json:"label"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Total      int64    `json:"total"`
	TotalPages int      `json:"total_pages"`
	Filtered   bool     `json:"filtered"`
	// Truncated is set when the filter only saw the newest maxFilterRows rows.
	Truncated bool `json:"truncated"`
}

type TableInfo struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Editable bool   `json:"editable"`
}

type Browser struct {
	db       *gorm.DB
	tables   map[string]TableConfig
	order    []string
	loc      *time.Location
	pageSize int
	labels   *ttlcache.Cache[string, map[string]string]
}

func New(db *gorm.DB, tables []TableConfig, loc *time.Location, pageSize int) *Browser {
	if pageSize <= 0 {
		pageSize = 50
	}
	if loc == nil {
		loc = time.UTC
	}

	b := &Browser{
		db:       db,
		tables:   make(map[string]TableConfig, len(tables)),
		loc:      loc,
		pageSize: pageSize,
		labels: ttlcache.New(
			ttlcache.WithTTL[string, map[string]string](labelCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, map[string]string](),
		),
	}
	for _, t := range tables {
		b.tables[t.Name] = t
		b.order = append(b.order, t.Name)
	}
	return b
}

// Location is the display timezone.
func (b *Browser) Location() *time.Location {
	return b.loc
}

func (b *Browser) ListTables() []TableInfo {
	infos := make([]TableInfo, 0, len(b.order))
	for _, name := range b.order {
		cfg := b.tables[name]
		infos = append(infos, TableInfo{Name: cfg.Name, Label: cfg.Label, Editable: cfg.Editable})
	}
	return infos
}

func (b *Browser) config(table string) (TableConfig, error) {
	cfg, ok := b.tables[table]
	if !ok {
		return TableConfig{}, ErrTableNotFound
	}
	return cfg, nil
}

// Invalidate drops cached relation labels of table for a store.
func (b *Browser) Invalidate(storeID uint, table string) {
	b.labels.Delete(labelKey(storeID, table))
}

func labelKey(storeID uint, table string) string {
	return fmt.Sprintf("%d:%s", storeID, table)
}

// Browse returns one page of table. Without filters the database paginates;
// with filters the newest rows are filtered and paginated in memory.
func (b *Browser) Browse(ctx context.Context, storeID uint, table string, q Query) (*Page, error) {
	cfg, err := b.config(table)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	result := &Page{
		Table:    cfg.Name,
		Label:    cfg.Label,
		Columns:  []Column{},
		Rows:     []Row{},
		Page:     page,
		PageSize: b.pageSize,
		Filtered: q.filtered(),
	}

	if !result.Filtered {
		total, err := b.count(ctx, cfg, storeID)
		if err != nil {
			return nil, err
		}
		result.Total = total
		result.TotalPages = totalPages(total, b.pageSize)
		// checked before any offset arithmetic so huge pages cannot overflow
		if page > result.TotalPages {
			return result, nil
		}
		names, records, err := b.fetch(ctx, cfg, storeID, b.pageSize, (page-1)*b.pageSize)
		if err != nil {
			return nil, err
		}
		columns, rows, err := b.render(ctx, cfg, storeID, names, records)
		if err != nil {
			return nil, err
		}
		result.Columns, result.Rows = columns, rows
		return result, nil
	}

	names, records, err := b.fetch(ctx, cfg, storeID, maxFilterRows+1, 0)
	if err != nil {
		return nil, err
	}
	if len(records) > maxFilterRows {
		records = records[:maxFilterRows]
		result.Truncated = true
	}
	columns, rows, err := b.render(ctx, cfg, storeID, names, records)
	if err != nil {
		return nil, err
	}
	matched, err := applyFilters(columns, rows, q)
	if err != nil {
		return nil, err
	}

	result.Columns = columns
	result.Total = int64(len(matched))
	result.TotalPages = totalPages(result.Total, b.pageSize)
	if page <= result.TotalPages {
		start := (page - 1) * b.pageSize
		end := start + b.pageSize
		if end > len(matched) {
			end = len(matched)
		}
		result.Rows = matched[start:end]
	}
	return result, nil
}

// Row returns a single row rendered like Browse does.
func (b *Browser) Row(ctx context.Context, storeID uint, table string, id uint) ([]Column, *Row, error) {
	cfg, err := b.config(table)
	if err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? AND %s = ?",
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()), pq.QuoteIdentifier("id"))
	names, records, err := b.scan(ctx, query, storeID, id)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrRowNotFound
	}

	columns, rows, err := b.render(ctx, cfg, storeID, names, records)
	if err != nil {
		return nil, nil, err
	}
	return columns, &rows[0], nil
}

func totalPages(total int64, pageSize int) int {
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func (b *Browser) count(ctx context.Context, cfg TableConfig, storeID uint) (int64, error) {
	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?",
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()))
	if err := b.db.WithContext(ctx).Raw(query, storeID).Scan(&total).Error; err != nil {
		logger.Error("Failed to count table rows", err, map[string]interface{}{
			"table":    cfg.Name,
			"store_id": storeID,
		})
		return 0, err
	}
	return total, nil
}

func (b *Browser) fetch(ctx context.Context, cfg TableConfig, storeID uint, limit, offset int) ([]string, []map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s DESC LIMIT ? OFFSET ?",
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()), pq.QuoteIdentifier("id"))
	return b.scan(ctx, query, storeID, limit, offset)
}

func (b *Browser) scan(ctx context.Context, query string, args ...interface{}) ([]string, []map[string]interface{}, error) {
	return scanRows(b.db.WithContext(ctx), query, args...)
}

// scanRows reads every row before returning so the connection is free for the
// relation side queries that follow.
func scanRows(db *gorm.DB, query string, args ...interface{}) ([]string, []map[string]interface{}, error) {
	rows, err := db.Raw(query, args...).Rows()
	if err != nil {
		logger.Error("Failed to query table", err, map[string]interface{}{
			"query": query,
		})
		return nil, nil, err
	}
	defer rows.Close()

	var names []string
	var records []map[string]interface{}
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, nil, err
		}
		if names == nil {
			names = cols
		}

		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		record := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			if raw, ok := values[i].([]byte); ok {
				record[c] = string(raw)
			} else {
				record[c] = values[i]
			}
		}
		records = append(records, record)
	}
	return names, records, rows.Err()
}

// orderColumns puts priority columns first and keeps the rest in table order.
func orderColumns(cfg TableConfig, names []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	ordered := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, p := range cfg.Priority {
		if present[p] && !seen[p] && !cfg.isHidden(p) {
			ordered = append(ordered, p)
			seen[p] = true
		}
	}
	for _, n := range names {
		if !seen[n] && !cfg.isHidden(n) {
			ordered = append(ordered, n)
			seen[n] = true
		}
	}
	return ordered
}

// referenceTarget resolves a *_id column to the browsable table it points at.
func (b *Browser) referenceTarget(cfg TableConfig, column string) (string, bool) {
	target := ""
	if rel, ok := cfg.Relations[column]; ok {
		target = rel.Table
	} else if column != "id" && strings.HasSuffix(column, "_id") {
		target = strings.TrimSuffix(column, "_id") + "s"
	}
	if _, ok := b.tables[target]; !ok {
		return "", false
	}
	return target, true
}

// relationTarget is the referenced table when it has a label to show.
func (b *Browser) relationTarget(cfg TableConfig, column string) (string, bool) {
	target, ok := b.referenceTarget(cfg, column)
	if !ok || b.tables[target].LabelColumn == "" {
		return "", false
	}
	return target, true
}

func isBoolColumn(cfg TableConfig, column string) bool {
	if _, ok := cfg.BoolLabels[column]; ok {
		return true
	}
	return strings.HasPrefix(column, "is_") || strings.HasPrefix(column, "has_") || strings.HasPrefix(column, "use_")
}

func (b *Browser) columnFor(cfg TableConfig, name string, records []map[string]interface{}) Column {
	label := cfg.ColumnLabels[name]
	if label == "" {
		label = commonLabels[name]
	}
	if label == "" {
		label = name
	}
	col := Column{Name: name, Label: label, Kind: KindText}

	if target, ok := b.relationTarget(cfg, name); ok {
		col.Kind = KindRelation
		col.RelationTable = target
		return col
	}
	if isBoolColumn(cfg, name) {
		col.Kind = KindBool
		return col
	}
	// the first non-null value decides the kind
	for _, r := range records {
		switch v := r[name].(type) {
		case nil:
			continue
		case bool:
			col.Kind = KindBool
		case time.Time:
			col.Kind = KindDateTime
		case int64, int32, int, float64, float32, uint64:
			col.Kind = KindNumber
		case string:
			if isoDateTime.MatchString(v) {
				col.Kind = KindDateTime
			}
		}
		return col
	}
	return col
}

func (b *Browser) render(ctx context.Context, cfg TableConfig, storeID uint, names []string, records []map[string]interface{}) ([]Column, []Row, error) {
	if len(records) == 0 {
		return []Column{}, []Row{}, nil
	}

	ordered := orderColumns(cfg, names)
	columns := make([]Column, 0, len(ordered))
	labels := make(map[string]map[string]string)
	for _, name := range ordered {
		col := b.columnFor(cfg, name, records)
		if col.Kind == KindRelation {
			if _, ok := labels[col.RelationTable]; !ok {
				l, err := b.relationLabels(ctx, storeID, col.RelationTable)
				if err != nil {
					return nil, nil, err
				}
				labels[col.RelationTable] = l
			}
		}
		columns = append(columns, col)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := Row{
			ID:     record["id"],
			Values: make(map[string]interface{}, len(columns)),
			Raw:    make(map[string]interface{}, len(columns)),
		}
		for _, col := range columns {
			v := record[col.Name]
			row.Raw[col.Name] = v
			row.Values[col.Name] = b.display(cfg, col, v, labels[col.RelationTable])
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func (b *Browser) display(cfg TableConfig, col Column, v interface{}, labels map[string]string) interface{} {
	if v == nil {
		return nil
	}
	switch col.Kind {
	case KindRelation:
		if label, ok := labels[fmt.Sprint(v)]; ok {
			return label
		}
		return v
	case KindBool:
		if bv, ok := asBool(v); ok {
			return boolLabel(cfg, col.Name, bv)
		}
		return v
	}
	return b.displayTime(v)
}

func boolLabel(cfg TableConfig, column string, v bool) string {
	pair, ok := cfg.BoolLabels[column]
	if !ok {
		pair = BoolLabels{True: "はい", False: "いいえ"}
	}
	if v {
		return pair.True
	}
	return pair.False
}

func asBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case int64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	case string:
		switch strings.ToLower(t) {
		case "true", "t", "1":
			return true, true
		case "false", "f", "0":
			return false, true
		}
	}
	return false, false
}

// displayTime converts stored UTC datetimes to display time. Other values,
// including strings that only look like datetimes, are returned unchanged.
func (b *Browser) displayTime(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.In(b.loc).Format(DisplayLayout)
	case string:
		if !isoDateTime.MatchString(t) {
			return t
		}
		parsed, err := parseStoredTime(t)
		if err != nil {
			return t
		}
		return parsed.In(b.loc).Format(DisplayLayout)
	}
	return v
}

var storedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseStoredTime reads a datetime string; values without an offset are UTC.
func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

func (b *Browser) relationLabels(ctx context.Context, storeID uint, table string) (map[string]string, error) {
	key := labelKey(storeID, table)
	if item := b.labels.Get(key); item != nil {
		return item.Value(), nil
	}

	cfg := b.tables[table]
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ?",
		pq.QuoteIdentifier("id"), pq.QuoteIdentifier(cfg.LabelColumn),
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()))

	rows, err := b.db.WithContext(ctx).Raw(query, storeID).Rows()
	if err != nil {
		logger.Error("Failed to load relation labels", err, map[string]interface{}{
			"table":    table,
			"store_id": storeID,
		})
		return nil, err
	}
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var id, label interface{}
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		labels[stringify(id)] = stringify(label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	b.labels.Set(key, labels, ttlcache.DefaultTTL)
	return labels, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func applyFilters(columns []Column, rows []Row, q Query) ([]Row, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c.Name] = true
	}

	filters := make(map[string]string, len(q.Filters))
	for col, needle := range q.Filters {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle == "" {
			continue
		}
		// an empty result has no columns to validate against
		if len(columns) > 0 && !known[col] {
			return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, col)
		}
		filters[col] = needle
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		ok := true
		for col, needle := range filters {
			if !strings.Contains(strings.ToLower(stringify(row.Values[col])), needle) {
				ok = false
				break
			}
		}
		if ok && search != "" {
			ok = false
			for _, c := range columns {
				if strings.Contains(strings.ToLower(stringify(row.Values[c.Name])), search) {
					ok = true
					break
				}
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}
	return matched, nil
}
