package tablebrowser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

type columnFamily int

const (
	familyText columnFamily = iota
	familyInt
	familyFloat
	familyBool
	familyDateTime
	familyDate
)

func familyOf(cfg TableConfig, column, dbType string) columnFamily {
	t := strings.ToLower(dbType)
	switch {
	case strings.Contains(t, "bool"):
		return familyBool
	case strings.Contains(t, "time"):
		return familyDateTime
	case t == "date":
		return familyDate
	case strings.Contains(t, "int"):
		return familyInt
	case t == "numeric" && isBoolColumn(cfg, column):
		// sqlite declares booleans as numeric
		return familyBool
	case strings.Contains(t, "numeric"), strings.Contains(t, "decimal"),
		strings.Contains(t, "real"), strings.Contains(t, "double"), strings.Contains(t, "float"):
		return familyFloat
	}
	return familyText
}

type columnInfo struct {
	dbType   string
	nullable bool
}

func (b *Browser) columnTypes(db *gorm.DB, table string) (map[string]columnInfo, error) {
	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]columnInfo, len(types))
	for _, ct := range types {
		nullable, ok := ct.Nullable()
		out[ct.Name()] = columnInfo{dbType: ct.DatabaseTypeName(), nullable: nullable || !ok}
	}
	return out, nil
}

// UpdateRow writes values to one row. Datetime input is read as display time
// and stored as UTC. Values pass the table's checks, and references must
// point at rows of the same store.
func (b *Browser) UpdateRow(ctx context.Context, storeID uint, table string, id uint, values map[string]interface{}) ([]Column, *Row, error) {
	cfg, err := b.config(table)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Editable {
		return nil, nil, ErrReadOnly
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: no values", ErrInvalidValue)
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		types, err := b.columnTypes(tx, cfg.Name)
		if err != nil {
			logger.Error("Failed to read column types", err, map[string]interface{}{
				"table": cfg.Name,
			})
			return err
		}

		updates, err := b.parseUpdates(tx, cfg, storeID, types, values)
		if err != nil {
			return err
		}

		if cfg.RowCheck != nil {
			current, err := b.currentRow(tx, cfg, storeID, id)
			if err != nil {
				return err
			}
			for column, v := range updates {
				current[column] = v
			}
			if err := cfg.RowCheck(current); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
		}

		if _, ok := types["updated_at"]; ok {
			updates["updated_at"] = time.Now().UTC()
		}
		result := tx.Table(cfg.Name).
			Where(fmt.Sprintf("%s = ? AND %s = ?", pq.QuoteIdentifier(cfg.scopeColumn()), pq.QuoteIdentifier("id")), storeID, id).
			Updates(updates)
		if result.Error != nil {
			logger.Error("Failed to update table row", result.Error, map[string]interface{}{
				"table": cfg.Name,
				"id":    id,
			})
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRowNotFound
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	b.Invalidate(storeID, cfg.Name)
	logger.Info("Table row updated", map[string]interface{}{
		"table":    cfg.Name,
		"id":       id,
		"store_id": storeID,
		"columns":  len(values),
	})
	return b.Row(ctx, storeID, cfg.Name, id)
}

func (b *Browser) parseUpdates(tx *gorm.DB, cfg TableConfig, storeID uint, types map[string]columnInfo, values map[string]interface{}) (map[string]interface{}, error) {
	updates := make(map[string]interface{}, len(values)+1)
	for column, raw := range values {
		info, exists := types[column]
		if !exists || cfg.isReadOnly(column) || cfg.isHidden(column) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, column)
		}
		v, err := b.parseInput(cfg, column, familyOf(cfg, column, info.dbType), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, column)
		}
		if v == nil && !info.nullable {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidValue, column)
		}
		if check, ok := cfg.Checks[column]; ok {
			if err := check(v); err != nil {
				return nil, fmt.Errorf("%w: %s %v", ErrInvalidValue, column, err)
			}
		}
		if err := b.checkReference(tx, cfg, storeID, column, v); err != nil {
			return nil, err
		}
		updates[column] = v
	}
	return updates, nil
}

// checkReference makes sure a *_id value names a row of the same store.
func (b *Browser) checkReference(tx *gorm.DB, cfg TableConfig, storeID uint, column string, v interface{}) error {
	target, ok := b.referenceTarget(cfg, column)
	if !ok {
		if strings.HasSuffix(column, "_id") {
			// a reference we cannot scope is never writable here
			return fmt.Errorf("%w: %s", ErrInvalidColumn, column)
		}
		return nil
	}
	if v == nil {
		return nil
	}

	targetCfg := b.tables[target]
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ?",
		pq.QuoteIdentifier(targetCfg.Name), pq.QuoteIdentifier(targetCfg.scopeColumn()), pq.QuoteIdentifier("id"))
	if err := tx.Raw(query, storeID, v).Scan(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s references an unknown row", ErrInvalidValue, column)
	}
	return nil
}

func (b *Browser) currentRow(tx *gorm.DB, cfg TableConfig, storeID uint, id uint) (map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? AND %s = ?",
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()), pq.QuoteIdentifier("id"))
	_, records, err := scanRows(tx, query, storeID, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRowNotFound
	}
	return records[0], nil
}

// DeleteRow hard-deletes one row.
func (b *Browser) DeleteRow(ctx context.Context, storeID uint, table string, id uint) error {
	cfg, err := b.config(table)
	if err != nil {
		return err
	}
	if !cfg.Editable || cfg.NoDelete {
		return ErrReadOnly
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		pq.QuoteIdentifier(cfg.Name), pq.QuoteIdentifier(cfg.scopeColumn()), pq.QuoteIdentifier("id"))
	result := b.db.WithContext(ctx).Exec(query, storeID, id)
	if result.Error != nil {
		logger.Error("Failed to delete table row", result.Error, map[string]interface{}{
			"table": cfg.Name,
			"id":    id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRowNotFound
	}

	b.Invalidate(storeID, cfg.Name)
	logger.Info("Table row deleted", map[string]interface{}{
		"table":    cfg.Name,
		"id":       id,
		"store_id": storeID,
	})
	return nil
}

var inputLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func (b *Browser) parseInput(cfg TableConfig, column string, family columnFamily, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	switch family {
	case familyBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			if pair, ok := cfg.BoolLabels[column]; ok {
				if v == pair.True {
					return true, nil
				}
				if v == pair.False {
					return false, nil
				}
			}
			if bv, ok := asBool(v); ok {
				return bv, nil
			}
		}
		return nil, ErrInvalidValue

	case familyInt:
		switch v := raw.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, ErrInvalidValue
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case uint:
			if uint64(v) > math.MaxInt64 {
				return nil, ErrInvalidValue
			}
			return int64(v), nil
		case json.Number:
			return v.Int64()
		case string:
			return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
		return nil, ErrInvalidValue

	case familyFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		case string:
			return strconv.ParseFloat(strings.TrimSpace(v), 64)
		}
		return nil, ErrInvalidValue

	case familyDateTime:
		s, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidValue
		}
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
		for _, layout := range inputLayouts {
			if t, err := time.ParseInLocation(layout, s, b.loc); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, ErrInvalidValue

	case familyDate:
		s, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidValue
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, ErrInvalidValue
		}
		return s, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, ErrInvalidValue
	}
	return s, nil
}

// ExportCSV writes every matching row (up to maxExportRows) as CSV using
// the display values and column labels.
func (b *Browser) ExportCSV(ctx context.Context, storeID uint, table string, q Query, w io.Writer) error {
	cfg, err := b.config(table)
	if err != nil {
		return err
	}

	names, records, err := b.fetch(ctx, cfg, storeID, maxExportRows, 0)
	if err != nil {
		return err
	}
	columns, rows, err := b.render(ctx, cfg, storeID, names, records)
	if err != nil {
		return err
	}
	if q.filtered() {
		if rows, err = applyFilters(columns, rows, q); err != nil {
			return err
		}
	}

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Label
	}
	lines := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = stringify(row.Values[c.Name])
		}
		lines = append(lines, line)
	}

	logger.Info("Exporting table as CSV", map[string]interface{}{
		"table":    cfg.Name,
		"store_id": storeID,
		"rows":     len(lines),
	})
	return spreadsheet.WriteCSV(w, headers, lines)
}
