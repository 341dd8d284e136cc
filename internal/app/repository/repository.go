package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isUniqueViolation reports a unique index conflict on PostgreSQL or sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// deleteScoped deletes one row of a store and reports gorm.ErrRecordNotFound
// when nothing matched.
func deleteScoped(db *gorm.DB, value interface{}, storeID, id uint) error {
	result := db.Where("store_id = ? AND id = ?", storeID, id).Delete(value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
