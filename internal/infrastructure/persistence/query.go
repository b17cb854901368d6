package persistence

import (
	"errors"

	"gorm.io/gorm"
)

// takeOne runs q and returns its single row, or nil when nothing matches
func takeOne[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// isPostgres reports whether db talks to postgres; row locks are skipped elsewhere
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
