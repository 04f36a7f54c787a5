package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Тесты детекции unique violation
// gorm.io/driver/postgres работает поверх pgx, поэтому нарушение
// уникальности приходит как *pgconn.PgError, а не *pq.Error
// ============================================================================

func TestIsUniqueViolation_PgconnError(t *testing.T) {
	// Arrange
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_user_question"}

	// Act & Assert
	assert.True(t, isUniqueViolation(pgxErr),
		"Нарушение 23505 от pgx-драйвера должно распознаваться")
}

func TestIsUniqueViolation_PqError(t *testing.T) {
	// Arrange
	pqErr := &pq.Error{Code: "23505", Constraint: "idx_user_question"}

	// Act & Assert
	assert.True(t, isUniqueViolation(pqErr),
		"Нарушение 23505 от lib/pq должно распознаваться")
}

func TestIsUniqueViolation_WrappedError(t *testing.T) {
	// Arrange: gorm может обернуть ошибку драйвера
	wrapped := fmt.Errorf("create response: %w", &pgconn.PgError{Code: "23505"})

	// Act & Assert
	assert.True(t, isUniqueViolation(wrapped))
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	// Arrange
	notNull := &pgconn.PgError{Code: "23502"} // not_null_violation
	plain := errors.New("connection refused")

	// Act & Assert
	assert.False(t, isUniqueViolation(notNull),
		"Другие коды ошибок не должны считаться дубликатом")
	assert.False(t, isUniqueViolation(plain))
	assert.False(t, isUniqueViolation(nil))
}
