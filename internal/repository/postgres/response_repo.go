package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// ResponseRepo реализует repository.ResponseRepository
type ResponseRepo struct {
	db *gorm.DB
}

// NewResponseRepo создает новый репозиторий ответов
func NewResponseRepo(db *gorm.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Save сохраняет ответ участника.
// Уникальный индекс (user_id, question_id) отсекает повторные ответы:
// нарушение 23505 (unique_violation) конвертируется в ErrConflict.
func (r *ResponseRepo) Save(response *entity.Response) error {
	err := r.db.Create(response).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// GetByUserAndQuiz возвращает ответы участника в рамках викторины
func (r *ResponseRepo) GetByUserAndQuiz(userID, quizID uint) ([]entity.Response, error) {
	var responses []entity.Response
	err := r.db.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at").
		Find(&responses).Error
	return responses, err
}

// GetByQuiz возвращает все ответы викторины
func (r *ResponseRepo) GetByQuiz(quizID uint) ([]entity.Response, error) {
	var responses []entity.Response
	err := r.db.Where("quiz_id = ?", quizID).
		Order("created_at").
		Find(&responses).Error
	return responses, err
}
