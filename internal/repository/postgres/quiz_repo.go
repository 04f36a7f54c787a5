package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	return r.db.Create(quiz).Error
}

// GetByID возвращает викторину по ID
func (r *QuizRepo) GetByID(id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetActive возвращает активную викторину
func (r *QuizRepo) GetActive() (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("status = ?", entity.QuizStatusActive).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetWithQuestions возвращает викторину вместе с вопросами в порядке показа
func (r *QuizRepo) GetWithQuestions(id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// FindDueDrafts возвращает черновики с наступившим временем запуска
func (r *QuizRepo) FindDueDrafts(now time.Time) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Where("status = ? AND start_time IS NOT NULL AND start_time <= ?",
		entity.QuizStatusDraft, now).
		Order("start_time").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// UpdateStatus обновляет статус викторины
func (r *QuizRepo) UpdateStatus(quizID uint, status string) error {
	return r.db.Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Update("status", status).
		Error
}

// TransitionStatus атомарно переводит статус from → to.
// Условие WHERE по исходному статусу гарантирует, что из двух гонящихся
// вызовов (ручной запуск против планировщика) победит ровно один.
func (r *QuizRepo) TransitionStatus(quizID uint, from, to string) error {
	result := r.db.Model(&entity.Quiz{}).
		Where("id = ? AND status = ?", quizID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// Update сохраняет изменения викторины
func (r *QuizRepo) Update(quiz *entity.Quiz) error {
	return r.db.Save(quiz).Error
}

// List возвращает список викторин с пагинацией
func (r *QuizRepo) List(limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&quizzes).Error
	return quizzes, err
}

// Delete удаляет викторину
func (r *QuizRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Quiz{}, id).Error
}
