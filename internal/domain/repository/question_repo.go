package repository

import (
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	// GetOrderedByQuizID возвращает вопросы викторины в порядке показа
	// (order_index по возрастанию).
	GetOrderedByQuizID(quizID uint) ([]entity.Question, error)
	CountByQuizID(quizID uint) (int64, error)
	Update(question *entity.Question) error
	Delete(id uint) error
}
