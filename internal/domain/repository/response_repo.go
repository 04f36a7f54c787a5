package repository

import (
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// ResponseRepository определяет методы для работы с ответами участников
type ResponseRepository interface {
	// Save сохраняет ответ участника. Возвращает ErrConflict, если
	// пара (user_id, question_id) уже существует — повторный ответ
	// на тот же вопрос не перезаписывается.
	Save(response *entity.Response) error
	GetByUserAndQuiz(userID, quizID uint) ([]entity.Response, error)
	GetByQuiz(quizID uint) ([]entity.Response, error)
}
