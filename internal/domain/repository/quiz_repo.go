package repository

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id uint) (*entity.Quiz, error)
	GetActive() (*entity.Quiz, error)
	GetWithQuestions(id uint) (*entity.Quiz, error)
	// FindDueDrafts возвращает черновики, у которых запланированное время
	// запуска уже наступило (start_time <= now).
	FindDueDrafts(now time.Time) ([]entity.Quiz, error)
	UpdateStatus(quizID uint, status string) error
	// TransitionStatus атомарно меняет статус from → to.
	// Возвращает ErrConflict, если викторина уже не в статусе from —
	// это защита от гонки ручного запуска и планировщика.
	TransitionStatus(quizID uint, from, to string) error
	Update(quiz *entity.Quiz) error
	List(limit, offset int) ([]entity.Quiz, error)
	Delete(id uint) error
}
