package repository

import (
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// LeaderboardRepository определяет методы для работы с таблицей лидеров
type LeaderboardRepository interface {
	// AddScore атомарно прибавляет delta к накопленному счету участника,
	// создавая запись при первом ответе. Два одновременных ответа на один
	// вопрос не должны терять прибавки (upsert-инкремент на стороне БД).
	AddScore(quizID, userID uint, username string, delta int) error
	// ListByQuiz возвращает все записи викторины, отсортированные по
	// total_score DESC, user_id ASC — детерминированный порядок для
	// идемпотентного пересчета рангов.
	ListByQuiz(quizID uint) ([]entity.LeaderboardEntry, error)
	// TopN возвращает n лучших записей в том же порядке.
	TopN(quizID uint, n int) ([]entity.LeaderboardEntry, error)
	// UpdateRanks сохраняет пересчитанные ранги.
	UpdateRanks(entries []entity.LeaderboardEntry) error
	GetByUser(quizID, userID uint) (*entity.LeaderboardEntry, error)
}
