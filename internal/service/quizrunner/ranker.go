package quizrunner

import (
	"context"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// Ranker пересчитывает ранги таблицы лидеров. Используется плотное
// ранжирование: участники с равным счетом делят одну позицию,
// следующий счет получает следующий номер без пропусков (1,1,2).
type Ranker struct {
	leaderboardRepo repository.LeaderboardRepository
}

// NewRanker создает пересчетчик рангов
func NewRanker(leaderboardRepo repository.LeaderboardRepository) *Ranker {
	return &Ranker{leaderboardRepo: leaderboardRepo}
}

// RecomputeRanks перечитывает таблицу викторины и сохраняет плотные
// ранги. Повторный вызов на неизменных данных ничего не меняет.
func (r *Ranker) RecomputeRanks(ctx context.Context, quizID uint) error {
	entries, err := r.leaderboardRepo.ListByQuiz(quizID)
	if err != nil {
		return fmt.Errorf("list leaderboard for quiz #%d: %w", quizID, err)
	}
	if len(entries) == 0 {
		return nil
	}

	AssignDenseRanks(entries)

	if err := r.leaderboardRepo.UpdateRanks(entries); err != nil {
		return fmt.Errorf("update ranks for quiz #%d: %w", quizID, err)
	}
	return nil
}

// TopN возвращает n лучших записей викторины
func (r *Ranker) TopN(ctx context.Context, quizID uint, n int) ([]entity.LeaderboardEntry, error) {
	return r.leaderboardRepo.TopN(quizID, n)
}

// AssignDenseRanks проставляет плотные ранги списку, отсортированному
// по убыванию счета. Записи с равным счетом получают равный ранг.
func AssignDenseRanks(entries []entity.LeaderboardEntry) {
	rank := 0
	prevScore := 0
	for i := range entries {
		if i == 0 || entries[i].TotalScore != prevScore {
			rank++
			prevScore = entries[i].TotalScore
		}
		entries[i].Rank = rank
	}
}
