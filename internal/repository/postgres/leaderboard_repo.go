package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// LeaderboardRepo реализует repository.LeaderboardRepository
type LeaderboardRepo struct {
	db *gorm.DB
}

// NewLeaderboardRepo создает новый репозиторий таблицы лидеров
func NewLeaderboardRepo(db *gorm.DB) *LeaderboardRepo {
	return &LeaderboardRepo{db: db}
}

// AddScore атомарно прибавляет delta к счету участника.
// ON CONFLICT с выражением total_score + delta выполняется на стороне БД,
// поэтому два одновременных ответа не теряют прибавки (нет read-modify-write).
func (r *LeaderboardRepo) AddScore(quizID, userID uint, username string, delta int) error {
	entry := entity.LeaderboardEntry{
		QuizID:     quizID,
		UserID:     userID,
		Username:   username,
		TotalScore: delta,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "quiz_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_score": gorm.Expr("leaderboard_entries.total_score + ?", delta),
			"username":    username,
		}),
	}).Create(&entry).Error
}

// ListByQuiz возвращает все записи викторины в детерминированном порядке:
// total_score DESC, при равенстве — user_id ASC
func (r *LeaderboardRepo) ListByQuiz(quizID uint) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	err := r.db.Where("quiz_id = ?", quizID).
		Order("total_score DESC, user_id ASC").
		Find(&entries).Error
	return entries, err
}

// TopN возвращает n лучших записей викторины
func (r *LeaderboardRepo) TopN(quizID uint, n int) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	err := r.db.Where("quiz_id = ?", quizID).
		Order("total_score DESC, user_id ASC").
		Limit(n).
		Find(&entries).Error
	return entries, err
}

// UpdateRanks сохраняет пересчитанные ранги точечными UPDATE в транзакции
func (r *LeaderboardRepo) UpdateRanks(entries []entity.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			err := tx.Model(&entity.LeaderboardEntry{}).
				Where("id = ?", entry.ID).
				Update("rank", entry.Rank).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByUser возвращает запись участника в викторине
func (r *LeaderboardRepo) GetByUser(quizID, userID uint) (*entity.LeaderboardEntry, error) {
	var entry entity.LeaderboardEntry
	err := r.db.Where("quiz_id = ? AND user_id = ?", quizID, userID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}
