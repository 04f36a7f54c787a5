package entity

import (
	"time"
)

// LeaderboardEntry представляет накопленный счет участника в викторине.
// TotalScore монотонно растет по ходу сессии; Rank пересчитывается пачкой
// на границе фазы leaderboard, а не после каждого ответа.
type LeaderboardEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuizID     uint      `gorm:"not null;index;uniqueIndex:idx_quiz_user" json:"quiz_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_quiz_user" json:"user_id"`
	Username   string    `gorm:"size:50;not null;default:''" json:"username"`
	TotalScore int       `gorm:"not null;default:0" json:"total_score"`
	Rank       int       `gorm:"not null;default:0;index:idx_quiz_rank" json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
