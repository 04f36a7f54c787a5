package entity

import (
	"time"
)

// Константы статусов викторины
const (
	QuizStatusDraft    = "draft"
	QuizStatusActive   = "active"
	QuizStatusArchived = "archived"
)

// DefaultQuestionTimeSec — время на вопрос по умолчанию
const DefaultQuestionTimeSec = 10

// Quiz представляет викторину
type Quiz struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:100;not null" json:"title"`
	Description     string     `gorm:"size:500;not null;default:''" json:"description"`
	Status          string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	StartTime       *time.Time `gorm:"index" json:"start_time,omitempty"` // NULL — запуск только вручную
	QuestionTimeSec int        `gorm:"not null;default:10" json:"question_time_sec"`
	QuestionCount   int        `gorm:"not null;default:0" json:"question_count"`
	Questions       []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsDraft проверяет, находится ли викторина в черновике
func (q *Quiz) IsDraft() bool {
	return q.Status == QuizStatusDraft
}

// IsActive проверяет, активна ли викторина
func (q *Quiz) IsActive() bool {
	return q.Status == QuizStatusActive
}

// IsArchived проверяет, завершена (архивирована) ли викторина
func (q *Quiz) IsArchived() bool {
	return q.Status == QuizStatusArchived
}

// IsDueForStart проверяет, наступило ли запланированное время запуска
func (q *Quiz) IsDueForStart(now time.Time) bool {
	return q.IsDraft() && q.StartTime != nil && !q.StartTime.After(now)
}
