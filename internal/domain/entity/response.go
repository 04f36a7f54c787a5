package entity

import (
	"time"
)

// Response представляет ответ участника на один вопрос.
// Пара (user_id, question_id) уникальна: повторная отправка отклоняется на
// уровне БД, первый записанный ответ — окончательный.
type Response struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	QuizID          uint      `gorm:"not null;index" json:"quiz_id"`
	QuestionID      uint      `gorm:"not null;index;uniqueIndex:idx_user_question" json:"question_id"`
	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_user_question" json:"user_id"`
	SelectedOption  *int      `json:"selected_option"` // NULL — ответ не был отправлен
	IsCorrect       bool      `gorm:"not null;default:false" json:"is_correct"`
	ResponseTimeSec int       `gorm:"not null;default:0" json:"response_time_sec"`
	Score           int       `gorm:"not null;default:0" json:"score"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Response) TableName() string {
	return "responses"
}
