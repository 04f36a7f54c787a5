package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if o == nil || len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос в викторине.
// OrderIndex задает порядок показа: непрерывный и уникальный в рамках викторины.
type Question struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	QuizID        uint        `gorm:"not null;index;uniqueIndex:idx_quiz_order" json:"quiz_id"`
	OrderIndex    int         `gorm:"not null;uniqueIndex:idx_quiz_order" json:"order_index"`
	Text          string      `gorm:"size:500;not null" json:"text"`
	Options       StringArray `gorm:"type:jsonb;not null" json:"options"`
	ImageURL      string      `gorm:"size:255;not null;default:''" json:"image_url"`
	CorrectOption int         `gorm:"not null" json:"-"` // Скрыто от клиента
	Marks         int         `gorm:"not null;default:1" json:"marks"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedOption int) bool {
	return selectedOption == q.CorrectOption
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}

// ClampResponseTime приводит время ответа к диапазону [0, timeLimitSec].
// CalculateScore не защищается от выхода за диапазон — клэмп делает вызывающий.
func ClampResponseTime(timeTakenSec, timeLimitSec int) int {
	if timeTakenSec < 0 {
		return 0
	}
	if timeTakenSec > timeLimitSec {
		return timeLimitSec
	}
	return timeTakenSec
}

// CalculateScore рассчитывает очки за ответ на вопрос.
// Правильность ответа — обязательное условие для любых очков.
// За скорость начисляется бонус: floor((лимит - затраченное время) / 2),
// поэтому более быстрый правильный ответ всегда дает не меньше очков.
// timeTakenSec должен быть заранее приведен к [0, timeLimitSec].
func (q *Question) CalculateScore(isCorrect bool, timeTakenSec, timeLimitSec int) int {
	if !isCorrect {
		return 0
	}
	speedBonus := (timeLimitSec - timeTakenSec) / 2
	if speedBonus < 0 {
		speedBonus = 0
	}
	return q.Marks + speedBonus
}
