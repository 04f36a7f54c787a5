package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_IsCorrect_CorrectAnswer(t *testing.T) {
	// Arrange
	question := &Question{
		ID:            1,
		QuizID:        1,
		OrderIndex:    0,
		Text:          "Какой язык используется в Go?",
		Options:       StringArray{"Python", "Go", "Java", "Rust"},
		CorrectOption: 1, // "Go" — индекс 1
		Marks:         1,
	}

	// Act & Assert
	assert.True(t, question.IsCorrect(1), "IsCorrect должен вернуть true для правильного ответа")
}

func TestQuestion_IsCorrect_IncorrectAnswer(t *testing.T) {
	// Arrange
	question := &Question{
		ID:            1,
		CorrectOption: 2,
	}

	// Act & Assert
	assert.False(t, question.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(1), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(3), "IsCorrect должен вернуть false для неправильного ответа")
}

func TestQuestion_IsValidOption(t *testing.T) {
	// Arrange
	question := &Question{
		Options: StringArray{"A", "B", "C", "D"},
	}

	// Act & Assert: валидные опции
	assert.True(t, question.IsValidOption(0), "Индекс 0 должен быть валидным")
	assert.True(t, question.IsValidOption(3), "Индекс 3 должен быть валидным")

	// Assert: невалидные опции
	assert.False(t, question.IsValidOption(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidOption(4), "Индекс вне диапазона должен быть невалидным")
	assert.False(t, question.IsValidOption(100), "Индекс далеко за пределами должен быть невалидным")
}

func TestQuestion_CalculateScore_IncorrectAnswer(t *testing.T) {
	// Arrange
	question := &Question{
		Marks: 3,
	}

	// Act & Assert: неправильный ответ = 0 очков независимо от скорости
	assert.Equal(t, 0, question.CalculateScore(false, 0, 10), "Мгновенный неправильный ответ должен дать 0 очков")
	assert.Equal(t, 0, question.CalculateScore(false, 10, 10), "Медленный неправильный ответ должен дать 0 очков")
}

func TestQuestion_CalculateScore_SpeedBonus(t *testing.T) {
	// Arrange
	question := &Question{
		Marks: 1,
	}

	// Act: правильный ответ за 2 секунды при лимите 10
	score := question.CalculateScore(true, 2, 10)

	// Assert: 1 (базовые очки) + floor((10-2)/2) = 5
	assert.Equal(t, 5, score, "Очки должны включать бонус за скорость: 1 + floor(8/2)")
}

func TestQuestion_CalculateScore_AtLeastMarks(t *testing.T) {
	// Arrange
	question := &Question{
		Marks: 2,
	}

	// Act: правильный ответ на последней секунде
	score := question.CalculateScore(true, 10, 10)

	// Assert: бонус нулевой, но базовые очки сохраняются
	assert.Equal(t, 2, score, "Правильный ответ должен давать минимум базовые очки")
}

func TestQuestion_CalculateScore_Monotonicity(t *testing.T) {
	// Arrange
	question := &Question{
		Marks: 1,
	}
	limit := 30

	// Act & Assert: при фиксированной правильности очки не растут с ростом времени
	prev := question.CalculateScore(true, 0, limit)
	for taken := 1; taken <= limit; taken++ {
		score := question.CalculateScore(true, taken, limit)
		assert.LessOrEqual(t, score, prev, "Очки не должны расти при увеличении времени ответа")
		assert.GreaterOrEqual(t, score, question.Marks, "Правильный ответ всегда дает не меньше базовых очков")
		prev = score
	}
}

func TestClampResponseTime(t *testing.T) {
	assert.Equal(t, 0, ClampResponseTime(-5, 10), "Отрицательное время должно приводиться к 0")
	assert.Equal(t, 10, ClampResponseTime(25, 10), "Время сверх лимита должно приводиться к лимиту")
	assert.Equal(t, 7, ClampResponseTime(7, 10), "Время в диапазоне не должно изменяться")
}

func TestQuiz_IsDueForStart(t *testing.T) {
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	// Черновик со временем в прошлом — пора запускать
	quiz := &Quiz{Status: QuizStatusDraft, StartTime: &past}
	assert.True(t, quiz.IsDueForStart(now))

	// Черновик со временем в будущем — рано
	quiz = &Quiz{Status: QuizStatusDraft, StartTime: &future}
	assert.False(t, quiz.IsDueForStart(now))

	// Без запланированного времени — только ручной запуск
	quiz = &Quiz{Status: QuizStatusDraft}
	assert.False(t, quiz.IsDueForStart(now))

	// Уже активная — не перезапускается
	quiz = &Quiz{Status: QuizStatusActive, StartTime: &past}
	assert.False(t, quiz.IsDueForStart(now))
}
