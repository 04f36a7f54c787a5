package quizrunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

func TestSession_Snapshot_DuringQuestion(t *testing.T) {
	// Arrange
	session := NewSession(1)
	quiz := &entity.Quiz{
		ID: 1,
		Questions: []entity.Question{
			{ID: 99}, {ID: 100}, {ID: 101},
		},
	}
	session.SetQuiz(quiz)
	question := &quiz.Questions[1]

	openedAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	session.OpenQuestion(question, 2, openedAt, openedAt.Add(10*time.Second))

	// Act: опоздавший подключается через 4 секунды после показа вопроса
	snapshot := session.Snapshot(openedAt.Add(4 * time.Second))

	// Assert: снимок несет все, что нужно для отрисовки текущего вопроса
	assert.Equal(t, PhaseQuestion, snapshot.Phase)
	assert.Equal(t, 2, snapshot.QuestionNumber)
	assert.Equal(t, 3, snapshot.TotalQuestions)
	assert.Equal(t, question, snapshot.Question)
	assert.Equal(t, 6, snapshot.SecondsRemaining, "Остаток времени считается от момента подключения")
	assert.True(t, snapshot.AnswerWindowOpen)
}

func TestSession_Snapshot_AfterTimeout(t *testing.T) {
	// Arrange
	session := NewSession(1)
	question := &entity.Question{ID: 100}
	openedAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	session.OpenQuestion(question, 1, openedAt, openedAt.Add(10*time.Second))
	session.CloseQuestion()

	// Act
	snapshot := session.Snapshot(openedAt.Add(12 * time.Second))

	// Assert: окно закрыто, остаток времени не уходит в минус
	assert.False(t, snapshot.AnswerWindowOpen)
	assert.Equal(t, 0, snapshot.SecondsRemaining)
}

func TestSession_Snapshot_EndedPhase(t *testing.T) {
	// Arrange
	session := NewSession(1)
	session.SetPhase(PhaseEnded, time.Time{})

	// Act
	snapshot := session.Snapshot(time.Now())

	// Assert
	assert.Equal(t, PhaseEnded, snapshot.Phase)
	assert.Equal(t, 0, snapshot.SecondsRemaining)
}
