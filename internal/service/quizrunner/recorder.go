package quizrunner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

var (
	// ErrQuestionClosed возвращается для ответа вне окна приема:
	// до показа вопроса, после таймаута или на чужой вопрос
	ErrQuestionClosed = errors.New("answer window is closed")

	// ErrDuplicateAnswer возвращается при повторном ответе на вопрос.
	// Засчитывается только первый записанный ответ.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")

	// ErrInvalidOption возвращается для варианта вне диапазона вопроса
	ErrInvalidOption = errors.New("selected option is out of range")
)

// AnswerResult — итог обработки ответа для персональной отправки участнику
type AnswerResult struct {
	QuizID          uint `json:"quiz_id"`
	QuestionID      uint `json:"question_id"`
	QuestionNumber  int  `json:"question_number"`
	SelectedOption  int  `json:"selected_option"`
	IsCorrect       bool `json:"is_correct"`
	Score           int  `json:"score"`
	ResponseTimeSec int  `json:"response_time_sec"`
}

// Recorder принимает ответы участников: проверяет окно приема,
// считает очки и записывает результат. Первый ответ побеждает,
// гонку повторов разрешает уникальный индекс в БД.
type Recorder struct {
	deps *Dependencies
}

// NewRecorder создает обработчик ответов
func NewRecorder(deps *Dependencies) *Recorder {
	return &Recorder{deps: deps}
}

// Record обрабатывает ответ участника на текущий вопрос сессии.
// Ответы вне окна приема отклоняются: окно сессии — единственный
// источник правды о том, открыт ли вопрос.
func (r *Recorder) Record(ctx context.Context, session *Session, userID uint, username string, questionID uint, selectedOption int) (*AnswerResult, error) {
	question, number := session.CurrentQuestion()
	if question == nil || question.ID != questionID {
		return nil, ErrQuestionClosed
	}

	open, openedAt, _ := session.AnswerWindow()
	if !open {
		return nil, ErrQuestionClosed
	}

	if !question.IsValidOption(selectedOption) {
		return nil, ErrInvalidOption
	}

	quiz := session.Quiz()
	if quiz == nil {
		return nil, ErrQuestionClosed
	}

	elapsed := int(r.deps.Clock.Now().Sub(openedAt).Seconds())
	responseTime := entity.ClampResponseTime(elapsed, quiz.QuestionTimeSec)

	isCorrect := question.IsCorrect(selectedOption)
	score := question.CalculateScore(isCorrect, responseTime, quiz.QuestionTimeSec)

	selected := selectedOption
	response := &entity.Response{
		QuizID:          quiz.ID,
		QuestionID:      question.ID,
		UserID:          userID,
		SelectedOption:  &selected,
		IsCorrect:       isCorrect,
		ResponseTimeSec: responseTime,
		Score:           score,
	}

	if err := r.deps.ResponseRepo.Save(response); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, ErrDuplicateAnswer
		}
		return nil, fmt.Errorf("save response for user #%d, question #%d: %w", userID, questionID, err)
	}

	if err := r.deps.LeaderboardRepo.AddScore(quiz.ID, userID, username, score); err != nil {
		// Ответ уже записан и не может быть отклонен задним числом
		log.Printf("[Recorder] Ошибка начисления очков пользователю #%d в викторине #%d: %v", userID, quiz.ID, err)
	}

	return &AnswerResult{
		QuizID:          quiz.ID,
		QuestionID:      question.ID,
		QuestionNumber:  number,
		SelectedOption:  selectedOption,
		IsCorrect:       isCorrect,
		Score:           score,
		ResponseTimeSec: responseTime,
	}, nil
}
