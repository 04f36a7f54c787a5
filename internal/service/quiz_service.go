package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Ограничения на содержимое викторины
const (
	MinOptionsPerQuestion = 2
	MaxOptionsPerQuestion = 5
	MaxQuestionsPerQuiz   = 50
)

// QuizService предоставляет методы для подготовки викторин:
// создание черновиков и наполнение вопросами. Запуском и живыми
// сессиями занимается LiveQuizService.
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
}

// NewQuizService создает сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
	}
}

// CreateQuiz создает черновик викторины. startTime == nil означает
// викторину без автозапуска — ее стартуют вручную.
func (s *QuizService) CreateQuiz(title, description string, startTime *time.Time, questionTimeSec int) (*entity.Quiz, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperrors.ErrValidation)
	}
	if startTime != nil && startTime.Before(time.Now()) {
		return nil, fmt.Errorf("start time must be in the future: %w", apperrors.ErrValidation)
	}
	if questionTimeSec <= 0 {
		questionTimeSec = entity.DefaultQuestionTimeSec
	}

	quiz := &entity.Quiz{
		Title:           title,
		Description:     strings.TrimSpace(description),
		Status:          entity.QuizStatusDraft,
		StartTime:       startTime,
		QuestionTimeSec: questionTimeSec,
		QuestionCount:   0,
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

// AddQuestions добавляет вопросы в черновик викторины. Порядок показа
// продолжает существующую нумерацию.
func (s *QuizService) AddQuestions(quizID uint, questions []entity.Question) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}

	// Наполнять можно только черновик: у идущей или прошедшей игры
	// состав вопросов зафиксирован
	if !quiz.IsDraft() {
		return fmt.Errorf("can only add questions to a draft quiz: %w", apperrors.ErrValidation)
	}

	existingCount, err := s.questionRepo.CountByQuizID(quizID)
	if err != nil {
		return fmt.Errorf("failed to count existing questions: %w", err)
	}

	total := int(existingCount) + len(questions)
	if total > MaxQuestionsPerQuiz {
		return fmt.Errorf("quiz cannot have more than %d questions: %w", MaxQuestionsPerQuiz, apperrors.ErrValidation)
	}

	for i := range questions {
		if err := validateQuestion(&questions[i]); err != nil {
			return err
		}
		questions[i].QuizID = quizID
		questions[i].OrderIndex = int(existingCount) + i
		if questions[i].Marks <= 0 {
			questions[i].Marks = 1
		}
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}

	quiz.QuestionCount = total
	if err := s.quizRepo.Update(quiz); err != nil {
		return fmt.Errorf("failed to update question count: %w", err)
	}
	return nil
}

// validateQuestion проверяет согласованность вопроса
func validateQuestion(q *entity.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required: %w", apperrors.ErrValidation)
	}
	if len(q.Options) < MinOptionsPerQuestion || len(q.Options) > MaxOptionsPerQuestion {
		return fmt.Errorf("question must have between %d and %d options: %w",
			MinOptionsPerQuestion, MaxOptionsPerQuestion, apperrors.ErrValidation)
	}
	if !q.IsValidOption(q.CorrectOption) {
		return fmt.Errorf("correct option %d is out of range: %w", q.CorrectOption, apperrors.ErrValidation)
	}
	return nil
}

// GetQuizByID возвращает викторину по ID
func (s *QuizService) GetQuizByID(quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(quizID)
}

// GetQuizWithQuestions возвращает викторину с вопросами в порядке показа
func (s *QuizService) GetQuizWithQuestions(quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(quizID)
}

// GetActiveQuiz возвращает идущую викторину
func (s *QuizService) GetActiveQuiz() (*entity.Quiz, error) {
	return s.quizRepo.GetActive()
}

// ListQuizzes возвращает страницу викторин
func (s *QuizService) ListQuizzes(limit, offset int) ([]entity.Quiz, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.quizRepo.List(limit, offset)
}

// DeleteQuiz удаляет черновик викторины
func (s *QuizService) DeleteQuiz(quizID uint) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}
	if !quiz.IsDraft() {
		return fmt.Errorf("only draft quizzes can be deleted: %w", apperrors.ErrValidation)
	}
	return s.quizRepo.Delete(quizID)
}
