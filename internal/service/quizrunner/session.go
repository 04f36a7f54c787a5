package quizrunner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// Phase — текущая фаза жизненного цикла сессии викторины
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCountdown   Phase = "countdown"
	PhaseQuestion    Phase = "question"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseEnded       Phase = "ended"
)

// Session хранит живое состояние одной запущенной викторины.
// Создается реестром, наполняется оркестратором, читается
// обработчиками ответов и переподключений.
type Session struct {
	QuizID uint

	// Гарантия "не более одной запущенной сессии" на викторину
	running atomic.Bool

	mu sync.RWMutex

	quiz  *entity.Quiz
	phase Phase

	// Текущий вопрос и окно приема ответов
	currentQuestion *entity.Question
	questionNumber  int // Порядковый номер с единицы, 0 — вопрос не показан
	windowOpenedAt  time.Time
	windowDeadline  time.Time
	windowOpen      bool

	// Момент окончания текущей фазы для ресинхронизации опоздавших
	phaseDeadline time.Time
}

// NewSession создает сессию в фазе ожидания
func NewSession(quizID uint) *Session {
	return &Session{
		QuizID: quizID,
		phase:  PhaseIdle,
	}
}

// TryStart атомарно захватывает право на запуск сессии.
// Возвращает false, если сессия уже запущена.
func (s *Session) TryStart() bool {
	return s.running.CompareAndSwap(false, true)
}

// Finish снимает флаг запуска. Вызывается оркестратором при любом исходе.
func (s *Session) Finish() {
	s.running.Store(false)
}

// IsRunning возвращает true, пока оркестратор ведет сессию
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// SetQuiz сохраняет загруженную викторину
func (s *Session) SetQuiz(quiz *entity.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = quiz
}

// Quiz возвращает викторину сессии (nil до загрузки оркестратором)
func (s *Session) Quiz() *entity.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quiz
}

// SetPhase переводит сессию в новую фазу. deadline — момент окончания
// фазы; нулевое время означает фазу без таймера.
func (s *Session) SetPhase(phase Phase, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.phaseDeadline = deadline
}

// Phase возвращает текущую фазу и момент ее окончания
func (s *Session) Phase() (Phase, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase, s.phaseDeadline
}

// OpenQuestion показывает вопрос и открывает окно приема ответов
func (s *Session) OpenQuestion(q *entity.Question, number int, openedAt, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseQuestion
	s.phaseDeadline = deadline
	s.currentQuestion = q
	s.questionNumber = number
	s.windowOpenedAt = openedAt
	s.windowDeadline = deadline
	s.windowOpen = true
}

// CloseQuestion закрывает окно приема ответов. Вопрос остается
// текущим до перехода к следующей фазе.
func (s *Session) CloseQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowOpen = false
}

// CurrentQuestion возвращает текущий вопрос и его номер
func (s *Session) CurrentQuestion() (*entity.Question, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentQuestion, s.questionNumber
}

// AnswerWindow возвращает состояние окна приема ответов:
// открыто ли оно и момент показа вопроса
func (s *Session) AnswerWindow() (open bool, openedAt, deadline time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowOpen, s.windowOpenedAt, s.windowDeadline
}

// Snapshot — состояние сессии для ресинхронизации подключившегося
// по ходу игры участника
type Snapshot struct {
	QuizID           uint             `json:"quiz_id"`
	Phase            Phase            `json:"phase"`
	QuestionNumber   int              `json:"question_number,omitempty"`
	TotalQuestions   int              `json:"total_questions,omitempty"`
	Question         *entity.Question `json:"question,omitempty"`
	SecondsRemaining int              `json:"seconds_remaining"`
	AnswerWindowOpen bool             `json:"answer_window_open"`
}

// Snapshot собирает снимок состояния на момент now
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := 0
	if !s.phaseDeadline.IsZero() {
		if d := s.phaseDeadline.Sub(now); d > 0 {
			remaining = int(d.Seconds())
		}
	}
	total := 0
	if s.quiz != nil {
		total = len(s.quiz.Questions)
	}
	return Snapshot{
		QuizID:           s.QuizID,
		Phase:            s.phase,
		QuestionNumber:   s.questionNumber,
		TotalQuestions:   total,
		Question:         s.currentQuestion,
		SecondsRemaining: remaining,
		AnswerWindowOpen: s.windowOpen,
	}
}
