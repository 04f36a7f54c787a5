package quizrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// ============================================================================
// Моки для Orchestrator
// ============================================================================

// recordingBroadcaster записывает последовательность событий и их
// полезные нагрузки вместо реальной рассылки по WebSocket
type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []string
	payloads []map[string]interface{}
}

func (b *recordingBroadcaster) BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	payload, _ := data.(map[string]interface{})
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *recordingBroadcaster) SendEventToUser(userID string, eventType string, data interface{}) error {
	return nil
}

func (b *recordingBroadcaster) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	copy(out, b.events)
	return out
}

// Payload возвращает нагрузку i-го по счету события указанного типа
func (b *recordingBroadcaster) Payload(eventType string, occurrence int) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := 0
	for i, typ := range b.events {
		if typ != eventType {
			continue
		}
		if seen == occurrence {
			return b.payloads[i]
		}
		seen++
	}
	return nil
}

// MockQuizRepoForOrchestrator реализует repository.QuizRepository
type MockQuizRepoForOrchestrator struct {
	mock.Mock
}

func (m *MockQuizRepoForOrchestrator) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepoForOrchestrator) GetByID(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForOrchestrator) GetActive() (*entity.Quiz, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForOrchestrator) GetWithQuestions(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForOrchestrator) FindDueDrafts(now time.Time) ([]entity.Quiz, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForOrchestrator) UpdateStatus(quizID uint, status string) error {
	args := m.Called(quizID, status)
	return args.Error(0)
}

func (m *MockQuizRepoForOrchestrator) TransitionStatus(quizID uint, from, to string) error {
	args := m.Called(quizID, from, to)
	return args.Error(0)
}

func (m *MockQuizRepoForOrchestrator) Update(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepoForOrchestrator) List(limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForOrchestrator) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockQuestionRepoForOrchestrator реализует repository.QuestionRepository
type MockQuestionRepoForOrchestrator struct {
	mock.Mock
}

func (m *MockQuestionRepoForOrchestrator) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepoForOrchestrator) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepoForOrchestrator) GetByID(id uint) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepoForOrchestrator) GetOrderedByQuizID(quizID uint) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepoForOrchestrator) CountByQuizID(quizID uint) (int64, error) {
	args := m.Called(quizID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepoForOrchestrator) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepoForOrchestrator) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockCacheRepoForOrchestrator реализует repository.CacheRepository
type MockCacheRepoForOrchestrator struct {
	mock.Mock
}

func (m *MockCacheRepoForOrchestrator) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForOrchestrator) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepoForOrchestrator) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepoForOrchestrator) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForOrchestrator) SAdd(key string, members ...interface{}) error {
	args := m.Called(key, members)
	return args.Error(0)
}

func (m *MockCacheRepoForOrchestrator) SMembers(key string) ([]string, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCacheRepoForOrchestrator) SCard(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepoForOrchestrator) Expire(key string, expiration time.Duration) error {
	args := m.Called(key, expiration)
	return args.Error(0)
}

// MockNotifierForOrchestrator реализует CompletionNotifier
type MockNotifierForOrchestrator struct {
	mock.Mock
}

func (m *MockNotifierForOrchestrator) NotifyQuizCompleted(ctx context.Context, quizID uint, quizTitle string, participants int) error {
	args := m.Called(ctx, quizID, quizTitle, participants)
	return args.Error(0)
}

// ============================================================================
// Сборка оркестратора с моками
// ============================================================================

type orchestratorFixture struct {
	orchestrator *Orchestrator
	registry     *Registry
	clock        *fakeClock
	broadcaster  *recordingBroadcaster
	quizRepo     *MockQuizRepoForOrchestrator
	questionRepo *MockQuestionRepoForOrchestrator
	boardRepo    *MockLeaderboardRepoForRanker
	cacheRepo    *MockCacheRepoForOrchestrator
	notifier     *MockNotifierForOrchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	f := &orchestratorFixture{
		registry:     NewRegistry(),
		clock:        newFakeClock(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)),
		broadcaster:  &recordingBroadcaster{},
		quizRepo:     new(MockQuizRepoForOrchestrator),
		questionRepo: new(MockQuestionRepoForOrchestrator),
		boardRepo:    new(MockLeaderboardRepoForRanker),
		cacheRepo:    new(MockCacheRepoForOrchestrator),
		notifier:     new(MockNotifierForOrchestrator),
	}

	deps := &Dependencies{
		QuizRepo:        f.quizRepo,
		QuestionRepo:    f.questionRepo,
		LeaderboardRepo: f.boardRepo,
		CacheRepo:       f.cacheRepo,
		Broadcaster:     f.broadcaster,
		Notifier:        f.notifier,
		Clock:           f.clock,
		Config:          DefaultConfig(),
	}
	f.orchestrator = NewOrchestrator(deps.Config, deps, f.registry, NewRanker(f.boardRepo))
	return f
}

// expectQuizLoad настраивает моки на загрузку викторины с вопросами
func (f *orchestratorFixture) expectQuizLoad(quiz *entity.Quiz) {
	questions := quiz.Questions
	quiz.Questions = nil
	f.quizRepo.On("GetByID", quiz.ID).Return(quiz, nil)
	f.questionRepo.On("GetOrderedByQuizID", quiz.ID).Return(questions, nil)
}

func twoQuestionQuiz() *entity.Quiz {
	return &entity.Quiz{
		ID:              1,
		Title:           "Вечерняя викторина",
		Status:          entity.QuizStatusActive,
		QuestionTimeSec: 10,
		QuestionCount:   2,
		Questions: []entity.Question{
			{ID: 100, QuizID: 1, OrderIndex: 0, Text: "Вопрос 1", Options: entity.StringArray{"А", "Б"}, CorrectOption: 0, Marks: 5},
			{ID: 101, QuizID: 1, OrderIndex: 1, Text: "Вопрос 2", Options: entity.StringArray{"А", "Б"}, CorrectOption: 1, Marks: 5},
		},
	}
}

// ============================================================================
// Тесты Orchestrator
// ============================================================================

func TestOrchestrator_Run_EventOrder(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := twoQuestionQuiz()

	f.expectQuizLoad(quiz)
	f.quizRepo.On("UpdateStatus", uint(1), entity.QuizStatusArchived).Return(nil)
	f.boardRepo.On("ListByQuiz", uint(1)).Return([]entity.LeaderboardEntry{}, nil)
	f.boardRepo.On("TopN", uint(1), 10).Return([]entity.LeaderboardEntry{}, nil)
	f.cacheRepo.On("SCard", "quiz:1:participants").Return(int64(3), nil)
	f.notifier.On("NotifyQuizCompleted", mock.Anything, uint(1), "Вечерняя викторина", 3).Return(nil)

	// Act: виртуальные часы проходят весь таймлайн мгновенно
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert: полный порядок событий двухвопросной игры
	require.NoError(t, err)
	expected := []string{
		websocket.EventQuizCountdown,
		websocket.EventQuizPreload, // первый вопрос под конец отсчета
		websocket.EventQuizQuestion,
		websocket.EventQuizTimeout,
		websocket.EventQuizLeaderboard,
		websocket.EventQuizPreload, // второй вопрос во время показа лидеров
		websocket.EventQuizQuestion,
		websocket.EventQuizTimeout,
		websocket.EventQuizLeaderboard,
		websocket.EventQuizEnd,
	}
	assert.Equal(t, expected, f.broadcaster.Events(), "Порядок событий сессии нарушен")

	f.quizRepo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestOrchestrator_Run_EventPayloadFields(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := twoQuestionQuiz()

	f.expectQuizLoad(quiz)
	f.quizRepo.On("UpdateStatus", uint(1), entity.QuizStatusArchived).Return(nil)
	f.boardRepo.On("ListByQuiz", uint(1)).Return([]entity.LeaderboardEntry{}, nil)
	f.boardRepo.On("TopN", uint(1), 10).Return([]entity.LeaderboardEntry{}, nil)
	f.cacheRepo.On("SCard", "quiz:1:participants").Return(int64(0), nil)
	f.notifier.On("NotifyQuizCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert: клиентский протокол требует этих полей в нагрузках
	require.NoError(t, err)

	countdown := f.broadcaster.Payload(websocket.EventQuizCountdown, 0)
	require.NotNil(t, countdown)
	assert.NotEmpty(t, countdown["message"], "Отсчет должен содержать текст для участников")

	firstBoard := f.broadcaster.Payload(websocket.EventQuizLeaderboard, 0)
	secondBoard := f.broadcaster.Payload(websocket.EventQuizLeaderboard, 1)
	require.NotNil(t, firstBoard)
	require.NotNil(t, secondBoard)
	assert.Equal(t, 1, firstBoard["question_number"], "Таблица лидеров должна нести номер вопроса")
	assert.Equal(t, 2, secondBoard["question_number"])

	end := f.broadcaster.Payload(websocket.EventQuizEnd, 0)
	require.NotNil(t, end)
	assert.Equal(t, 2, end["total_questions"], "Финал должен нести общее число вопросов")
	assert.NotEmpty(t, end["message"])
}

func TestOrchestrator_Run_VirtualTimelineDuration(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := twoQuestionQuiz()
	start := f.clock.Now()

	f.expectQuizLoad(quiz)
	f.quizRepo.On("UpdateStatus", uint(1), entity.QuizStatusArchived).Return(nil)
	f.boardRepo.On("ListByQuiz", uint(1)).Return([]entity.LeaderboardEntry{}, nil)
	f.boardRepo.On("TopN", uint(1), 10).Return([]entity.LeaderboardEntry{}, nil)
	f.cacheRepo.On("SCard", "quiz:1:participants").Return(int64(0), nil)
	f.notifier.On("NotifyQuizCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert: отсчет 10с + 2 вопроса по 10с + 2 показа лидеров по 7с = 44с
	require.NoError(t, err)
	elapsed := f.clock.Now().Sub(start)
	assert.Equal(t, 44*time.Second, elapsed, "Виртуальный таймлайн сессии должен сойтись")
}

func TestOrchestrator_Run_RejectsSecondStart(t *testing.T) {
	// Arrange: сессия уже захвачена
	f := newOrchestratorFixture(t)
	session := f.registry.GetOrCreate(1)
	require.True(t, session.TryStart())

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert
	assert.ErrorIs(t, err, ErrAlreadyRunning, "Вторая сессия той же викторины должна быть отклонена")
	f.quizRepo.AssertNotCalled(t, "GetByID")
}

func TestOrchestrator_Run_NoQuestions(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := &entity.Quiz{ID: 1, Title: "Пустая", Status: entity.QuizStatusActive}
	f.quizRepo.On("GetByID", uint(1)).Return(quiz, nil)
	f.questionRepo.On("GetOrderedByQuizID", uint(1)).Return([]entity.Question{}, nil)

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Empty(t, f.broadcaster.Events(), "События не должны рассылаться без вопросов")
}

func TestOrchestrator_Run_CleanupOnFailure(t *testing.T) {
	// Arrange: загрузка викторины падает
	f := newOrchestratorFixture(t)
	f.quizRepo.On("GetByID", uint(1)).Return(nil, errors.New("database is down"))

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert: сессия снята с учета и викторину можно запустить снова
	require.Error(t, err)
	assert.Equal(t, 0, f.registry.Count(), "Сессия не должна зависать в реестре после ошибки")

	retry := f.registry.GetOrCreate(1)
	assert.True(t, retry.TryStart(), "После ошибки викторина должна быть доступна для перезапуска")
}

func TestOrchestrator_Run_CleanupAfterSuccess(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := twoQuestionQuiz()

	f.expectQuizLoad(quiz)
	f.quizRepo.On("UpdateStatus", uint(1), entity.QuizStatusArchived).Return(nil)
	f.boardRepo.On("ListByQuiz", uint(1)).Return([]entity.LeaderboardEntry{}, nil)
	f.boardRepo.On("TopN", uint(1), 10).Return([]entity.LeaderboardEntry{}, nil)
	f.cacheRepo.On("SCard", "quiz:1:participants").Return(int64(0), nil)
	f.notifier.On("NotifyQuizCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Act
	err := f.orchestrator.Run(context.Background(), 1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, f.registry.Count(), "Завершенная сессия должна быть удалена из реестра")
}

func TestOrchestrator_Run_CancelledContext(t *testing.T) {
	// Arrange
	f := newOrchestratorFixture(t)
	quiz := twoQuestionQuiz()
	f.expectQuizLoad(quiz)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	err := f.orchestrator.Run(ctx, 1)

	// Assert: сессия прерывается и не зависает в реестре
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.registry.Count())
	f.quizRepo.AssertNotCalled(t, "UpdateStatus")
}
