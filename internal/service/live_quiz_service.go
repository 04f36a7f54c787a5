package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service/quizrunner"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// Время жизни набора участников в Redis после создания
const participantSetTTL = 24 * time.Hour

// LiveQuizService координирует живые сессии викторин: запуск,
// подключение участников, прием ответов и ресинхронизацию.
type LiveQuizService struct {
	// Компоненты движка
	registry     *quizrunner.Registry
	orchestrator quizrunner.Runner
	recorder     *quizrunner.Recorder
	ranker       *quizrunner.Ranker
	scheduler    *quizrunner.Scheduler

	// Репозитории для прямого доступа
	quizRepo        repository.QuizRepository
	leaderboardRepo repository.LeaderboardRepository
	cacheRepo       repository.CacheRepository
	broadcaster     quizrunner.Broadcaster

	// Контекст для управления жизненным циклом
	ctx    context.Context
	cancel context.CancelFunc
}

// NewLiveQuizService создает сервис живых викторин и собирает
// компоненты движка
func NewLiveQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
	leaderboardRepo repository.LeaderboardRepository,
	cacheRepo repository.CacheRepository,
	broadcaster quizrunner.Broadcaster,
	notifier quizrunner.CompletionNotifier,
	config *quizrunner.Config,
) *LiveQuizService {
	ctx, cancel := context.WithCancel(context.Background())

	if config == nil {
		config = quizrunner.DefaultConfig()
	}

	deps := &quizrunner.Dependencies{
		QuizRepo:        quizRepo,
		QuestionRepo:    questionRepo,
		ResponseRepo:    responseRepo,
		LeaderboardRepo: leaderboardRepo,
		CacheRepo:       cacheRepo,
		Broadcaster:     broadcaster,
		Notifier:        notifier,
		Clock:           quizrunner.NewRealClock(),
		Config:          config,
	}

	registry := quizrunner.NewRegistry()
	ranker := quizrunner.NewRanker(leaderboardRepo)
	orchestrator := quizrunner.NewOrchestrator(config, deps, registry, ranker)
	recorder := quizrunner.NewRecorder(deps)
	scheduler := quizrunner.NewScheduler(config, deps, orchestrator)

	s := &LiveQuizService{
		registry:        registry,
		orchestrator:    orchestrator,
		recorder:        recorder,
		ranker:          ranker,
		scheduler:       scheduler,
		quizRepo:        quizRepo,
		leaderboardRepo: leaderboardRepo,
		cacheRepo:       cacheRepo,
		broadcaster:     broadcaster,
		ctx:             ctx,
		cancel:          cancel,
	}

	// Планировщик автозапуска работает до Shutdown
	go scheduler.Start(ctx)

	log.Println("[LiveQuizService] Сервис живых викторин инициализирован")
	return s
}

// StartQuiz запускает викторину вручную: черновик переводится в
// активный статус и стартует сессия. Гонка с планировщиком решается
// атомарным переходом статуса — победитель ровно один.
func (s *LiveQuizService) StartQuiz(quizID uint) error {
	if err := s.quizRepo.TransitionStatus(quizID, entity.QuizStatusDraft, entity.QuizStatusActive); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("quiz #%d is not a draft: %w", quizID, apperrors.ErrConflict)
		}
		return fmt.Errorf("activate quiz #%d: %w", quizID, err)
	}

	log.Printf("[LiveQuizService] Ручной запуск викторины #%d", quizID)

	go func() {
		if err := s.orchestrator.Run(s.ctx, quizID); err != nil {
			log.Printf("[LiveQuizService] Сессия викторины #%d завершилась с ошибкой: %v", quizID, err)
			// Откатываем в черновик, чтобы викторина не зависла
			// активной без идущей сессии
			revertErr := s.quizRepo.TransitionStatus(quizID, entity.QuizStatusActive, entity.QuizStatusDraft)
			if revertErr != nil && !errors.Is(revertErr, apperrors.ErrConflict) {
				log.Printf("[LiveQuizService] Ошибка отката викторины #%d в черновик: %v", quizID, revertErr)
			}
		}
	}()
	return nil
}

// Join регистрирует участника в викторине и возвращает снимок
// текущего состояния для ресинхронизации подключившегося по ходу игры
func (s *LiveQuizService) Join(userID uint, username string, quizID uint) (*quizrunner.Snapshot, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, fmt.Errorf("quiz #%d: %w", quizID, err)
	}
	if quiz.IsArchived() {
		return nil, fmt.Errorf("quiz #%d has already ended: %w", quizID, apperrors.ErrValidation)
	}

	// Участник попадает в набор даже при обрыве соединения до конца
	// игры: финальная статистика считает всех, кто заходил
	key := participantsKey(quizID)
	if err := s.cacheRepo.SAdd(key, fmt.Sprint(userID)); err != nil {
		log.Printf("[LiveQuizService] Ошибка записи участника #%d викторины #%d: %v", userID, quizID, err)
	} else if err := s.cacheRepo.Expire(key, participantSetTTL); err != nil {
		log.Printf("[LiveQuizService] Ошибка установки TTL набора участников викторины #%d: %v", quizID, err)
	}

	// Рассылка уходит текущим подписчикам комнаты: обработчик подписывает
	// подключившегося после Join, поэтому сам он это событие не получает
	if err := s.broadcaster.BroadcastEventToQuiz(quizID, websocket.EventParticipantJoined, map[string]interface{}{
		"quiz_id":           quizID,
		"user_id":           userID,
		"username":          username,
		"participant_count": s.ParticipantCount(quizID),
	}); err != nil {
		log.Printf("[LiveQuizService] Ошибка уведомления о подключении участника #%d: %v", userID, err)
	}

	snapshot := s.snapshotFor(quiz)
	return &snapshot, nil
}

// SubmitAnswer принимает ответ участника на текущий вопрос сессии
func (s *LiveQuizService) SubmitAnswer(userID uint, username string, quizID, questionID uint, selectedOption int) (*quizrunner.AnswerResult, error) {
	session, ok := s.registry.Get(quizID)
	if !ok || !session.IsRunning() {
		return nil, quizrunner.ErrQuestionClosed
	}
	return s.recorder.Record(s.ctx, session, userID, username, questionID, selectedOption)
}

// GetActiveQuiz возвращает идущую викторину, если она есть
func (s *LiveQuizService) GetActiveQuiz() (*entity.Quiz, error) {
	return s.quizRepo.GetActive()
}

// GetCurrentState возвращает состояние викторины для ресинхронизации
func (s *LiveQuizService) GetCurrentState(quizID uint) (*quizrunner.Snapshot, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, fmt.Errorf("quiz #%d: %w", quizID, err)
	}
	snapshot := s.snapshotFor(quiz)
	return &snapshot, nil
}

// snapshotFor собирает снимок состояния: живая сессия дает полный
// снимок фазы, для остальных статусов снимок синтезируется из БД
func (s *LiveQuizService) snapshotFor(quiz *entity.Quiz) quizrunner.Snapshot {
	if session, ok := s.registry.Get(quiz.ID); ok && session.IsRunning() {
		return session.Snapshot(time.Now())
	}

	snapshot := quizrunner.Snapshot{QuizID: quiz.ID}
	switch {
	case quiz.IsArchived():
		snapshot.Phase = quizrunner.PhaseEnded
	default:
		snapshot.Phase = quizrunner.PhaseIdle
	}
	return snapshot
}

// GetLeaderboard возвращает таблицу лидеров викторины с актуальными
// рангами. limit <= 0 означает всю таблицу.
func (s *LiveQuizService) GetLeaderboard(quizID uint, limit int) ([]entity.LeaderboardEntry, error) {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, fmt.Errorf("quiz #%d: %w", quizID, err)
	}
	if limit > 0 {
		return s.leaderboardRepo.TopN(quizID, limit)
	}
	return s.leaderboardRepo.ListByQuiz(quizID)
}

// ParticipantCount возвращает число участников викторины
func (s *LiveQuizService) ParticipantCount(quizID uint) int {
	count, err := s.cacheRepo.SCard(participantsKey(quizID))
	if err != nil {
		log.Printf("[LiveQuizService] Ошибка чтения числа участников викторины #%d: %v", quizID, err)
		return 0
	}
	return int(count)
}

// Shutdown корректно останавливает сервис: планировщик и идущие
// сессии завершаются через отмену контекста
func (s *LiveQuizService) Shutdown() {
	log.Println("[LiveQuizService] Завершение работы сервиса живых викторин...")
	s.cancel()
	log.Println("[LiveQuizService] Сервис живых викторин остановлен")
}

// participantsKey — ключ Redis-набора участников викторины
func participantsKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d:participants", quizID)
}
