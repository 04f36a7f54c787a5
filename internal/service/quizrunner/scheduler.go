package quizrunner

import (
	"context"
	"errors"
	"log"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// Scheduler автоматически запускает черновики, у которых наступило
// запланированное время. Опрашивает БД по интервалу из конфига.
type Scheduler struct {
	config *Config
	deps   *Dependencies
	runner Runner
}

// NewScheduler создает планировщик автозапуска
func NewScheduler(config *Config, deps *Dependencies, runner Runner) *Scheduler {
	return &Scheduler{
		config: config,
		deps:   deps,
		runner: runner,
	}
}

// Start ведет цикл опроса до отмены контекста. Блокируется;
// вызывающий запускает его в отдельной горутине.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] Планировщик автозапуска стартовал, интервал опроса %v", s.config.SchedulerInterval)
	for {
		if err := s.deps.Clock.Sleep(ctx, s.config.SchedulerInterval); err != nil {
			log.Println("[Scheduler] Планировщик автозапуска остановлен")
			return
		}
		s.Tick(ctx)
	}
}

// Tick выполняет один проход: находит готовые черновики и запускает их
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.deps.QuizRepo.FindDueDrafts(s.deps.Clock.Now())
	if err != nil {
		log.Printf("[Scheduler] Ошибка поиска викторин для автозапуска: %v", err)
		return
	}

	for i := range due {
		s.startQuiz(ctx, &due[i])
	}
}

// startQuiz переводит черновик в активный статус и запускает сессию.
// Если запуск сорвался, статус откатывается в черновик, чтобы
// викторина не зависла активной без идущей сессии.
func (s *Scheduler) startQuiz(ctx context.Context, quiz *entity.Quiz) {
	err := s.deps.QuizRepo.TransitionStatus(quiz.ID, entity.QuizStatusDraft, entity.QuizStatusActive)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Викторину уже запустили вручную или параллельным проходом
			log.Printf("[Scheduler] Викторина #%d уже не черновик, пропускаю", quiz.ID)
			return
		}
		log.Printf("[Scheduler] Ошибка активации викторины #%d: %v", quiz.ID, err)
		return
	}

	log.Printf("[Scheduler] Автозапуск викторины #%d (%s)", quiz.ID, quiz.Title)

	broadcastErr := s.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizAutoStart, map[string]interface{}{
		"quiz_id": quiz.ID,
		"title":   quiz.Title,
		"message": "Quiz is starting now!",
	})
	if broadcastErr != nil {
		log.Printf("[Scheduler] Ошибка уведомления об автозапуске викторины #%d: %v", quiz.ID, broadcastErr)
	}

	go func() {
		if err := s.runner.Run(ctx, quiz.ID); err != nil {
			log.Printf("[Scheduler] Сессия викторины #%d завершилась с ошибкой: %v", quiz.ID, err)
			s.revertToDraft(quiz.ID)
		}
	}()
}

// revertToDraft откатывает активную викторину в черновик после
// неудачного запуска. Следующий проход планировщика попробует снова.
func (s *Scheduler) revertToDraft(quizID uint) {
	err := s.deps.QuizRepo.TransitionStatus(quizID, entity.QuizStatusActive, entity.QuizStatusDraft)
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		log.Printf("[Scheduler] Ошибка отката викторины #%d в черновик: %v", quizID, err)
	}
}
