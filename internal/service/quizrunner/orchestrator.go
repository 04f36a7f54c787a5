package quizrunner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

var (
	// ErrAlreadyRunning возвращается при попытке запустить викторину,
	// сессия которой уже идет
	ErrAlreadyRunning = errors.New("quiz session is already running")

	// ErrNoQuestions возвращается при запуске викторины без вопросов
	ErrNoQuestions = errors.New("quiz has no questions")
)

// Orchestrator ведет сессию викторины через все фазы:
// отсчет, вопросы с окнами приема ответов, таблицы лидеров, финал.
type Orchestrator struct {
	config   *Config
	deps     *Dependencies
	registry *Registry
	ranker   *Ranker
}

// Проверка реализации интерфейса на этапе компиляции
var _ Runner = (*Orchestrator)(nil)

// NewOrchestrator создает оркестратор сессий
func NewOrchestrator(config *Config, deps *Dependencies, registry *Registry, ranker *Ranker) *Orchestrator {
	return &Orchestrator{
		config:   config,
		deps:     deps,
		registry: registry,
		ranker:   ranker,
	}
}

// Run выполняет полный жизненный цикл викторины. Блокируется до
// завершения игры; вызывающий запускает его в отдельной горутине.
// Повторный вызов для той же викторины вернет ErrAlreadyRunning.
func (o *Orchestrator) Run(ctx context.Context, quizID uint) error {
	session := o.registry.GetOrCreate(quizID)
	if !session.TryStart() {
		return ErrAlreadyRunning
	}

	// Сессия всегда снимается с учета: и при штатном финале,
	// и при ошибке на любой фазе. Иначе викторину нельзя перезапустить.
	defer func() {
		session.Finish()
		o.registry.Remove(quizID)
	}()

	quiz, err := o.deps.QuizRepo.GetByID(quizID)
	if err != nil {
		return fmt.Errorf("load quiz #%d: %w", quizID, err)
	}

	// Вопросы загружаются отдельно в порядке показа (order_index)
	questions, err := o.deps.QuestionRepo.GetOrderedByQuizID(quizID)
	if err != nil {
		return fmt.Errorf("load questions of quiz #%d: %w", quizID, err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	quiz.Questions = questions
	session.SetQuiz(quiz)

	log.Printf("[Orchestrator] Викторина #%d запущена: %d вопросов, %d сек. на вопрос",
		quiz.ID, len(quiz.Questions), quiz.QuestionTimeSec)

	if err := o.runCountdown(ctx, session, quiz); err != nil {
		return err
	}

	for i := range quiz.Questions {
		if err := o.runQuestion(ctx, session, quiz, i); err != nil {
			return err
		}
		if err := o.runLeaderboard(ctx, session, quiz, i); err != nil {
			return err
		}
	}

	return o.finishQuiz(ctx, session, quiz)
}

// runCountdown проводит обратный отсчет перед первым вопросом.
// Незадолго до конца отсчета рассылается предзагрузка первого вопроса.
func (o *Orchestrator) runCountdown(ctx context.Context, session *Session, quiz *entity.Quiz) error {
	now := o.deps.Clock.Now()
	countdown := time.Duration(o.config.CountdownSeconds) * time.Second
	session.SetPhase(PhaseCountdown, now.Add(countdown))

	err := o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizCountdown, map[string]interface{}{
		"quiz_id":        quiz.ID,
		"title":          quiz.Title,
		"question_count": len(quiz.Questions),
		"seconds_left":   o.config.CountdownSeconds,
		"message":        "Quiz is starting soon!",
	})
	if err != nil {
		return fmt.Errorf("broadcast countdown for quiz #%d: %w", quiz.ID, err)
	}

	lead := time.Duration(o.config.PreloadLeadSeconds) * time.Second
	if lead > countdown {
		lead = countdown
	}
	if err := o.deps.Clock.Sleep(ctx, countdown-lead); err != nil {
		return err
	}

	o.broadcastPreload(quiz, 0)

	return o.deps.Clock.Sleep(ctx, lead)
}

// runQuestion показывает вопрос idx, держит окно приема ответов
// открытым на время вопроса и закрывает его событием таймаута
func (o *Orchestrator) runQuestion(ctx context.Context, session *Session, quiz *entity.Quiz, idx int) error {
	question := &quiz.Questions[idx]
	number := idx + 1

	openedAt := o.deps.Clock.Now()
	deadline := openedAt.Add(time.Duration(quiz.QuestionTimeSec) * time.Second)
	session.OpenQuestion(question, number, openedAt, deadline)

	err := o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizQuestion, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"question_id":     question.ID,
		"question_number": number,
		"total_questions": len(quiz.Questions),
		"text":            question.Text,
		"options":         question.Options,
		"image_url":       question.ImageURL,
		"marks":           question.Marks,
		"time_limit_sec":  quiz.QuestionTimeSec,
	})
	if err != nil {
		return fmt.Errorf("broadcast question #%d of quiz #%d: %w", number, quiz.ID, err)
	}
	log.Printf("[Orchestrator] Викторина #%d: вопрос %d/%d показан", quiz.ID, number, len(quiz.Questions))

	if err := o.deps.Clock.Sleep(ctx, time.Duration(quiz.QuestionTimeSec)*time.Second); err != nil {
		return err
	}

	// Окно закрывается до рассылки таймаута: ответ, пришедший после
	// события, уже не может быть принят
	session.CloseQuestion()

	err = o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizTimeout, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"question_id":     question.ID,
		"question_number": number,
		"correct_option":  question.CorrectOption,
	})
	if err != nil {
		return fmt.Errorf("broadcast timeout for question #%d of quiz #%d: %w", number, quiz.ID, err)
	}
	return nil
}

// runLeaderboard пересчитывает ранги и показывает промежуточную
// таблицу лидеров после вопроса idx. Во время показа рассылается
// предзагрузка следующего вопроса, если он есть.
func (o *Orchestrator) runLeaderboard(ctx context.Context, session *Session, quiz *entity.Quiz, idx int) error {
	number := idx + 1

	if err := o.ranker.RecomputeRanks(ctx, quiz.ID); err != nil {
		// Показ продолжается со старыми рангами: пересчет повторится
		// после следующего вопроса
		log.Printf("[Orchestrator] Ошибка пересчета рангов викторины #%d: %v", quiz.ID, err)
	}

	top, err := o.ranker.TopN(ctx, quiz.ID, o.config.TopN)
	if err != nil {
		return fmt.Errorf("load leaderboard for quiz #%d: %w", quiz.ID, err)
	}

	now := o.deps.Clock.Now()
	showFor := time.Duration(o.config.LeaderboardSeconds) * time.Second
	session.SetPhase(PhaseLeaderboard, now.Add(showFor))

	err = o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizLeaderboard, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"question_number": number,
		"label":           fmt.Sprintf("Top Performers after Question %d", number),
		"entries":         top,
	})
	if err != nil {
		return fmt.Errorf("broadcast leaderboard for quiz #%d: %w", quiz.ID, err)
	}

	hasNext := idx+1 < len(quiz.Questions)
	if !hasNext {
		return o.deps.Clock.Sleep(ctx, showFor)
	}

	offset := time.Duration(o.config.LeaderboardPreloadOffset) * time.Second
	if offset > showFor {
		offset = showFor
	}
	if err := o.deps.Clock.Sleep(ctx, offset); err != nil {
		return err
	}
	o.broadcastPreload(quiz, idx+1)
	return o.deps.Clock.Sleep(ctx, showFor-offset)
}

// broadcastPreload рассылает предзагрузку вопроса idx: клиенты
// заранее получают медиа и варианты, но без правильного ответа
func (o *Orchestrator) broadcastPreload(quiz *entity.Quiz, idx int) {
	question := &quiz.Questions[idx]
	err := o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizPreload, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"question_id":     question.ID,
		"question_number": idx + 1,
		"options_count":   question.OptionsCount(),
		"image_url":       question.ImageURL,
	})
	if err != nil {
		// Предзагрузка — оптимизация: вопрос все равно будет показан
		log.Printf("[Orchestrator] Ошибка предзагрузки вопроса %d викторины #%d: %v", idx+1, quiz.ID, err)
	}
}

// finishQuiz завершает сессию: финальные ранги, событие финала,
// архивация викторины и уведомление о завершении
func (o *Orchestrator) finishQuiz(ctx context.Context, session *Session, quiz *entity.Quiz) error {
	if err := o.ranker.RecomputeRanks(ctx, quiz.ID); err != nil {
		log.Printf("[Orchestrator] Ошибка финального пересчета рангов викторины #%d: %v", quiz.ID, err)
	}

	winners, err := o.ranker.TopN(ctx, quiz.ID, o.config.TopN)
	if err != nil {
		return fmt.Errorf("load final leaderboard for quiz #%d: %w", quiz.ID, err)
	}

	session.SetPhase(PhaseEnded, time.Time{})

	err = o.deps.Broadcaster.BroadcastEventToQuiz(quiz.ID, websocket.EventQuizEnd, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"title":           quiz.Title,
		"total_questions": len(quiz.Questions),
		"message":         "Quiz has ended. Thanks for playing!",
		"winners":         winners,
	})
	if err != nil {
		return fmt.Errorf("broadcast end of quiz #%d: %w", quiz.ID, err)
	}

	if err := o.deps.QuizRepo.UpdateStatus(quiz.ID, entity.QuizStatusArchived); err != nil {
		log.Printf("[Orchestrator] Ошибка архивации викторины #%d: %v", quiz.ID, err)
	}

	participants := o.participantCount(quiz.ID)
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyQuizCompleted(ctx, quiz.ID, quiz.Title, participants); err != nil {
			log.Printf("[Orchestrator] Ошибка уведомления о завершении викторины #%d: %v", quiz.ID, err)
		}
	}

	log.Printf("[Orchestrator] Викторина #%d завершена: участников %d", quiz.ID, participants)
	return nil
}

// participantCount читает число участников из набора в кеше
func (o *Orchestrator) participantCount(quizID uint) int {
	count, err := o.deps.CacheRepo.SCard(fmt.Sprintf("quiz:%d:participants", quizID))
	if err != nil {
		log.Printf("[Orchestrator] Ошибка чтения числа участников викторины #%d: %v", quizID, err)
		return 0
	}
	return int(count)
}
