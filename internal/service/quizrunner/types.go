package quizrunner

import (
	"context"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// Config содержит настройки всех компонентов движка викторин
type Config struct {
	// Таймауты и интервалы фаз
	CountdownSeconds         int // Продолжительность обратного отсчета перед первым вопросом
	LeaderboardSeconds       int // Продолжительность показа таблицы лидеров между вопросами
	PreloadLeadSeconds       int // За сколько секунд до конца отсчета рассылать предзагрузку первого вопроса
	LeaderboardPreloadOffset int // Через сколько секунд после начала показа лидеров рассылать предзагрузку следующего вопроса

	// Таблица лидеров
	TopN int // Сколько позиций рассылать в событии quiz:leaderboard

	// Планировщик автозапуска
	SchedulerInterval time.Duration // Интервал опроса черновиков, готовых к запуску
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CountdownSeconds:         10,
		LeaderboardSeconds:       7,
		PreloadLeadSeconds:       3,
		LeaderboardPreloadOffset: 2,
		TopN:                     10,
		SchedulerInterval:        30 * time.Second,
	}
}

// Broadcaster рассылает события участникам викторины.
// Выделен в интерфейс, чтобы тесты оркестратора могли
// записывать события вместо реальной отправки по WebSocket.
type Broadcaster interface {
	BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error
	SendEventToUser(userID string, eventType string, data interface{}) error
}

// Runner запускает полный жизненный цикл сессии викторины.
// Планировщик зависит от интерфейса, а не от оркестратора напрямую.
type Runner interface {
	Run(ctx context.Context, quizID uint) error
}

// CompletionNotifier уведомляет о завершении викторины
type CompletionNotifier interface {
	NotifyQuizCompleted(ctx context.Context, quizID uint, quizTitle string, participants int) error
}

// Dependencies содержит зависимости компонентов движка
type Dependencies struct {
	QuizRepo        repository.QuizRepository
	QuestionRepo    repository.QuestionRepository
	ResponseRepo    repository.ResponseRepository
	LeaderboardRepo repository.LeaderboardRepository
	CacheRepo       repository.CacheRepository
	Broadcaster     Broadcaster
	Notifier        CompletionNotifier
	Clock           Clock
	Config          *Config
}
