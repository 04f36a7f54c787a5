package quizrunner

import (
	"context"
	"time"
)

// Clock абстрагирует время для оркестратора и планировщика.
// Тесты подставляют виртуальные часы и проходят весь таймлайн
// викторины без реального ожидания.
type Clock interface {
	Now() time.Time
	// Sleep ждет d или отмены контекста. Возвращает ctx.Err() при отмене.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewRealClock возвращает часы на основе системного времени
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
