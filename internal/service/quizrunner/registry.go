package quizrunner

import (
	"sync"
)

// Registry хранит живые сессии по ID викторины. Повторный запрос
// той же викторины возвращает ту же сессию, что исключает
// параллельные запуски одной игры.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
}

// NewRegistry создает пустой реестр сессий
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uint]*Session),
	}
}

// GetOrCreate возвращает сессию викторины, создавая ее при первом
// обращении. Идемпотентен при конкурентных вызовах.
func (r *Registry) GetOrCreate(quizID uint) *Session {
	r.mu.RLock()
	session, ok := r.sessions[quizID]
	r.mu.RUnlock()
	if ok {
		return session
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[quizID]; ok {
		return session
	}
	session = NewSession(quizID)
	r.sessions[quizID] = session
	return session
}

// Get возвращает сессию викторины, если она существует
func (r *Registry) Get(quizID uint) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[quizID]
	return session, ok
}

// Remove удаляет сессию из реестра
func (r *Registry) Remove(quizID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, quizID)
}

// Count возвращает количество живых сессий
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
