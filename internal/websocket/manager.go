package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Event — конверт всех сообщений протокола: тип и полезная нагрузка
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventHandler обрабатывает событие конкретного типа от клиента
type EventHandler func(client *Client, data json.RawMessage)

// Manager маршрутизирует входящие события по зарегистрированным
// обработчикам и предоставляет типизированную отправку событий
type Manager struct {
	hub      *Hub
	handlers map[string]EventHandler
	mu       sync.RWMutex
}

// NewManager создает менеджер событий поверх хаба
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:      hub,
		handlers: make(map[string]EventHandler),
	}
}

// RegisterHandler регистрирует обработчик для типа события
func (m *Manager) RegisterHandler(eventType string, handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[eventType] = handler
}

// HandleMessage разбирает входящее сообщение и вызывает обработчик.
// Используется как MessageHandler клиента.
func (m *Manager) HandleMessage(client *Client, message []byte) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		log.Printf("[Manager] Некорректное сообщение от UserID=%s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message", "malformed JSON message")
		return
	}
	if envelope.Type == "" {
		m.SendErrorToClient(client, "invalid_message", "missing event type")
		return
	}

	m.mu.RLock()
	handler, ok := m.handlers[envelope.Type]
	m.mu.RUnlock()

	if !ok {
		log.Printf("[Manager] Неизвестный тип события '%s' от UserID=%s", envelope.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_event", fmt.Sprintf("unsupported event type: %s", envelope.Type))
		return
	}
	handler(client, envelope.Data)
}

// BroadcastEvent отправляет событие всем подключенным клиентам
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	return m.hub.BroadcastJSON(Event{Type: eventType, Data: data})
}

// BroadcastEventToQuiz отправляет событие всем подписчикам викторины
func (m *Manager) BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}
	m.hub.BroadcastToQuiz(quizID, message)
	return nil
}

// SendEventToUser отправляет событие конкретному пользователю
func (m *Manager) SendEventToUser(userID string, eventType string, data interface{}) error {
	return m.hub.SendJSONToUser(userID, Event{Type: eventType, Data: data})
}

// SendErrorToClient отправляет клиенту событие об ошибке
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	payload, err := json.Marshal(Event{
		Type: EventServerError,
		Data: map[string]string{"code": code, "message": message},
	})
	if err != nil {
		return
	}
	client.enqueue(payload)
}

// SubscribeClientToQuiz подписывает клиента на комнату викторины
func (m *Manager) SubscribeClientToQuiz(client *Client, quizID uint) {
	m.hub.SubscribeToQuiz(client, quizID)
}

// GetSubscriberCount возвращает число подписчиков викторины
func (m *Manager) GetSubscriberCount(quizID uint) int {
	return m.hub.SubscriberCount(quizID)
}
