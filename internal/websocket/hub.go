package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub управляет всеми подключенными клиентами и комнатами викторин.
// Один процесс — один хаб: координация сессий между инстансами не
// поддерживается, источником правды для комнаты является этот процесс.
type Hub struct {
	// Все подключенные клиенты
	clients map[*Client]bool

	// Клиенты по ID пользователя (один пользователь может иметь
	// несколько соединений, например вкладки браузера)
	userClients map[string]map[*Client]bool

	// Комнаты викторин: quizID → подписанные клиенты
	quizRooms map[uint]map[*Client]bool

	// Регистрация и отписка клиентов
	register   chan *Client
	unregister chan *Client

	// Широковещательные сообщения всем клиентам
	broadcast chan []byte

	// Сигнал завершения работы
	done chan struct{}

	mu sync.RWMutex
}

// Проверка реализации интерфейса на этапе компиляции
var _ HubInterface = (*Hub)(nil)

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		quizRooms:   make(map[uint]map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		broadcast:   make(chan []byte, 256),
		done:        make(chan struct{}),
	}
}

// Run запускает основной цикл обработки регистраций и рассылок
func (h *Hub) Run() {
	log.Println("[Hub] Запуск основного цикла хаба")
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case message := <-h.broadcast:
			h.broadcastBytes(message)

		case <-h.done:
			log.Println("[Hub] Основной цикл хаба остановлен")
			return
		}
	}
}

// RegisterClient ставит клиента в очередь на регистрацию
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient ставит клиента в очередь на отписку
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true
	total := len(h.clients)
	h.mu.Unlock()

	// Сигнализируем клиенту о завершении регистрации
	select {
	case client.registrationComplete <- struct{}{}:
	default:
	}

	log.Printf("[Hub] Клиент зарегистрирован: UserID=%s, ConnID=%s, всего клиентов: %d",
		client.UserID, client.ConnectionID, total)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if conns, ok := h.userClients[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.UserID)
		}
	}
	if quizID := client.GetQuizID(); quizID != 0 {
		h.removeFromRoom(client, quizID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	client.CloseSend()
	log.Printf("[Hub] Клиент отписан: UserID=%s, ConnID=%s, всего клиентов: %d",
		client.UserID, client.ConnectionID, total)
}

// SubscribeToQuiz подписывает клиента на комнату викторины.
// Клиент может состоять только в одной комнате: предыдущая подписка снимается.
func (h *Hub) SubscribeToQuiz(client *Client, quizID uint) {
	h.mu.Lock()
	if prev := client.GetQuizID(); prev != 0 && prev != quizID {
		h.removeFromRoom(client, prev)
	}
	if _, ok := h.quizRooms[quizID]; !ok {
		h.quizRooms[quizID] = make(map[*Client]bool)
	}
	h.quizRooms[quizID][client] = true
	count := len(h.quizRooms[quizID])
	h.mu.Unlock()

	client.SetQuizID(quizID)
	log.Printf("[Hub] Клиент UserID=%s подписан на викторину #%d (в комнате: %d)",
		client.UserID, quizID, count)
}

// UnsubscribeFromQuiz отписывает клиента от его текущей комнаты
func (h *Hub) UnsubscribeFromQuiz(client *Client) {
	quizID := client.GetQuizID()
	if quizID == 0 {
		return
	}
	h.mu.Lock()
	h.removeFromRoom(client, quizID)
	h.mu.Unlock()
	client.ClearQuizID()
}

// removeFromRoom удаляет клиента из комнаты. Вызывается под h.mu.
func (h *Hub) removeFromRoom(client *Client, quizID uint) {
	if room, ok := h.quizRooms[quizID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.quizRooms, quizID)
		}
	}
}

// BroadcastToQuiz отправляет сообщение всем подписчикам комнаты.
// Переполненный буфер клиента не блокирует рассылку остальным.
func (h *Hub) BroadcastToQuiz(quizID uint, message []byte) {
	h.mu.RLock()
	room := h.quizRooms[quizID]
	recipients := make([]*Client, 0, len(room))
	for client := range room {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, client := range recipients {
		if !client.enqueue(message) {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("[Hub] WARNING: Сообщение для викторины #%d не доставлено %d из %d клиентов (переполнение буфера)",
			quizID, dropped, len(recipients))
	}
}

// Broadcast ставит сообщение в очередь рассылки всем клиентам
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("[Hub] WARNING: Канал broadcast переполнен, сообщение отброшено")
	}
}

func (h *Hub) broadcastBytes(message []byte) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.enqueue(message)
	}
}

// BroadcastJSON отправляет структуру JSON всем клиентам
func (h *Hub) BroadcastJSON(v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(message)
	return nil
}

// SendToUser отправляет байтовое сообщение всем соединениям пользователя
func (h *Hub) SendToUser(userID string, message []byte) bool {
	h.mu.RLock()
	conns := h.userClients[userID]
	recipients := make([]*Client, 0, len(conns))
	for client := range conns {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	sent := false
	for _, client := range recipients {
		if client.enqueue(message) {
			sent = true
		}
	}
	return sent
}

// SendJSONToUser отправляет структуру JSON конкретному пользователю
func (h *Hub) SendJSONToUser(userID string, v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.SendToUser(userID, message)
	return nil
}

// SubscriberCount возвращает количество подписчиков комнаты викторины
func (h *Hub) SubscriberCount(quizID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.quizRooms[quizID])
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close останавливает хаб и закрывает все клиентские соединения
func (h *Hub) Close() {
	close(h.done)

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
	h.quizRooms = make(map[uint]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.CloseSend()
	}
	log.Printf("[Hub] Хаб закрыт, отключено клиентов: %d", len(clients))
}
