package websocket

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время на запись сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 30 * time.Second

	// Период отправки ping (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 4096

	// Размер буфера исходящих сообщений клиента
	sendBufferSize = 64
)

// MessageHandler обрабатывает входящее сообщение клиента
type MessageHandler func(client *Client, message []byte)

// Client представляет одно WebSocket-соединение участника
type Client struct {
	// ID пользователя (несколько соединений могут иметь один UserID)
	UserID string

	// Отображаемое имя участника
	Username string

	// Уникальный ID этого соединения
	ConnectionID string

	conn *websocket.Conn
	hub  *Hub

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// Сигнал о завершении регистрации в хабе
	registrationComplete chan struct{}

	// ID викторины, на которую подписан клиент (0 — нет подписки)
	quizID atomic.Uint64

	messageHandler MessageHandler

	closeOnce sync.Once
}

// NewClient создает клиента для установленного соединения
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		UserID:               userID,
		Username:             username,
		ConnectionID:         uuid.NewString(),
		conn:                 conn,
		hub:                  hub,
		send:                 make(chan []byte, sendBufferSize),
		registrationComplete: make(chan struct{}, 1),
	}
}

// SetMessageHandler устанавливает обработчик входящих сообщений.
// Должен вызываться до StartPumps.
func (c *Client) SetMessageHandler(handler MessageHandler) {
	c.messageHandler = handler
}

// StartPumps запускает горутины чтения и записи
func (c *Client) StartPumps() {
	go c.writePump()
	go c.readPump()
}

// WaitForRegistration блокируется до завершения регистрации в хабе
// или истечения таймаута
func (c *Client) WaitForRegistration(timeout time.Duration) bool {
	select {
	case <-c.registrationComplete:
		return true
	case <-time.After(timeout):
		return false
	}
}

// GetQuizID возвращает ID викторины клиента (0 — не подписан)
func (c *Client) GetQuizID() uint {
	return uint(c.quizID.Load())
}

// SetQuizID запоминает подписку клиента
func (c *Client) SetQuizID(quizID uint) {
	c.quizID.Store(uint64(quizID))
}

// ClearQuizID сбрасывает подписку клиента
func (c *Client) ClearQuizID() {
	c.quizID.Store(0)
}

// enqueue ставит сообщение в буфер клиента без блокировки.
// Возвращает false при переполнении буфера или закрытом канале.
func (c *Client) enqueue(message []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			// Отправка в закрытый канал: клиент уже отключен
			ok = false
		}
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// CloseSend закрывает канал исходящих сообщений. Идемпотентен.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump читает сообщения из соединения и передает их обработчику.
// Завершение приводит к отписке клиента от хаба.
func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Client] Ошибка чтения для UserID=%s: %v", c.UserID, err)
			}
			break
		}
		if c.messageHandler != nil {
			c.safeHandleMessage(message)
		}
	}
}

// safeHandleMessage вызывает обработчик с защитой от паники:
// одно некорректное сообщение не должно ронять соединение
func (c *Client) safeHandleMessage(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Client] PANIC в обработчике сообщения UserID=%s: %v\n%s",
				c.UserID, r, debug.Stack())
		}
	}()
	c.messageHandler(c, message)
}

// writePump пишет сообщения из буфера в соединение и шлет ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Ошибка записи для UserID=%s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
