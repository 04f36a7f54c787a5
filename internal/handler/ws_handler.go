package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/service/quizrunner"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения участников
type WSHandler struct {
	wsHub          *websocket.Hub
	wsManager      *websocket.Manager
	liveQuiz       *service.LiveQuizService
	allowedOrigins []string
}

// NewWSHandler создает обработчик WebSocket
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	liveQuiz *service.LiveQuizService,
	allowedOrigins []string,
) *WSHandler {
	handler := &WSHandler{
		wsHub:          wsHub,
		wsManager:      wsManager,
		liveQuiz:       liveQuiz,
		allowedOrigins: allowedOrigins,
	}

	// Обработчики сообщений регистрируются один раз при создании
	handler.registerMessageHandlers()

	return handler
}

func (h *WSHandler) upgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Пустой Origin — не браузерный клиент (мобильное
			// приложение, curl). Разрешаем такие подключения.
			if origin == "" {
				return true
			}

			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
			return false
		},
		EnableCompression: true,
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация завершается выше по цепочке: обработчик принимает
// готовую идентичность участника из query-параметров.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID := c.Query("user_id")
	username := c.Query("username")

	if userID == "" || username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and username query parameters are required"})
		return
	}
	if _, err := strconv.ParseUint(userID, 10, 32); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения: %v", err)
		return
	}

	client := websocket.NewClient(h.wsHub, conn, userID, username)
	client.SetMessageHandler(h.wsManager.HandleMessage)

	h.wsHub.RegisterClient(client)
	client.StartPumps()

	if !client.WaitForRegistration(5 * time.Second) {
		log.Printf("[WSHandler] WARNING: Регистрация клиента UserID=%s не подтверждена", userID)
	}
	log.Printf("[WSHandler] Соединение установлено: UserID=%s, ConnID=%s", userID, client.ConnectionID)
}

// registerMessageHandlers регистрирует обработчики входящих событий
func (h *WSHandler) registerMessageHandlers() {
	// Подключение участника к викторине
	h.wsManager.RegisterHandler(websocket.EventUserJoin, func(client *websocket.Client, data json.RawMessage) {
		var joinEvent struct {
			QuizID uint `json:"quiz_id"`
		}
		if err := json.Unmarshal(data, &joinEvent); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга user:join: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse user:join event")
			return
		}
		if joinEvent.QuizID == 0 {
			h.wsManager.SendErrorToClient(client, "invalid_format", "quiz_id is required")
			return
		}

		userID, ok := h.parseUserID(client)
		if !ok {
			return
		}

		// Регистрация в сервисе идет до подписки на комнату: событие
		// participant_joined получают только уже подписанные участники
		snapshot, err := h.liveQuiz.Join(userID, client.Username, joinEvent.QuizID)
		if err != nil {
			log.Printf("[WSHandler] Ошибка подключения User %s к Quiz %d: %v", client.UserID, joinEvent.QuizID, err)
			h.wsManager.SendErrorToClient(client, "join_error", err.Error())
			return
		}

		h.wsManager.SubscribeClientToQuiz(client, joinEvent.QuizID)

		// Подключившийся по ходу игры сразу получает текущий вопрос,
		// остальные фазы догонит следующая рассылка
		h.resyncClient(client, snapshot)
	})

	// Ответ участника на текущий вопрос
	h.wsManager.RegisterHandler(websocket.EventUserAnswer, func(client *websocket.Client, data json.RawMessage) {
		var answerEvent struct {
			QuizID         uint `json:"quiz_id"`
			QuestionID     uint `json:"question_id"`
			SelectedOption int  `json:"selected_option"`
		}
		if err := json.Unmarshal(data, &answerEvent); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга user:answer: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse user:answer event")
			return
		}

		userID, ok := h.parseUserID(client)
		if !ok {
			return
		}

		quizID := answerEvent.QuizID
		if quizID == 0 {
			quizID = client.GetQuizID()
		}

		result, err := h.liveQuiz.SubmitAnswer(userID, client.Username, quizID, answerEvent.QuestionID, answerEvent.SelectedOption)
		if err != nil {
			log.Printf("[WSHandler] Ответ пользователя %s на вопрос %d отклонен: %v", client.UserID, answerEvent.QuestionID, err)
			h.wsManager.SendErrorToClient(client, answerErrorCode(err), err.Error())
			return
		}

		// Персональный результат: правильность и очки без раскрытия
		// правильного варианта до таймаута
		if err := h.wsManager.SendEventToUser(client.UserID, "user:answer_result", result); err != nil {
			log.Printf("[WSHandler] WARNING: Ошибка отправки результата пользователю %s: %v", client.UserID, err)
		}
	})

	// Проверка соединения
	h.wsManager.RegisterHandler(websocket.EventUserHeartbeat, func(client *websocket.Client, data json.RawMessage) {
		heartbeatResponse := map[string]interface{}{
			"timestamp": time.Now().UnixMilli(),
		}
		if err := h.wsManager.SendEventToUser(client.UserID, websocket.EventServerHeartbeat, heartbeatResponse); err != nil {
			log.Printf("[WSHandler] WARNING: Ошибка отправки server:heartbeat пользователю %s: %v", client.UserID, err)
		}
	})
}

// resyncClient досылает опоздавшему текущий вопрос, если фаза вопроса
// еще идет. Правильный вариант в полезную нагрузку не попадает.
func (h *WSHandler) resyncClient(client *websocket.Client, snapshot *quizrunner.Snapshot) {
	if snapshot == nil || snapshot.Phase != quizrunner.PhaseQuestion || snapshot.Question == nil {
		return
	}
	question := snapshot.Question
	err := h.wsManager.SendEventToUser(client.UserID, websocket.EventQuizQuestion, map[string]interface{}{
		"quiz_id":           snapshot.QuizID,
		"question_id":       question.ID,
		"question_number":   snapshot.QuestionNumber,
		"total_questions":   snapshot.TotalQuestions,
		"text":              question.Text,
		"options":           question.Options,
		"image_url":         question.ImageURL,
		"marks":             question.Marks,
		"seconds_remaining": snapshot.SecondsRemaining,
		"resync":            true,
	})
	if err != nil {
		log.Printf("[WSHandler] WARNING: Ошибка ресинхронизации пользователя %s: %v", client.UserID, err)
	}
}

// answerErrorCode переводит ошибку обработки ответа в код для клиента
func answerErrorCode(err error) string {
	switch {
	case errors.Is(err, quizrunner.ErrQuestionClosed):
		return "question_closed"
	case errors.Is(err, quizrunner.ErrDuplicateAnswer):
		return "duplicate_answer"
	case errors.Is(err, quizrunner.ErrInvalidOption):
		return "invalid_option"
	default:
		return "answer_error"
	}
}

// parseUserID извлекает и парсит UserID из клиента
func (h *WSHandler) parseUserID(client *websocket.Client) (uint, bool) {
	userIDUint64, err := strconv.ParseUint(client.UserID, 10, 32)
	if err != nil {
		log.Printf("[WSHandler] CRITICAL: Ошибка конвертации UserID '%s' в uint: %v", client.UserID, err)
		h.wsManager.SendErrorToClient(client, "internal_error", fmt.Sprintf("Invalid user ID format: %s", client.UserID))
		return 0, false
	}
	return uint(userIDUint64), true
}
