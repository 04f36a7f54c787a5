package websocket

// HubInterface определяет возможности хаба для Manager.
// Это каноническое определение интерфейса хаба.
type HubInterface interface {
	// BroadcastJSON отправляет структуру JSON всем клиентам
	BroadcastJSON(v interface{}) error

	// SendJSONToUser отправляет структуру JSON конкретному пользователю
	SendJSONToUser(userID string, v interface{}) error

	// SendToUser отправляет байтовое сообщение конкретному пользователю
	SendToUser(userID string, message []byte) bool

	// BroadcastToQuiz отправляет сообщение всем подписчикам комнаты викторины
	BroadcastToQuiz(quizID uint, message []byte)

	// SubscribeToQuiz подписывает клиента на комнату викторины
	SubscribeToQuiz(client *Client, quizID uint)

	// UnsubscribeFromQuiz отписывает клиента от его текущей комнаты
	UnsubscribeFromQuiz(client *Client)

	// SubscriberCount возвращает количество подписчиков комнаты
	SubscriberCount(quizID uint) int

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
