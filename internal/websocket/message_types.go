package websocket

// Типы исходящих событий (сервер → клиенты)
const (
	EventQuizCountdown         = "quiz:countdown"
	EventQuizPreload           = "quiz:preload"
	EventQuizQuestion          = "quiz:question"
	EventQuizTimeout           = "quiz:timeout"
	EventQuizLeaderboard       = "quiz:leaderboard"
	EventQuizEnd               = "quiz:end"
	EventQuizAutoStart         = "quiz:auto_start"
	EventParticipantJoined     = "quiz:participant_joined"
	EventServerError           = "server:error"
	EventServerHeartbeat       = "server:heartbeat"
)

// Типы входящих событий (клиент → сервер)
const (
	EventUserJoin      = "user:join"
	EventUserAnswer    = "user:answer"
	EventUserHeartbeat = "user:heartbeat"
)
