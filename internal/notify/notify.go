package notify

import (
	"log"
)

// Notice - уведомление для пользователя; слой координации его не отображает,
// а только передает в Sink
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	// Retry подсказывает интерфейсу предложить повтор операции
	Retry bool `json:"retry"`
}

type Sink interface {
	Dispatch(notice Notice)
}

// LogSink пишет уведомления в лог; используется, пока нет другого потребителя
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Dispatch(notice Notice) {
	log.Printf("Уведомление: %s - %s", notice.Title, notice.Message)
}
