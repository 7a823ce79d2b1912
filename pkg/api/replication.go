package api

import "time"

// MaxBatchSize - предел ревизий в одной странице /changes и в одном POST /revisions
const MaxBatchSize = 1000

// Revision - одна ревизия документа на проводе
type Revision struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Rev       string    `json:"rev"`
	Parent    string    `json:"parent,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// ChangesResponse ответ GET /api/v1/changes: ревизии с seq > since по возрастанию seq
type ChangesResponse struct {
	Revisions []Revision `json:"revisions"`
	LastSeq   int64      `json:"last_seq"` // seq последней ревизии в ответе (или since)
}

// PushRequest тело POST /api/v1/revisions
type PushRequest struct {
	Revisions []Revision `json:"revisions"`
}

// PushResponse ответ на загрузку ревизий
type PushResponse struct {
	Applied int   `json:"applied"`  // сколько ревизий было новыми
	LastSeq int64 `json:"last_seq"` // текущий максимальный seq пользователя
}

// FeedNotification сообщение websocket-ленты: на сервере появились ревизии до LastSeq
type FeedNotification struct {
	LastSeq int64 `json:"last_seq"`
}
