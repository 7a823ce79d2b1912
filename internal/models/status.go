package models

import "time"

// Phase фаза конечного автомата репликации
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseActive       Phase = "active"
	PhaseUpToDate     Phase = "up_to_date"
	PhaseError        Phase = "error"
	PhaseOffline      Phase = "offline"
)

// SyncStatus - наблюдаемое состояние синхронизации.
// Изменяется только координатором репликации, читается любым числом подписчиков.
type SyncStatus struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	Phase        Phase     `json:"phase"`
	LastError    string    `json:"last_error,omitempty"`
	IsOnline     bool      `json:"is_online"`
	IsConnected  bool      `json:"is_connected"`
}
