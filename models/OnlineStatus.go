package models

import "time"

// OnlineStatus records whether a user currently holds a live realtime
// connection. Best-effort: it is overwritten on connect/disconnect and is
// never allowed to block a messaging operation.
type OnlineStatus struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:uq_user_status"`
	UserType Role `json:"user_type" gorm:"size:20;not null;uniqueIndex:uq_user_status;check:user_type IN ('customer','vendor')"`
	IsOnline bool `json:"is_online" gorm:"not null;default:false"`
	// LastSeen is bumped on connect and on disconnect.
	LastSeen time.Time `json:"last_seen"`
	// SocketID identifies the connection that last touched this row, for
	// debugging stale presence.
	SocketID  string    `json:"socket_id" gorm:"size:255"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OnlineStatus) TableName() string { return "online_statuses" }
