package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const presenceCacheTTL = 10 * time.Second

// PresenceService maintains the best-effort online/offline record for each
// user. The database row is the source of truth; Redis fronts reads with a
// short TTL and is skipped entirely when unavailable.
type PresenceService struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewPresenceService(db *gorm.DB, rdb *redis.Client) *PresenceService {
	return &PresenceService{db: db, rdb: rdb}
}

// StatusView is the wire shape of GET /api/online-status.
type StatusView struct {
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// SetOnline upserts the user's presence row on connect. socketID records
// which connection owns the row.
func (s *PresenceService) SetOnline(ctx context.Context, userID uint, role models.Role, socketID string) error {
	return s.upsert(ctx, userID, role, true, socketID)
}

// SetOffline overwrites the row on disconnect.
func (s *PresenceService) SetOffline(ctx context.Context, userID uint, role models.Role) error {
	return s.upsert(ctx, userID, role, false, "")
}

func (s *PresenceService) upsert(ctx context.Context, userID uint, role models.Role, online bool, socketID string) error {
	if userID == 0 || !role.Valid() {
		return validationf("a valid user id and type are required")
	}
	status := models.OnlineStatus{
		UserID:   userID,
		UserType: role,
		IsOnline: online,
		LastSeen: time.Now(),
		SocketID: socketID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "user_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen", "socket_id", "updated_at"}),
	}).Create(&status).Error
	if err != nil {
		return &StorageError{Err: errors.Wrap(err, "upsert online status")}
	}
	s.cacheSet(ctx, userID, role, StatusView{IsOnline: online, LastSeen: &status.LastSeen})
	return nil
}

// Status reports presence for one user. Unknown users read as offline with
// no last-seen time, matching the empty-row behavior clients expect.
func (s *PresenceService) Status(ctx context.Context, userID uint, role models.Role) (StatusView, error) {
	if !role.Valid() {
		return StatusView{}, validationf("unknown user type %q", string(role))
	}

	if view, ok := s.cacheGet(ctx, userID, role); ok {
		return view, nil
	}

	var row models.OnlineStatus
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_type = ?", userID, role).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StatusView{IsOnline: false, LastSeen: nil}, nil
	}
	if err != nil {
		return StatusView{}, &StorageError{Err: errors.Wrap(err, "load online status")}
	}

	view := StatusView{IsOnline: row.IsOnline, LastSeen: &row.LastSeen}
	s.cacheSet(ctx, userID, role, view)
	return view, nil
}

func presenceKey(userID uint, role models.Role) string {
	return fmt.Sprintf("presence:%s:%d", role, userID)
}

func (s *PresenceService) cacheGet(ctx context.Context, userID uint, role models.Role) (StatusView, bool) {
	if s.rdb == nil {
		return StatusView{}, false
	}
	raw, err := s.rdb.Get(ctx, presenceKey(userID, role)).Result()
	if err != nil {
		return StatusView{}, false
	}
	var view StatusView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return StatusView{}, false
	}
	return view, true
}

func (s *PresenceService) cacheSet(ctx context.Context, userID uint, role models.Role, view StatusView) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	// Best-effort; a down Redis never fails the caller.
	s.rdb.Set(ctx, presenceKey(userID, role), raw, presenceCacheTTL)
}
