package auditlog

import (
	"encoding/json"
	"testing"

	"academias_go/database"
	"academias_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateModels(db))
	return &Service{db: db}
}

func TestStoreInsertsCachedEntry(t *testing.T) {
	svc := newTestService(t)

	cached := models.ActivityLog{
		Action:     "CREATE",
		Resource:   "students",
		ResourceID: 7,
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl/8.0",
	}
	cached.ID = 99 // stale cache id must not survive the insert
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	require.NoError(t, svc.store(data))

	var rows []models.ActivityLog
	require.NoError(t, svc.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "CREATE", rows[0].Action)
	require.Equal(t, "students", rows[0].Resource)
	require.Equal(t, uint(7), rows[0].ResourceID)
	require.NotEqual(t, uint(99), rows[0].ID)
}

func TestStoreRejectsMalformedEntry(t *testing.T) {
	svc := newTestService(t)

	require.Error(t, svc.store([]byte("{not json")))

	var count int64
	require.NoError(t, svc.db.Model(&models.ActivityLog{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestFlushWithoutRedisIsNoop(t *testing.T) {
	svc := newTestService(t)

	// Must not panic or touch the database when Redis is not configured.
	svc.Flush()

	var count int64
	require.NoError(t, svc.db.Model(&models.ActivityLog{}).Count(&count).Error)
	require.Zero(t, count)
}
