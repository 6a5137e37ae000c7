package auditlog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"academias_go/database"
	"academias_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const queueKey = "logs:queue"

// Service drains the Redis-cached activity log entries into the database.
// Middleware writes each entry under its own key and indexes it in the
// logs:queue sorted set; this worker pulls the queue in arrival order,
// persists the rows, and removes the cache entries.
type Service struct {
	db    *gorm.DB
	redis *redis.Client

	cron *cron.Cron
}

func NewService() *Service {
	return &Service{
		db:    database.GetDB(),
		redis: database.GetRedisClient(),
	}
}

// StartWorker flushes once at startup and then on a schedule, so entries
// queued before a restart still land in the database.
func (s *Service) StartWorker() {
	s.Flush()

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 1m", s.Flush); err != nil {
		logrus.WithError(err).Error("Failed to schedule activity log worker")
		return
	}
	s.cron.Start()
	logrus.Info("Activity log flush worker started")
}

// StopWorker stops the flush schedule, waiting for an in-flight run.
func (s *Service) StopWorker() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Flush moves every queued entry up to now from Redis into the database.
// Without Redis the middleware writes directly and there is nothing to do.
func (s *Service) Flush() {
	if s.redis == nil || s.db == nil {
		return
	}
	ctx := context.Background()
	cutoff := strconv.FormatInt(time.Now().Unix(), 10)

	keys, err := s.redis.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min: "0",
		Max: cutoff,
	}).Result()
	if err != nil {
		logrus.WithError(err).Error("Failed to read activity log queue")
		return
	}
	if len(keys) == 0 {
		return
	}

	flushed := 0
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key).Result()
		if err == redis.Nil {
			// Entry expired before the flush; drop the queue reference.
			s.forget(ctx, key)
			continue
		}
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to fetch cached activity log")
			continue
		}

		if err := s.store([]byte(data)); err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to persist activity log")
			continue
		}
		s.forget(ctx, key)
		flushed++
	}

	if flushed > 0 {
		logrus.WithField("count", flushed).Info("Activity logs flushed to database")
	}
}

// store decodes a cached entry and inserts it as a fresh row.
func (s *Service) store(data []byte) error {
	var entry models.ActivityLog
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	entry.ID = 0
	return s.db.Create(&entry).Error
}

// forget removes a flushed or expired entry from the cache and the queue.
func (s *Service) forget(ctx context.Context, key string) {
	pipe := s.redis.Pipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, queueKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to clear flushed activity log")
	}
}
