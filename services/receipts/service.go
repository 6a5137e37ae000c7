package receipts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"academias_go/config"
	"academias_go/database"
	"academias_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Queue item stored in Redis. Kept minimal: the worker re-reads the invoice
// when it dispatches, so a stale snapshot cannot leak into the receipt.
type queuedReceipt struct {
	InvoiceID     uint      `json:"invoice_id"`
	StudentID     uint      `json:"student_id"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	QueuedAt      time.Time `json:"queued_at"`
	Attempts      int       `json:"attempts"`
}

const redisListKey = "receipts:queue"

// maxAttempts bounds redelivery; after that the receipt is dropped with an
// error log rather than poisoning the queue.
const maxAttempts = 5

// Service queues payment receipts after an invoice reaches fully paid.
// Queueing is fire-and-forget: the payment transaction has already committed
// and nothing here may undo it. With Redis enabled items go to a list drained
// by a cron worker; otherwise they sit in an in-process buffer drained the
// same way.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool

	mu      sync.Mutex
	pending []queuedReceipt

	cron *cron.Cron
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisReceipts && database.GetRedisClient() != nil,
	}
}

// InvoicePaid implements the billing notifier. It never returns an error and
// never blocks the caller beyond a queue push.
func (s *Service) InvoicePaid(invoice *models.Invoice, payment *models.Payment) {
	item := queuedReceipt{
		InvoiceID: invoice.ID,
		StudentID: invoice.StudentID,
		QueuedAt:  time.Now().UTC(),
	}
	if payment != nil {
		item.ReceiptNumber = payment.ReceiptNumber
	}
	s.enqueue(item)
}

func (s *Service) enqueue(item queuedReceipt) {
	if s.useRedis {
		b, err := json.Marshal(item)
		if err == nil {
			if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
				return
			}
		}
		logrus.WithError(err).Warn("Receipt queue push failed, buffering in process")
	}
	s.mu.Lock()
	s.pending = append(s.pending, item)
	s.mu.Unlock()
}

// StartWorker schedules the queue drain. Dispatch failures re-queue the item
// with a bumped attempt counter.
func (s *Service) StartWorker() {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 30s", s.drain); err != nil {
		logrus.WithError(err).Error("Failed to schedule receipt worker")
		return
	}
	s.cron.Start()
	logrus.Info("Receipt dispatch worker started")
}

// StopWorker stops the drain schedule, waiting for an in-flight run.
func (s *Service) StopWorker() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Service) drain() {
	for _, item := range s.take(50) {
		if err := s.dispatch(item); err != nil {
			item.Attempts++
			if item.Attempts >= maxAttempts {
				logrus.WithError(err).WithField("invoice_id", item.InvoiceID).
					Error("Receipt dropped after repeated dispatch failures")
				continue
			}
			logrus.WithError(err).WithField("invoice_id", item.InvoiceID).
				Warn("Receipt dispatch failed, re-queued")
			s.enqueue(item)
		}
	}
}

// take pops up to n queued receipts from Redis and the in-process buffer.
func (s *Service) take(n int) []queuedReceipt {
	var items []queuedReceipt
	if s.useRedis {
		ctx := context.Background()
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(n-1)).Result()
		if err == nil && len(vals) > 0 {
			if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
				logrus.WithError(err).Warn("Receipt queue trim failed")
			}
			for _, v := range vals {
				var item queuedReceipt
				if err := json.Unmarshal([]byte(v), &item); err != nil {
					logrus.WithError(err).Warn("Malformed receipt queue item skipped")
					continue
				}
				items = append(items, item)
			}
		}
	}

	s.mu.Lock()
	if len(s.pending) > 0 {
		take := n - len(items)
		if take > len(s.pending) {
			take = len(s.pending)
		}
		if take > 0 {
			items = append(items, s.pending[:take]...)
			s.pending = append(s.pending[:0:0], s.pending[take:]...)
		}
	}
	s.mu.Unlock()
	return items
}

// dispatch renders and "sends" the receipt. Mail transport is an external
// collaborator; here the receipt is materialized and logged.
func (s *Service) dispatch(item queuedReceipt) error {
	var invoice models.Invoice
	if err := s.db.Preload("Student").First(&invoice, item.InvoiceID).Error; err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"invoice_id":     invoice.ID,
		"student_id":     invoice.StudentID,
		"email":          invoice.Student.Email,
		"total":          invoice.Total.StringFixed(2),
		"paid":           invoice.PaidAmount.StringFixed(2),
		"receipt_number": item.ReceiptNumber,
	}).Info("Payment receipt dispatched")
	return nil
}
