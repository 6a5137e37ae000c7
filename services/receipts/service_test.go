package receipts

import (
	"testing"

	"academias_go/database"
	"academias_go/models"

	"github.com/shopspring/decimal"
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

func TestInvoicePaidBuffersWithoutRedis(t *testing.T) {
	svc := newTestService(t)

	invoice := &models.Invoice{StudentID: 7}
	invoice.ID = 42
	payment := &models.Payment{ReceiptNumber: "r-1"}

	svc.InvoicePaid(invoice, payment)
	svc.InvoicePaid(invoice, nil)

	items := svc.take(10)
	require.Len(t, items, 2)
	require.Equal(t, uint(42), items[0].InvoiceID)
	require.Equal(t, uint(7), items[0].StudentID)
	require.Equal(t, "r-1", items[0].ReceiptNumber)
	require.Empty(t, items[1].ReceiptNumber)

	// Buffer is drained by take.
	require.Empty(t, svc.take(10))
}

func TestTakeRespectsLimit(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 5; i++ {
		svc.enqueue(queuedReceipt{InvoiceID: uint(i + 1)})
	}
	require.Len(t, svc.take(3), 3)
	require.Len(t, svc.take(10), 2)
}

func TestDrainDispatchesAgainstStoredInvoice(t *testing.T) {
	svc := newTestService(t)

	student := models.Student{FirstName: "Maria", Email: "maria@example.com"}
	require.NoError(t, svc.db.Create(&student).Error)
	invoice := models.Invoice{
		StudentID:  student.ID,
		SemesterID: 1,
		Total:      decimal.NewFromInt(100),
		PaidAmount: decimal.NewFromInt(100),
		Status:     models.InvoiceStatusPaid,
	}
	require.NoError(t, svc.db.Create(&invoice).Error)

	svc.enqueue(queuedReceipt{InvoiceID: invoice.ID, StudentID: student.ID})
	svc.drain()

	// Dispatch succeeded, so nothing was re-queued.
	require.Empty(t, svc.take(10))
}

func TestDrainRequeuesMissingInvoice(t *testing.T) {
	svc := newTestService(t)

	svc.enqueue(queuedReceipt{InvoiceID: 999})
	svc.drain()

	items := svc.take(10)
	require.Len(t, items, 1)
	require.Equal(t, 1, items[0].Attempts)
}

func TestDrainDropsAfterMaxAttempts(t *testing.T) {
	svc := newTestService(t)

	svc.enqueue(queuedReceipt{InvoiceID: 999, Attempts: maxAttempts - 1})
	svc.drain()

	require.Empty(t, svc.take(10))
}
