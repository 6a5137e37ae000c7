package billing

import (
	"testing"

	"academias_go/database"
	"academias_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateModels(db))
	return db
}

type fixture struct {
	db       *gorm.DB
	semester models.Semester
	student  models.Student
	invoices *InvoiceService
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)

	semester := models.Semester{Name: "2026-B", Active: true}
	require.NoError(t, db.Create(&semester).Error)

	student := models.Student{FirstName: "Maria", LastName: "Perez", Email: "maria@example.com"}
	require.NoError(t, db.Create(&student).Error)

	resolver := NewResolver(map[string]int64{"Art": 10000, "Music": 12000, "Ballet": 9000})
	return &fixture{
		db:       db,
		semester: semester,
		student:  student,
		invoices: NewInvoiceService(db, resolver),
	}
}

func (f *fixture) addAcademy(t *testing.T, name string, priceMinor int64) models.Academy {
	academy := models.Academy{
		SemesterID:     f.semester.ID,
		Name:           name,
		NormalizedName: NormalizeName(name),
		UnitPrice:      ToMajor(priceMinor),
		Active:         true,
	}
	require.NoError(t, f.db.Create(&academy).Error)
	return academy
}

func (f *fixture) enroll(t *testing.T, academy models.Academy) models.Enrollment {
	enrollment := models.Enrollment{
		StudentID:  f.student.ID,
		AcademyID:  academy.ID,
		SemesterID: f.semester.ID,
		Status:     models.EnrollmentStatusActive,
	}
	require.NoError(t, f.db.Create(&enrollment).Error)
	return enrollment
}

func TestCreateInvoiceFromEnrollments(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))
	f.enroll(t, f.addAcademy(t, "Music", 12000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{
		StudentID:  f.student.ID,
		SemesterID: f.semester.ID,
	})
	require.NoError(t, err)

	require.Equal(t, int64(22000), ToMinor(invoice.Total))
	require.Equal(t, int64(22000), ToMinor(invoice.Balance))
	require.Equal(t, models.InvoiceStatusUnpaid, invoice.Status)

	var items []models.InvoiceItem
	require.NoError(t, f.db.Where("invoice_id = ?", invoice.ID).Find(&items).Error)
	require.Len(t, items, 2)
}

func TestCreateInvoiceRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	_, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	_, err = f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.ErrorIs(t, err, ErrDuplicateInvoice)
}

func TestCreateInvoiceWithDiscountCode(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))
	f.enroll(t, f.addAcademy(t, "Music", 12000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{
		StudentID:    f.student.ID,
		SemesterID:   f.semester.ID,
		DiscountCode: "BECA25",
	})
	require.NoError(t, err)

	require.Equal(t, int64(22000), ToMinor(invoice.Subtotal))
	require.Equal(t, int64(5500), ToMinor(invoice.DiscountAmount))
	require.Equal(t, int64(16500), ToMinor(invoice.Total))
}

func TestExonerationClosesInvoiceWithAuditPayment(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{
		StudentID:    f.student.ID,
		SemesterID:   f.semester.ID,
		DiscountCode: "EXONERADO",
	})
	require.NoError(t, err)

	require.Equal(t, models.InvoiceStatusExonerated, invoice.Status)
	require.Equal(t, int64(0), ToMinor(invoice.Total))

	var payments []models.Payment
	require.NoError(t, f.db.Where("invoice_id = ?", invoice.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	require.Equal(t, "exoneration", payments[0].Method)
	require.True(t, payments[0].Amount.IsZero())
}

func TestRefreshInvoicePreservesPayments(t *testing.T) {
	f := newFixture(t)
	art := f.addAcademy(t, "Art", 10000)
	f.enroll(t, art)

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)
	_, err = payments.ApplyToInvoice(invoice.ID, 4000, models.PaymentMethodCash, "")
	require.NoError(t, err)

	// Student adds a second academy after paying part of the first.
	f.enroll(t, f.addAcademy(t, "Music", 12000))

	refreshed, err := f.invoices.RefreshInvoice(f.student.ID, f.semester.ID)
	require.NoError(t, err)

	require.Equal(t, int64(22000), ToMinor(refreshed.Total))
	require.Equal(t, int64(4000), ToMinor(refreshed.PaidAmount))
	require.Equal(t, int64(18000), ToMinor(refreshed.Balance))
	require.Equal(t, models.InvoiceStatusPartial, refreshed.Status)
}

func TestRefreshInvoiceDropsWithdrawnUnpaidLines(t *testing.T) {
	f := newFixture(t)
	art := f.addAcademy(t, "Art", 10000)
	enrollment := f.enroll(t, art)
	f.enroll(t, f.addAcademy(t, "Music", 12000))

	_, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&enrollment).
		Update("status", models.EnrollmentStatusWithdrawn).Error)

	refreshed, err := f.invoices.RefreshInvoice(f.student.ID, f.semester.ID)
	require.NoError(t, err)
	require.Equal(t, int64(12000), ToMinor(refreshed.Total))
	require.Len(t, refreshed.Items, 1)
	require.Equal(t, "Music", refreshed.Items[0].AcademyName)
}

func TestPaidCoverageNeverRebilled(t *testing.T) {
	f := newFixture(t)
	art := f.addAcademy(t, "Art", 10000)
	f.enroll(t, art)

	first, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)
	_, err = payments.ApplyToInvoice(first.ID, 10000, models.PaymentMethodZelle, "")
	require.NoError(t, err)

	// The student re-registers in the next period with Art again plus Ballet.
	// The paid Art coverage carries over; only Ballet is billed.
	next := models.Semester{Name: "2027-A", Active: true}
	require.NoError(t, f.db.Create(&next).Error)

	artNext := models.Academy{
		SemesterID: next.ID, Name: "Art", NormalizedName: "art",
		UnitPrice: ToMajor(10000), Active: true,
	}
	require.NoError(t, f.db.Create(&artNext).Error)
	balletNext := models.Academy{
		SemesterID: next.ID, Name: "Ballet", NormalizedName: "ballet",
		UnitPrice: ToMajor(9000), Active: true,
	}
	require.NoError(t, f.db.Create(&balletNext).Error)

	for _, a := range []models.Academy{artNext, balletNext} {
		enrollment := models.Enrollment{
			StudentID: f.student.ID, AcademyID: a.ID,
			SemesterID: next.ID, Status: models.EnrollmentStatusActive,
		}
		require.NoError(t, f.db.Create(&enrollment).Error)
	}

	second, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: next.ID})
	require.NoError(t, err)
	require.Equal(t, int64(9000), ToMinor(second.Total))

	var items []models.InvoiceItem
	require.NoError(t, f.db.Where("invoice_id = ?", second.ID).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, "Ballet", items[0].AcademyName)
}

func TestDeleteInvoiceBlockedByPayments(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)
	payment, err := payments.ApplyToInvoice(invoice.ID, 1000, models.PaymentMethodCash, "")
	require.NoError(t, err)

	require.ErrorIs(t, f.invoices.DeleteInvoice(invoice.ID), ErrInvoiceHasPayments)

	// Reversing the payment unblocks the delete.
	require.NoError(t, payments.DeletePayment(payment.ID))
	require.NoError(t, f.invoices.DeleteInvoice(invoice.ID))

	_, err = f.invoices.Invoice(invoice.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOutstandingBalancesCountsLatestInvoiceOnly(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	// An older superseded invoice with an open balance.
	old := models.Invoice{
		StudentID:  f.student.ID,
		SemesterID: f.semester.ID,
		Subtotal:   ToMajor(5000),
		Total:      ToMajor(5000),
		Balance:    ToMajor(5000),
		Status:     models.InvoiceStatusUnpaid,
	}
	require.NoError(t, f.db.Create(&old).Error)

	latest := models.Invoice{
		StudentID:  f.student.ID,
		SemesterID: f.semester.ID,
		Subtotal:   ToMajor(10000),
		Total:      ToMajor(10000),
		Balance:    ToMajor(10000),
		Status:     models.InvoiceStatusUnpaid,
	}
	require.NoError(t, f.db.Create(&latest).Error)

	balances, total, err := f.invoices.OutstandingBalances(f.semester.ID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, latest.ID, balances[0].InvoiceID)
	require.Equal(t, int64(10000), ToMinor(total))
}
