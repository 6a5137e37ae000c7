package billing

import (
	"errors"
	"time"

	"academias_go/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceService owns the invoice lifecycle: create on first billable
// enrollment, refresh on enrollment changes without disturbing recorded
// payments, delete only while nothing has been paid.
type InvoiceService struct {
	db      *gorm.DB
	pricing *Resolver
}

func NewInvoiceService(db *gorm.DB, pricing *Resolver) *InvoiceService {
	return &InvoiceService{db: db, pricing: pricing}
}

// ExtraCharge is a non-academy line (materials, uniforms) added at invoice
// creation. Minor units.
type ExtraCharge struct {
	Description string `json:"description"`
	AmountMinor int64  `json:"amount_minor"`
}

// InvoiceInput carries everything CreateInvoice needs besides the student's
// current enrollments, which are read from storage.
type InvoiceInput struct {
	StudentID     uint
	SemesterID    uint
	DiscountCode  string
	DiscountMinor int64 // direct discount when no code is given
	DiscountNote  string
	Extras        []ExtraCharge
}

// lockForUpdate adds a row-level lock on dialects that support it. MySQL gets
// SELECT ... FOR UPDATE; the sqlite test dialect runs transactions serialized
// already.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// CreateInvoice builds a new invoice for the student's active enrollments in
// the semester. It fails with ErrDuplicateInvoice when one already exists.
// A discount that fully offsets the subtotal yields an exonerated invoice
// with a zero-amount audit payment.
func (s *InvoiceService) CreateInvoice(in InvoiceInput) (*models.Invoice, error) {
	var created *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Invoice
		err := tx.Where("student_id = ? AND semester_id = ?", in.StudentID, in.SemesterID).
			First(&existing).Error
		if err == nil {
			return ErrDuplicateInvoice
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		lines, err := s.billableLines(tx, in.StudentID, in.SemesterID, 0)
		if err != nil {
			return err
		}

		invoice, err := s.composeInvoice(tx, in, lines)
		if err != nil {
			return err
		}
		created = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RefreshInvoice recomputes the invoice's lines and totals from the student's
// current enrollments. Recorded payments are untouched; balance and status
// are recomputed against the unchanged paid amount. When no invoice exists
// yet it defers to CreateInvoice.
func (s *InvoiceService) RefreshInvoice(studentID, semesterID uint) (*models.Invoice, error) {
	var refreshed *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		err := lockForUpdate(tx).
			Where("student_id = ? AND semester_id = ?", studentID, semesterID).
			First(&invoice).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		lines, err := s.billableLines(tx, studentID, semesterID, invoice.ID)
		if err != nil {
			return err
		}

		subtotal := sumLines(lines)
		var extrasTotal int64
		var keptExtras []models.InvoiceItem
		if err := tx.Where("invoice_id = ? AND type = ?", invoice.ID, models.ItemTypeCharge).
			Find(&keptExtras).Error; err != nil {
			return err
		}
		for _, item := range keptExtras {
			extrasTotal += ToMinor(item.Amount)
		}
		subtotal += extrasTotal

		discount := ToMinor(invoice.DiscountAmount)
		if discount > subtotal {
			discount = subtotal
		}
		total := subtotal - discount
		paid := ToMinor(invoice.PaidAmount)
		exonerated := invoice.Status == models.InvoiceStatusExonerated && total == 0

		if err := tx.Where("invoice_id = ? AND type = ?", invoice.ID, models.ItemTypeAcademy).
			Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for _, line := range lines {
			item := itemFromLine(invoice.ID, line)
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		invoice.Subtotal = ToMajor(subtotal)
		invoice.DiscountAmount = ToMajor(discount)
		invoice.Total = ToMajor(total)
		invoice.Balance = ToMajor(BalanceOf(total, paid))
		invoice.Status = DeriveStatus(total, paid, exonerated)
		if err := tx.Save(&invoice).Error; err != nil {
			return err
		}

		refreshed = &invoice
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.CreateInvoice(InvoiceInput{StudentID: studentID, SemesterID: semesterID})
	}
	if err != nil {
		return nil, err
	}
	return s.load(refreshed.ID)
}

// DeleteInvoice removes the invoice and its line items. It fails with
// ErrInvoiceHasPayments while any paid amount is recorded; payments must be
// reversed first.
func (s *InvoiceService) DeleteInvoice(invoiceID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		err := lockForUpdate(tx).First(&invoice, invoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if ToMinor(invoice.PaidAmount) > 0 {
			return ErrInvoiceHasPayments
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
}

// Invoice loads one invoice with its items and payments.
func (s *InvoiceService) Invoice(invoiceID uint) (*models.Invoice, error) {
	return s.load(invoiceID)
}

// StudentInvoice returns the invoice for a student and semester.
func (s *InvoiceService) StudentInvoice(studentID, semesterID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Preload("Items").Preload("Payments").
		Where("student_id = ? AND semester_id = ?", studentID, semesterID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// StudentBalance is one row of the outstanding-balance aggregation.
type StudentBalance struct {
	StudentID uint            `json:"student_id"`
	InvoiceID uint            `json:"invoice_id"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
}

// OutstandingBalances aggregates open balances for a semester. Only the
// latest invoice per student counts; older invoices are historical and must
// not double-count.
func (s *InvoiceService) OutstandingBalances(semesterID uint) ([]StudentBalance, decimal.Decimal, error) {
	var invoices []models.Invoice
	latest := s.db.Model(&models.Invoice{}).
		Select("MAX(id)").
		Where("semester_id = ?", semesterID).
		Group("student_id")
	if err := s.db.Where("id IN (?)", latest).Find(&invoices).Error; err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	balances := make([]StudentBalance, 0, len(invoices))
	for _, inv := range invoices {
		if ToMinor(inv.Balance) <= 0 {
			continue
		}
		balances = append(balances, StudentBalance{
			StudentID: inv.StudentID,
			InvoiceID: inv.ID,
			Balance:   inv.Balance,
			Status:    inv.Status,
		})
		total = total.Add(inv.Balance)
	}
	return balances, total, nil
}

// CoveredKeys returns the academy+level coverage keys already present on the
// student's paid or exonerated invoices, excluding the given invoice id.
func (s *InvoiceService) CoveredKeys(tx *gorm.DB, studentID, excludeInvoiceID uint) (map[string]bool, error) {
	var items []models.InvoiceItem
	query := tx.Model(&models.InvoiceItem{}).
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.student_id = ? AND invoices.deleted_at IS NULL", studentID).
		Where("invoices.status IN ?", []string{models.InvoiceStatusPaid, models.InvoiceStatusExonerated}).
		Where("invoice_items.type = ?", models.ItemTypeAcademy)
	if excludeInvoiceID != 0 {
		query = query.Where("invoices.id <> ?", excludeInvoiceID)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	covered := make(map[string]bool, len(items))
	for _, item := range items {
		covered[CoverageKey(item.AcademyName, item.LevelName)] = true
	}
	return covered, nil
}

// billableLines reads the student's active enrollments and builds line items
// for everything not already covered elsewhere.
func (s *InvoiceService) billableLines(tx *gorm.DB, studentID, semesterID, excludeInvoiceID uint) ([]LineItem, error) {
	var enrollments []models.Enrollment
	if err := tx.Preload("Academy").Preload("Level").
		Where("student_id = ? AND semester_id = ? AND status = ?",
			studentID, semesterID, models.EnrollmentStatusActive).
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	selections := make([]Selection, 0, len(enrollments))
	for _, e := range enrollments {
		sel := Selection{Academy: e.Academy.Name}
		if e.Level != nil {
			sel.Level = e.Level.Name
		}
		selections = append(selections, sel)
	}

	covered, err := s.CoveredKeys(tx, studentID, excludeInvoiceID)
	if err != nil {
		return nil, err
	}
	return BuildLines(selections, covered, s.pricing), nil
}

// composeInvoice persists a new invoice with its items, discount and derived
// status, including the zero-amount audit payment for exonerations.
func (s *InvoiceService) composeInvoice(tx *gorm.DB, in InvoiceInput, lines []LineItem) (*models.Invoice, error) {
	subtotal := sumLines(lines)
	for _, extra := range in.Extras {
		subtotal += extra.AmountMinor
	}

	discount := in.DiscountMinor
	note := in.DiscountNote
	if in.DiscountCode != "" {
		if d, ok := LookupDiscount(in.DiscountCode); ok {
			discount = d.AmountFor(subtotal)
			if note == "" {
				note = d.Note
			}
		}
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	total := subtotal - discount
	exonerated := total == 0 && discount > 0

	invoice := models.Invoice{
		StudentID:      in.StudentID,
		SemesterID:     in.SemesterID,
		Subtotal:       ToMajor(subtotal),
		DiscountAmount: ToMajor(discount),
		DiscountNote:   note,
		Total:          ToMajor(total),
		PaidAmount:     decimal.Zero,
		Balance:        ToMajor(total),
		Status:         DeriveStatus(total, 0, exonerated),
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}

	for _, line := range lines {
		item := itemFromLine(invoice.ID, line)
		if err := tx.Create(&item).Error; err != nil {
			return nil, err
		}
	}
	for _, extra := range in.Extras {
		item := models.InvoiceItem{
			InvoiceID:   invoice.ID,
			Description: extra.Description,
			UnitPrice:   ToMajor(extra.AmountMinor),
			Quantity:    1,
			Amount:      ToMajor(extra.AmountMinor),
			Type:        models.ItemTypeCharge,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, err
		}
	}

	// Exonerations leave a zero-amount payment so the audit trail explains
	// why the invoice closed without money moving.
	if exonerated {
		audit := models.Payment{
			InvoiceID:       invoice.ID,
			StudentID:       in.StudentID,
			Amount:          decimal.Zero,
			Method:          "exoneration",
			Notes:           note,
			ReceiptNumber:   uuid.NewString(),
			TransactionDate: time.Now(),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return nil, err
		}
	}

	return &invoice, nil
}

func (s *InvoiceService) load(invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Preload("Items").Preload("Payments").First(&invoice, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func itemFromLine(invoiceID uint, line LineItem) models.InvoiceItem {
	return models.InvoiceItem{
		InvoiceID:   invoiceID,
		Description: line.Description,
		AcademyName: line.Academy,
		LevelName:   line.Level,
		UnitPrice:   ToMajor(line.UnitPriceMinor),
		Quantity:    line.Quantity,
		Amount:      ToMajor(line.AmountMinor),
		Type:        models.ItemTypeAcademy,
	}
}

func sumLines(lines []LineItem) int64 {
	var sum int64
	for _, line := range lines {
		sum += line.AmountMinor
	}
	return sum
}
