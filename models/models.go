package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Invoice statuses
const (
	InvoiceStatusUnpaid     = "unpaid"
	InvoiceStatusPartial    = "partial"
	InvoiceStatusPaid       = "paid"
	InvoiceStatusExonerated = "exonerated"
)

// Enrollment statuses
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusWithdrawn = "withdrawn"
)

// Semester model. One invoice per student per semester in steady state.
type Semester struct {
	BaseModel
	Name      string     `json:"name" gorm:"size:100;not null;uniqueIndex"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Active    bool       `json:"active" gorm:"default:true"`

	// Relationships
	Academies []Academy `json:"academies,omitempty" gorm:"foreignKey:SemesterID"`
}

// Student model. Email is stored lowercased; registration dedupe matches on it.
type Student struct {
	BaseModel
	FirstName     string     `json:"first_name" gorm:"size:100;not null"`
	LastName      string     `json:"last_name" gorm:"size:100"`
	Email         string     `json:"email" gorm:"size:255;index"`
	Phone         string     `json:"phone" gorm:"size:30"`
	Address       string     `json:"address" gorm:"size:500"`
	City          string     `json:"city" gorm:"size:100"`
	GuardianName  string     `json:"guardian_name" gorm:"size:200"`
	GuardianPhone string     `json:"guardian_phone" gorm:"size:30"`
	BirthDate     *time.Time `json:"birth_date"`
	Notes         string     `json:"notes" gorm:"type:text"`
	LegacyID      string     `json:"legacy_id" gorm:"size:100;index"` // source registration id, set by the migration
	ContactSource string     `json:"contact_source" gorm:"size:100"`

	// Relationships
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:StudentID"`
	Invoices    []Invoice    `json:"invoices,omitempty" gorm:"foreignKey:StudentID"`
}

// Academy model. Identity is (semester, normalized name).
type Academy struct {
	BaseModel
	SemesterID     uint            `json:"semester_id" gorm:"not null;uniqueIndex:idx_academy_semester_name"`
	Name           string          `json:"name" gorm:"size:255;not null"`
	NormalizedName string          `json:"normalized_name" gorm:"size:255;not null;uniqueIndex:idx_academy_semester_name"`
	Slug           string          `json:"slug" gorm:"size:255;index"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null;default:0"` // major units
	SortOrder      int             `json:"sort_order" gorm:"default:1"`
	Active         bool            `json:"active" gorm:"default:true"`

	// Relationships
	Semester Semester `json:"semester,omitempty" gorm:"foreignKey:SemesterID"`
	Levels   []Level  `json:"levels,omitempty" gorm:"foreignKey:AcademyID"`
}

// Level model. Identity is (academy, normalized name).
type Level struct {
	BaseModel
	AcademyID      uint   `json:"academy_id" gorm:"not null;uniqueIndex:idx_level_academy_name"`
	Name           string `json:"name" gorm:"size:255;not null"`
	NormalizedName string `json:"normalized_name" gorm:"size:255;not null;uniqueIndex:idx_level_academy_name"`
	Schedule       string `json:"schedule" gorm:"size:255"`

	// Relationships
	Academy Academy `json:"academy,omitempty" gorm:"foreignKey:AcademyID"`
}

// Enrollment model - the billable unit.
type Enrollment struct {
	BaseModel
	StudentID  uint   `json:"student_id" gorm:"not null;index"`
	AcademyID  uint   `json:"academy_id" gorm:"not null;index"`
	LevelID    *uint  `json:"level_id" gorm:"default:null"`
	SemesterID uint   `json:"semester_id" gorm:"not null;index"`
	Status     string `json:"status" gorm:"size:50;not null;default:'active'"` // active, withdrawn

	// Relationships
	Student  Student  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Academy  Academy  `json:"academy,omitempty" gorm:"foreignKey:AcademyID"`
	Level    *Level   `json:"level,omitempty" gorm:"foreignKey:LevelID"`
	Semester Semester `json:"semester,omitempty" gorm:"foreignKey:SemesterID"`
}

// Invoice model. Never physically deleted once paid_amount > 0.
// Monetary columns hold decimal major units; the billing engine computes in
// minor units and converts at this boundary.
type Invoice struct {
	BaseModel
	StudentID      uint            `json:"student_id" gorm:"not null;index"`
	SemesterID     uint            `json:"semester_id" gorm:"not null;index"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(10,2);not null;default:0"`
	DiscountNote   string          `json:"discount_note" gorm:"size:255"`
	Total          decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null;default:0"`
	PaidAmount     decimal.Decimal `json:"paid_amount" gorm:"type:decimal(10,2);not null;default:0"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:decimal(10,2);not null;default:0"`
	Status         string          `json:"status" gorm:"size:50;not null;default:'unpaid'"` // unpaid, partial, paid, exonerated

	// Relationships
	Student  Student       `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Semester Semester      `json:"semester,omitempty" gorm:"foreignKey:SemesterID"`
	Items    []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

// Invoice item types
const (
	ItemTypeAcademy = "academy"
	ItemTypeCharge  = "charge"
)

// InvoiceItem model. AcademyName/LevelName carry the coverage key so a paid
// academy+level is never re-billed on later registration updates.
type InvoiceItem struct {
	BaseModel
	InvoiceID   uint            `json:"invoice_id" gorm:"not null;index"`
	Description string          `json:"description" gorm:"size:255;not null"`
	AcademyName string          `json:"academy_name" gorm:"size:255"`
	LevelName   string          `json:"level_name" gorm:"size:255"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null;default:0"`
	Quantity    int             `json:"quantity" gorm:"not null;default:1"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null;default:0"`
	Type        string          `json:"type" gorm:"size:50;not null;default:'academy'"` // academy, charge
}

// Payment methods
const (
	PaymentMethodCash     = "cash"
	PaymentMethodZelle    = "zelle"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCard     = "card"
	PaymentMethodOther    = "other"
)

// Payment model - immutable ledger entry. Refunds are negative-amount rows,
// never mutations of existing history.
type Payment struct {
	BaseModel
	InvoiceID       uint            `json:"invoice_id" gorm:"not null;index"`
	StudentID       uint            `json:"student_id" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Method          string          `json:"method" gorm:"size:50;not null"`
	Notes           string          `json:"notes" gorm:"size:500"`
	ReceiptNumber   string          `json:"receipt_number" gorm:"size:64;index"`
	TransactionDate time.Time       `json:"transaction_date" gorm:"not null"`

	// Relationships
	Invoice Invoice `json:"invoice,omitempty" gorm:"foreignKey:InvoiceID"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// AttendanceSession model. One row per (academy, date, level-or-none).
type AttendanceSession struct {
	BaseModel
	AcademyID   uint      `json:"academy_id" gorm:"not null;uniqueIndex:idx_session_key"`
	LevelID     *uint     `json:"level_id" gorm:"uniqueIndex:idx_session_key;default:null"`
	SessionDate time.Time `json:"session_date" gorm:"not null;uniqueIndex:idx_session_key"`

	// Relationships
	Academy Academy            `json:"academy,omitempty" gorm:"foreignKey:AcademyID"`
	Level   *Level             `json:"level,omitempty" gorm:"foreignKey:LevelID"`
	Records []AttendanceRecord `json:"records,omitempty" gorm:"foreignKey:SessionID"`
}

// AttendanceRecord model - per-student attendance/progress within a session.
type AttendanceRecord struct {
	BaseModel
	SessionID uint   `json:"session_id" gorm:"not null;index"`
	StudentID uint   `json:"student_id" gorm:"not null;index"`
	Status    string `json:"status" gorm:"size:50;not null;default:'present'"`
	Progress  string `json:"progress" gorm:"type:text"`

	// Relationships
	Session AttendanceSession `json:"session,omitempty" gorm:"foreignKey:SessionID"`
	Student Student           `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}
