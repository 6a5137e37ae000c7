package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"academias_go/services/billing"

	"github.com/sirupsen/logrus"
)

// Legacy document shapes, as exported from the old datastore. All legacy
// monetary amounts are integral minor units and are divided by 100 on their
// way into the decimal columns.

// LegacyLevel is a nested sub-offering of a legacy academy.
type LegacyLevel struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
}

// LegacyAcademy is one offering, keyed by slug in the export.
type LegacyAcademy struct {
	Name    string        `json:"name"`
	Price   int64         `json:"price"` // minor units
	Order   int           `json:"order"`
	Enabled bool          `json:"enabled"`
	Levels  []LegacyLevel `json:"levels,omitempty"`
}

// LegacyRegistration is one student registration. The embedded SelectionSet
// accepts both enrollment encodings: the two-slot legacy fields and the
// unbounded selectedAcademies list.
type LegacyRegistration struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	GuardianName  string `json:"guardianName"`
	GuardianPhone string `json:"guardianPhone"`
	ContactSource string `json:"contactSource"`

	billing.SelectionSet
}

// LegacyAttendance references the registration by id and the academy/level
// by name; names are resolved through the migration's id maps.
type LegacyAttendance struct {
	RegistrationID string `json:"registrationId"`
	Academy        string `json:"academy"`
	Level          string `json:"level,omitempty"`
	Date           string `json:"date"` // YYYY-MM-DD
	Status         string `json:"status,omitempty"`
	Progress       string `json:"progress,omitempty"`
}

// LegacyInvoiceItem is one line of a legacy invoice. Minor units.
type LegacyInvoiceItem struct {
	Description string `json:"description"`
	Academy     string `json:"academy,omitempty"`
	Level       string `json:"level,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
}

// LegacyInvoice is one legacy billing document. Minor units throughout.
type LegacyInvoice struct {
	ID             string              `json:"id"`
	RegistrationID string              `json:"registrationId"`
	Subtotal       int64               `json:"subtotal"`
	Discount       int64               `json:"discount"`
	DiscountNote   string              `json:"discountNote,omitempty"`
	Total          int64               `json:"total"`
	Paid           int64               `json:"paid"`
	Exonerated     bool                `json:"exonerated,omitempty"`
	Items          []LegacyInvoiceItem `json:"items"`
}

// LegacyPayment is one legacy ledger entry. Minor units.
type LegacyPayment struct {
	InvoiceID string `json:"invoiceId"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Notes     string `json:"notes,omitempty"`
	Date      string `json:"date"` // YYYY-MM-DD
}

// LegacySnapshot is the full legacy export the reconciler runs against.
type LegacySnapshot struct {
	Academies     map[string]LegacyAcademy `json:"academies"`
	Registrations []LegacyRegistration     `json:"registrations"`
	Attendance    []LegacyAttendance       `json:"attendance"`
	Invoices      []LegacyInvoice          `json:"invoices"`
	Payments      []LegacyPayment          `json:"payments"`
}

// LoadSnapshot reads a legacy export directory. academies.json and
// registrations.json are required; the remaining files default to empty when
// absent, since not every export carries attendance or billing history.
func LoadSnapshot(dir string) (*LegacySnapshot, error) {
	snap := &LegacySnapshot{}

	if err := readJSON(filepath.Join(dir, "academies.json"), &snap.Academies); err != nil {
		return nil, fmt.Errorf("load academies: %w", err)
	}
	if err := readJSON(filepath.Join(dir, "registrations.json"), &snap.Registrations); err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	for name, target := range map[string]interface{}{
		"attendance.json": &snap.Attendance,
		"invoices.json":   &snap.Invoices,
		"payments.json":   &snap.Payments,
	} {
		if err := readJSON(filepath.Join(dir, name), target); err != nil {
			if os.IsNotExist(err) {
				logrus.WithField("file", name).Info("Legacy export file absent, skipping")
				continue
			}
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return snap, nil
}

func readJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
