package migration

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"academias_go/models"
	"academias_go/services/billing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// academyAliases rewrites legacy selection names for academies renamed after
// registrations were taken. Keys and values are normalized names.
var academyAliases = map[string]string{
	"painting":   "art",
	"pintura":    "art",
	"futbol":     "soccer",
	"computador": "robotics",
}

// Reconciler is the one-shot batch translating the legacy document export
// into the relational schema. It runs strictly sequentially: academies, then
// students, then enrollments, then attendance, then billing, so each step's
// id maps are complete before the next step depends on them. Re-running
// against the same snapshot creates nothing new.
type Reconciler struct {
	db   *gorm.DB
	snap *LegacySnapshot
	log  *logrus.Entry
}

func NewReconciler(db *gorm.DB, snap *LegacySnapshot) *Reconciler {
	return &Reconciler{
		db:   db,
		snap: snap,
		log:  logrus.WithField("component", "migration"),
	}
}

// Report tallies what the run did. Per-record failures are collected here
// with retry context; they never abort the run.
type Report struct {
	Semester          string   `json:"semester"`
	Academies         int      `json:"academies"`
	Levels            int      `json:"levels"`
	Students          int      `json:"students"`
	DuplicateStudents int      `json:"duplicate_students"`
	Enrollments       int      `json:"enrollments"`
	SkippedSelections int      `json:"skipped_selections"`
	Sessions          int      `json:"sessions"`
	AttendanceRecords int      `json:"attendance_records"`
	Invoices          int      `json:"invoices"`
	Payments          int      `json:"payments"`
	Failures          []string `json:"failures,omitempty"`
}

func (rep *Report) fail(log *logrus.Entry, step, ref string, err error) {
	log.WithError(err).WithFields(logrus.Fields{"step": step, "record": ref}).
		Error("Record migration failed, continuing")
	rep.Failures = append(rep.Failures, fmt.Sprintf("%s %s: %v", step, ref, err))
}

// Run executes the full migration for the named semester. Only a failed
// semester upsert is fatal; every other failure is per-record.
func (r *Reconciler) Run(semesterName string) (*Report, error) {
	report := &Report{Semester: semesterName}

	semester, err := r.ensureSemester(semesterName)
	if err != nil {
		return nil, err
	}

	academyIDs, levelIDs := r.migrateAcademies(semester.ID, report)

	// Re-read persisted levels so the dependent steps never consult a map
	// that missed a row written by a conflicting upsert.
	levelIDs = r.reloadLevels(semester.ID, academyIDs, levelIDs, report)

	regToStudent := r.migrateStudents(report)
	r.migrateEnrollments(semester.ID, academyIDs, levelIDs, regToStudent, report)
	r.migrateAttendance(academyIDs, levelIDs, regToStudent, report)
	invoiceIDs := r.migrateInvoices(semester.ID, regToStudent, report)
	r.migratePayments(invoiceIDs, report)

	r.log.WithFields(logrus.Fields{
		"academies":   report.Academies,
		"levels":      report.Levels,
		"students":    report.Students,
		"enrollments": report.Enrollments,
		"invoices":    report.Invoices,
		"payments":    report.Payments,
		"failures":    len(report.Failures),
	}).Info("Migration run completed")
	return report, nil
}

// ensureSemester upserts the semester by name. A unique-constraint conflict
// means another run created it first; re-fetch instead of failing.
func (r *Reconciler) ensureSemester(name string) (*models.Semester, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("semester name is required")
	}
	var semester models.Semester
	err := r.db.Where("name = ?", name).First(&semester).Error
	if err == nil {
		return &semester, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("semester lookup: %w", err)
	}

	semester = models.Semester{Name: name, Active: true}
	if err := r.db.Create(&semester).Error; err != nil {
		// Conflict: created concurrently or by a prior partial run.
		if ferr := r.db.Where("name = ?", name).First(&semester).Error; ferr != nil {
			return nil, fmt.Errorf("semester upsert: %w", err)
		}
	}
	return &semester, nil
}

// migrateAcademies upserts enabled legacy academies and their levels, keyed
// by normalized name, and returns name->id maps for downstream resolution.
func (r *Reconciler) migrateAcademies(semesterID uint, report *Report) (map[string]uint, map[string]uint) {
	academyIDs := make(map[string]uint)
	levelIDs := make(map[string]uint)

	slugs := make([]string, 0, len(r.snap.Academies))
	for slug := range r.snap.Academies {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		legacy := r.snap.Academies[slug]
		if !legacy.Enabled {
			continue
		}
		norm := billing.NormalizeName(legacy.Name)
		if norm == "" {
			report.fail(r.log, "academy", slug, errors.New("empty name"))
			continue
		}

		academy := models.Academy{
			SemesterID:     semesterID,
			Name:           legacy.Name,
			NormalizedName: norm,
			Slug:           slug,
			UnitPrice:      billing.ToMajor(legacy.Price),
			SortOrder:      legacy.Order,
			Active:         true,
		}
		id, created, err := upsertAcademy(r.db, &academy)
		if err != nil {
			report.fail(r.log, "academy", slug, err)
			continue
		}
		academyIDs[norm] = id
		if created {
			report.Academies++
		}

		for _, lvl := range legacy.Levels {
			lvlNorm := billing.NormalizeName(lvl.Name)
			if lvlNorm == "" {
				continue
			}
			level := models.Level{
				AcademyID:      id,
				Name:           lvl.Name,
				NormalizedName: lvlNorm,
				Schedule:       lvl.Schedule,
			}
			lvlID, lvlCreated, err := upsertLevel(r.db, &level)
			if err != nil {
				report.fail(r.log, "level", slug+"/"+lvl.Name, err)
				continue
			}
			levelIDs[levelKey(norm, lvlNorm)] = lvlID
			if lvlCreated {
				report.Levels++
			}
		}
	}
	return academyIDs, levelIDs
}

// reloadLevels rebuilds the level map from what is actually persisted.
func (r *Reconciler) reloadLevels(semesterID uint, academyIDs map[string]uint, prior map[string]uint, report *Report) map[string]uint {
	var levels []models.Level
	err := r.db.Joins("JOIN academies ON academies.id = levels.academy_id").
		Where("academies.semester_id = ?", semesterID).
		Find(&levels).Error
	if err != nil {
		report.fail(r.log, "levels", "reload", err)
		return prior
	}

	byAcademyID := make(map[uint]string, len(academyIDs))
	for norm, id := range academyIDs {
		byAcademyID[id] = norm
	}
	fresh := make(map[string]uint, len(levels))
	for _, lvl := range levels {
		if academyNorm, ok := byAcademyID[lvl.AcademyID]; ok {
			fresh[levelKey(academyNorm, lvl.NormalizedName)] = lvl.ID
		}
	}
	return fresh
}

// migrateStudents deduplicates registrations by case-insensitive email
// (first match wins) and returns the registration-id -> student-id map all
// downstream steps resolve through. Ids, not names: names are not unique.
func (r *Reconciler) migrateStudents(report *Report) map[string]uint {
	regToStudent := make(map[string]uint, len(r.snap.Registrations))
	byEmail := make(map[string]uint)

	for _, reg := range r.snap.Registrations {
		email := strings.ToLower(strings.TrimSpace(reg.Email))

		if email != "" {
			if id, ok := byEmail[email]; ok {
				// Later registrations with the same email collapse onto the
				// first student; their distinguishing fields are dropped.
				regToStudent[reg.ID] = id
				report.DuplicateStudents++
				continue
			}
		}

		student, created, err := r.upsertStudent(reg, email)
		if err != nil {
			report.fail(r.log, "student", reg.ID, err)
			continue
		}
		regToStudent[reg.ID] = student.ID
		if email != "" {
			byEmail[email] = student.ID
		}
		if created {
			report.Students++
		}
	}
	return regToStudent
}

// upsertStudent finds a previously migrated student (by legacy id, then by
// email) before creating one, keeping re-runs free of duplicates.
func (r *Reconciler) upsertStudent(reg LegacyRegistration, email string) (*models.Student, bool, error) {
	var student models.Student
	err := r.db.Where("legacy_id = ?", reg.ID).First(&student).Error
	if err == nil {
		return &student, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if email != "" {
		err = r.db.Where("email = ?", email).First(&student).Error
		if err == nil {
			return &student, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	student = models.Student{
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Email:         email,
		Phone:         reg.Phone,
		Address:       reg.Address,
		City:          reg.City,
		GuardianName:  reg.GuardianName,
		GuardianPhone: reg.GuardianPhone,
		ContactSource: reg.ContactSource,
		LegacyID:      reg.ID,
	}
	if err := r.db.Create(&student).Error; err != nil {
		return nil, false, err
	}
	return &student, true, nil
}

// migrateEnrollments inserts one enrollment per resolved selection.
// Unresolved academy names are skipped and counted, not fatal.
func (r *Reconciler) migrateEnrollments(semesterID uint, academyIDs, levelIDs map[string]uint, regToStudent map[string]uint, report *Report) {
	for _, reg := range r.snap.Registrations {
		studentID, ok := regToStudent[reg.ID]
		if !ok {
			continue
		}
		for _, sel := range reg.Normalize() {
			norm := resolveAlias(billing.NormalizeName(sel.Academy))
			academyID, ok := academyIDs[norm]
			if !ok {
				r.log.WithFields(logrus.Fields{
					"registration": reg.ID,
					"academy":      sel.Academy,
				}).Warn("Selection references unknown academy, skipped")
				report.SkippedSelections++
				continue
			}

			var levelID *uint
			if lvlNorm := billing.NormalizeName(sel.Level); lvlNorm != "" {
				if id, ok := levelIDs[levelKey(norm, lvlNorm)]; ok {
					levelID = &id
				}
			}

			enrollment := models.Enrollment{
				StudentID:  studentID,
				AcademyID:  academyID,
				LevelID:    levelID,
				SemesterID: semesterID,
				Status:     models.EnrollmentStatusActive,
			}
			created, err := firstOrCreateEnrollment(r.db, &enrollment)
			if err != nil {
				report.fail(r.log, "enrollment", reg.ID+"/"+sel.Academy, err)
				continue
			}
			if created {
				report.Enrollments++
			}
		}
	}
}

// migrateAttendance groups legacy attendance into sessions keyed by
// (academy, date, level-or-none), creating each session at most once, then
// inserts per-student records.
func (r *Reconciler) migrateAttendance(academyIDs, levelIDs map[string]uint, regToStudent map[string]uint, report *Report) {
	sessionIDs := make(map[string]uint)

	for i, att := range r.snap.Attendance {
		ref := fmt.Sprintf("%s@%s", att.RegistrationID, att.Date)

		studentID, ok := regToStudent[att.RegistrationID]
		if !ok {
			r.log.WithField("registration", att.RegistrationID).
				Warn("Attendance references unknown registration, skipped")
			report.SkippedSelections++
			continue
		}
		norm := resolveAlias(billing.NormalizeName(att.Academy))
		academyID, ok := academyIDs[norm]
		if !ok {
			r.log.WithField("academy", att.Academy).
				Warn("Attendance references unknown academy, skipped")
			report.SkippedSelections++
			continue
		}
		date, err := time.Parse("2006-01-02", att.Date)
		if err != nil {
			report.fail(r.log, "attendance", ref, err)
			continue
		}

		var levelID *uint
		lvlNorm := billing.NormalizeName(att.Level)
		if lvlNorm != "" {
			if id, ok := levelIDs[levelKey(norm, lvlNorm)]; ok {
				levelID = &id
			}
		}

		key := fmt.Sprintf("%d|%s|%s", academyID, att.Date, lvlNorm)
		sessionID, ok := sessionIDs[key]
		if !ok {
			sessionID, err = r.ensureSession(academyID, levelID, date, report)
			if err != nil {
				report.fail(r.log, "session", key, err)
				continue
			}
			sessionIDs[key] = sessionID
		}

		record := models.AttendanceRecord{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    att.Status,
			Progress:  att.Progress,
		}
		if record.Status == "" {
			record.Status = "present"
		}
		var existing models.AttendanceRecord
		err = r.db.Where("session_id = ? AND student_id = ?", sessionID, studentID).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			report.fail(r.log, "attendance", ref, err)
			continue
		}
		if err := r.db.Create(&record).Error; err != nil {
			report.fail(r.log, "attendance", fmt.Sprintf("%s#%d", ref, i), err)
			continue
		}
		report.AttendanceRecords++
	}
}

// ensureSession is check-then-create with conflict treated as already-exists.
func (r *Reconciler) ensureSession(academyID uint, levelID *uint, date time.Time, report *Report) (uint, error) {
	query := r.db.Where("academy_id = ? AND session_date = ?", academyID, date)
	if levelID != nil {
		query = query.Where("level_id = ?", *levelID)
	} else {
		query = query.Where("level_id IS NULL")
	}

	var session models.AttendanceSession
	err := query.First(&session).Error
	if err == nil {
		return session.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	session = models.AttendanceSession{
		AcademyID:   academyID,
		LevelID:     levelID,
		SessionDate: date,
	}
	if err := r.db.Create(&session).Error; err != nil {
		// Unique-key conflict: someone created it between check and create.
		var again models.AttendanceSession
		if ferr := query.First(&again).Error; ferr == nil {
			return again.ID, nil
		}
		return 0, err
	}
	report.Sessions++
	return session.ID, nil
}

// migrateInvoices writes legacy invoices into the decimal schema (amounts
// divided by 100) and returns the legacy-invoice-id -> new-id map payments
// resolve through. One invoice per student per semester: a student's second
// legacy invoice for the same period is reported, not written.
func (r *Reconciler) migrateInvoices(semesterID uint, regToStudent map[string]uint, report *Report) map[string]uint {
	invoiceIDs := make(map[string]uint, len(r.snap.Invoices))

	for _, legacy := range r.snap.Invoices {
		studentID, ok := regToStudent[legacy.RegistrationID]
		if !ok {
			r.log.WithField("registration", legacy.RegistrationID).
				Warn("Invoice references unknown registration, skipped")
			report.SkippedSelections++
			continue
		}

		var existing models.Invoice
		err := r.db.Where("student_id = ? AND semester_id = ?", studentID, semesterID).
			First(&existing).Error
		if err == nil {
			invoiceIDs[legacy.ID] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			report.fail(r.log, "invoice", legacy.ID, err)
			continue
		}

		total := legacy.Total
		if total == 0 {
			total = legacy.Subtotal - legacy.Discount
			if total < 0 {
				total = 0
			}
		}
		exonerated := legacy.Exonerated || (total == 0 && legacy.Discount > 0)

		invoice := models.Invoice{
			StudentID:      studentID,
			SemesterID:     semesterID,
			Subtotal:       billing.ToMajor(legacy.Subtotal),
			DiscountAmount: billing.ToMajor(legacy.Discount),
			DiscountNote:   legacy.DiscountNote,
			Total:          billing.ToMajor(total),
			PaidAmount:     billing.ToMajor(legacy.Paid),
			Balance:        billing.ToMajor(billing.BalanceOf(total, legacy.Paid)),
			Status:         billing.DeriveStatus(total, legacy.Paid, exonerated),
		}
		if err := r.db.Create(&invoice).Error; err != nil {
			report.fail(r.log, "invoice", legacy.ID, err)
			continue
		}
		for _, li := range legacy.Items {
			qty := li.Quantity
			if qty <= 0 {
				qty = 1
			}
			item := models.InvoiceItem{
				InvoiceID:   invoice.ID,
				Description: li.Description,
				AcademyName: li.Academy,
				LevelName:   li.Level,
				UnitPrice:   billing.ToMajor(li.UnitPrice),
				Quantity:    qty,
				Amount:      billing.ToMajor(li.UnitPrice * int64(qty)),
				Type:        models.ItemTypeAcademy,
			}
			if li.Academy == "" {
				item.Type = models.ItemTypeCharge
			}
			if err := r.db.Create(&item).Error; err != nil {
				report.fail(r.log, "invoice item", legacy.ID+"/"+li.Description, err)
			}
		}
		invoiceIDs[legacy.ID] = invoice.ID
		report.Invoices++
	}
	return invoiceIDs
}

// migratePayments writes legacy ledger entries against the migrated
// invoices, deduplicating on (invoice, amount, method, date).
func (r *Reconciler) migratePayments(invoiceIDs map[string]uint, report *Report) {
	for i, legacy := range r.snap.Payments {
		ref := fmt.Sprintf("%s#%d", legacy.InvoiceID, i)

		invoiceID, ok := invoiceIDs[legacy.InvoiceID]
		if !ok {
			r.log.WithField("invoice", legacy.InvoiceID).
				Warn("Payment references unknown invoice, skipped")
			report.SkippedSelections++
			continue
		}
		date, err := time.Parse("2006-01-02", legacy.Date)
		if err != nil {
			report.fail(r.log, "payment", ref, err)
			continue
		}

		var invoice models.Invoice
		if err := r.db.First(&invoice, invoiceID).Error; err != nil {
			report.fail(r.log, "payment", ref, err)
			continue
		}

		amount := billing.ToMajor(legacy.Amount)
		var existing models.Payment
		err = r.db.Where("invoice_id = ? AND amount = ? AND method = ? AND transaction_date = ?",
			invoiceID, amount, legacy.Method, date).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			report.fail(r.log, "payment", ref, err)
			continue
		}

		payment := models.Payment{
			InvoiceID:       invoiceID,
			StudentID:       invoice.StudentID,
			Amount:          amount,
			Method:          legacy.Method,
			Notes:           legacy.Notes,
			ReceiptNumber:   uuid.NewString(),
			TransactionDate: date,
		}
		if err := r.db.Create(&payment).Error; err != nil {
			report.fail(r.log, "payment", ref, err)
			continue
		}
		report.Payments++
	}
}

func resolveAlias(norm string) string {
	if alias, ok := academyAliases[norm]; ok {
		return alias
	}
	return norm
}

func levelKey(academyNorm, levelNorm string) string {
	return academyNorm + "|" + levelNorm
}

func upsertAcademy(db *gorm.DB, academy *models.Academy) (uint, bool, error) {
	var existing models.Academy
	err := db.Where("semester_id = ? AND normalized_name = ?",
		academy.SemesterID, academy.NormalizedName).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}
	if err := db.Create(academy).Error; err != nil {
		if ferr := db.Where("semester_id = ? AND normalized_name = ?",
			academy.SemesterID, academy.NormalizedName).First(&existing).Error; ferr == nil {
			return existing.ID, false, nil
		}
		return 0, false, err
	}
	return academy.ID, true, nil
}

func upsertLevel(db *gorm.DB, level *models.Level) (uint, bool, error) {
	var existing models.Level
	err := db.Where("academy_id = ? AND normalized_name = ?",
		level.AcademyID, level.NormalizedName).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}
	if err := db.Create(level).Error; err != nil {
		if ferr := db.Where("academy_id = ? AND normalized_name = ?",
			level.AcademyID, level.NormalizedName).First(&existing).Error; ferr == nil {
			return existing.ID, false, nil
		}
		return 0, false, err
	}
	return level.ID, true, nil
}

func firstOrCreateEnrollment(db *gorm.DB, enrollment *models.Enrollment) (bool, error) {
	query := db.Where("student_id = ? AND academy_id = ? AND semester_id = ?",
		enrollment.StudentID, enrollment.AcademyID, enrollment.SemesterID)
	if enrollment.LevelID != nil {
		query = query.Where("level_id = ?", *enrollment.LevelID)
	} else {
		query = query.Where("level_id IS NULL")
	}

	var existing models.Enrollment
	err := query.First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := db.Create(enrollment).Error; err != nil {
		return false, err
	}
	return true, nil
}
