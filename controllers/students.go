package controllers

import (
	"errors"
	"strconv"
	"strings"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/models"
	"academias_go/services/billing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

type StudentController struct{}

// RegisterStudentRequest is the public registration payload. The embedded
// SelectionSet accepts both enrollment encodings.
type RegisterStudentRequest struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
	ContactSource string `json:"contact_source"`
	SemesterID    uint   `json:"semester_id" validate:"required"`
	DiscountCode  string `json:"discount_code"`

	billing.SelectionSet
}

// RegisterStudent handles public registration: the student is matched by
// case-insensitive email (created on first registration), enrollments are
// created from the selections, and the semester invoice is created or
// refreshed.
func (sc *StudentController) RegisterStudent(c *fiber.Ctx) error {
	var req RegisterStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var semester models.Semester
	if err := database.DB.First(&semester, req.SemesterID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Semester not found",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var student models.Student
	err := database.DB.Where("email = ? AND email <> ''", email).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		student = models.Student{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         email,
			Phone:         req.Phone,
			Address:       req.Address,
			City:          req.City,
			GuardianName:  req.GuardianName,
			GuardianPhone: req.GuardianPhone,
			ContactSource: req.ContactSource,
		}
		if err := database.DB.Create(&student).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create student",
			})
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to look up student",
		})
	}

	skipped := sc.enrollSelections(&student, semester.ID, req.SelectionSet)

	invoice, err := refreshStudentInvoice(student.ID, semester.ID, req.DiscountCode)
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "students", student.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":            "Registration recorded",
		"student":            student,
		"invoice":            invoice,
		"skipped_selections": skipped,
	})
}

// enrollSelections creates an active enrollment per resolvable selection.
// Unknown academy names are returned, not fatal.
func (sc *StudentController) enrollSelections(student *models.Student, semesterID uint, set billing.SelectionSet) []string {
	var skipped []string
	for _, sel := range set.Normalize() {
		var academy models.Academy
		err := database.DB.Where("semester_id = ? AND normalized_name = ?",
			semesterID, billing.NormalizeName(sel.Academy)).First(&academy).Error
		if err != nil {
			skipped = append(skipped, sel.Academy)
			continue
		}

		var levelID *uint
		if sel.Level != "" {
			var level models.Level
			if err := database.DB.Where("academy_id = ? AND normalized_name = ?",
				academy.ID, billing.NormalizeName(sel.Level)).First(&level).Error; err == nil {
				levelID = &level.ID
			}
		}

		enrollment := models.Enrollment{
			StudentID:  student.ID,
			AcademyID:  academy.ID,
			LevelID:    levelID,
			SemesterID: semesterID,
			Status:     models.EnrollmentStatusActive,
		}
		query := database.DB.Where("student_id = ? AND academy_id = ? AND semester_id = ?",
			student.ID, academy.ID, semesterID)
		var existing models.Enrollment
		if err := query.First(&existing).Error; err == nil {
			if existing.Status == models.EnrollmentStatusWithdrawn {
				// Re-registration names the academy again: re-activate the
				// withdrawn row instead of ignoring the selection.
				updates := map[string]interface{}{
					"status":   models.EnrollmentStatusActive,
					"level_id": levelID,
				}
				if err := database.DB.Model(&existing).Updates(updates).Error; err != nil {
					skipped = append(skipped, sel.Academy)
				}
			}
			continue
		}
		if err := database.DB.Create(&enrollment).Error; err != nil {
			skipped = append(skipped, sel.Academy)
		}
	}
	return skipped
}

// GetStudents returns all students with pagination
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	offset := (page - 1) * limit

	var students []models.Student
	var total int64

	query := database.DB.Model(&models.Student{})

	if email := c.Query("email"); email != "" {
		query = query.Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	}
	if city := c.Query("city"); city != "" {
		query = query.Where("city = ?", city)
	}

	query.Count(&total)

	if err := query.Preload("Enrollments").
		Offset(offset).Limit(limit).Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{
		"students": students,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStudent returns a specific student by ID
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.Preload("Enrollments.Academy").Preload("Enrollments.Level").
		Preload("Invoices").First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	return c.JSON(fiber.Map{
		"student": student,
	})
}

// UpdateStudent updates identity and contact fields.
func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var updateData models.Student
	if err := c.BodyParser(&updateData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	updateData.Email = strings.ToLower(strings.TrimSpace(updateData.Email))
	updateData.LegacyID = student.LegacyID

	if err := database.DB.Model(&student).Updates(updateData).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update student",
		})
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, updateData)

	return c.JSON(fiber.Map{
		"message": "Student updated successfully",
		"student": student,
	})
}

// DeleteStudent hard-deletes a student. Allowed only when no enrollments
// remain anywhere for the student.
func (sc *StudentController) DeleteStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var enrollments int64
	database.DB.Model(&models.Enrollment{}).Where("student_id = ?", student.ID).Count(&enrollments)
	if enrollments > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Student still has enrollments",
		})
	}

	var invoices int64
	database.DB.Model(&models.Invoice{}).Where("student_id = ?", student.ID).Count(&invoices)
	if invoices > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Student still has invoices",
		})
	}

	if err := database.DB.Unscoped().Delete(&student).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete student",
		})
	}

	middleware.LogActivity(c, "DELETE", "students", student.ID, student)

	return c.JSON(fiber.Map{
		"message": "Student deleted successfully",
	})
}

// refreshStudentInvoice creates or refreshes the semester invoice after an
// enrollment change.
func refreshStudentInvoice(studentID, semesterID uint, discountCode string) (*models.Invoice, error) {
	resolver, err := billing.ResolverForSemester(database.DB, semesterID)
	if err != nil {
		return nil, err
	}
	svc := billing.NewInvoiceService(database.DB, resolver)

	if discountCode != "" {
		invoice, err := svc.CreateInvoice(billing.InvoiceInput{
			StudentID:    studentID,
			SemesterID:   semesterID,
			DiscountCode: discountCode,
		})
		if err == nil {
			return invoice, nil
		}
		if !errors.Is(err, billing.ErrDuplicateInvoice) {
			return nil, err
		}
		// Invoice already exists; fall through to a refresh which keeps the
		// recorded discount and payments.
	}
	return svc.RefreshInvoice(studentID, semesterID)
}
