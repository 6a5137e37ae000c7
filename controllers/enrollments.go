package controllers

import (
	"strconv"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/models"
	"academias_go/utils"

	"github.com/gofiber/fiber/v2"
)

type EnrollmentController struct{}

type EnrollmentRequest struct {
	StudentID  uint  `json:"student_id" validate:"required"`
	AcademyID  uint  `json:"academy_id" validate:"required"`
	LevelID    *uint `json:"level_id"`
	SemesterID uint  `json:"semester_id" validate:"required"`
}

// GetEnrollments lists enrollments filtered by student, academy or semester.
func (ec *EnrollmentController) GetEnrollments(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Enrollment{}).
		Preload("Student").Preload("Academy").Preload("Level")

	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if academyID := c.Query("academy_id"); academyID != "" {
		query = query.Where("academy_id = ?", academyID)
	}
	if semesterID := c.Query("semester_id"); semesterID != "" {
		query = query.Where("semester_id = ?", semesterID)
	}
	if status := c.Query("status"); status != "" {
		if !utils.IsValidEnrollmentStatus(status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid enrollment status",
			})
		}
		query = query.Where("status = ?", status)
	}

	var enrollments []models.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch enrollments",
		})
	}

	return c.JSON(fiber.Map{
		"enrollments": enrollments,
	})
}

// CreateEnrollment enrolls a student in an academy and refreshes the
// student's semester invoice so the new line is billed.
func (ec *EnrollmentController) CreateEnrollment(c *fiber.Ctx) error {
	var req EnrollmentRequest
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

	var academy models.Academy
	if err := database.DB.First(&academy, req.AcademyID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Academy not found",
		})
	}
	if academy.SemesterID != req.SemesterID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Academy does not belong to the given semester",
		})
	}
	var student models.Student
	if err := database.DB.First(&student, req.StudentID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var existing models.Enrollment
	err := database.DB.Where("student_id = ? AND academy_id = ? AND semester_id = ?",
		req.StudentID, req.AcademyID, req.SemesterID).First(&existing).Error
	if err == nil {
		if existing.Status == models.EnrollmentStatusActive {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Student is already enrolled in this academy",
			})
		}
		// Re-activate a withdrawn enrollment instead of duplicating the row.
		updates := map[string]interface{}{
			"status":   models.EnrollmentStatusActive,
			"level_id": req.LevelID,
		}
		if err := database.DB.Model(&existing).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update enrollment",
			})
		}
		return ec.respondWithRefresh(c, &existing, fiber.StatusOK, "Enrollment re-activated")
	}

	enrollment := models.Enrollment{
		StudentID:  req.StudentID,
		AcademyID:  req.AcademyID,
		LevelID:    req.LevelID,
		SemesterID: req.SemesterID,
		Status:     models.EnrollmentStatusActive,
	}
	if err := database.DB.Create(&enrollment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create enrollment",
		})
	}

	middleware.LogActivity(c, "CREATE", "enrollments", enrollment.ID, req)

	return ec.respondWithRefresh(c, &enrollment, fiber.StatusCreated, "Enrollment created successfully")
}

// WithdrawEnrollment marks an enrollment withdrawn and refreshes the invoice.
// Already-paid coverage stays billed; only unpaid lines drop.
func (ec *EnrollmentController) WithdrawEnrollment(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid enrollment ID",
		})
	}

	var enrollment models.Enrollment
	if err := database.DB.First(&enrollment, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Enrollment not found",
		})
	}
	if enrollment.Status == models.EnrollmentStatusWithdrawn {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Enrollment is already withdrawn",
		})
	}

	if err := database.DB.Model(&enrollment).
		Update("status", models.EnrollmentStatusWithdrawn).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to withdraw enrollment",
		})
	}

	middleware.LogActivity(c, "UPDATE", "enrollments", enrollment.ID, fiber.Map{"status": models.EnrollmentStatusWithdrawn})

	return ec.respondWithRefresh(c, &enrollment, fiber.StatusOK, "Enrollment withdrawn")
}

func (ec *EnrollmentController) respondWithRefresh(c *fiber.Ctx, enrollment *models.Enrollment, status int, message string) error {
	invoice, err := refreshStudentInvoice(enrollment.StudentID, enrollment.SemesterID, "")
	if err != nil {
		return billingError(c, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message":    message,
		"enrollment": enrollment,
		"invoice":    invoice,
	})
}
