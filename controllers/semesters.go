package controllers

import (
	"time"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/models"

	"github.com/gofiber/fiber/v2"
)

type SemesterController struct{}

type SemesterRequest struct {
	Name      string     `json:"name" validate:"required"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Active    *bool      `json:"active"`
}

// GetSemesters lists all semesters, newest first
func (sc *SemesterController) GetSemesters(c *fiber.Ctx) error {
	var semesters []models.Semester
	if err := database.DB.Order("id DESC").Find(&semesters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch semesters",
		})
	}

	return c.JSON(fiber.Map{
		"semesters": semesters,
	})
}

// CreateSemester creates a semester. Names are unique.
func (sc *SemesterController) CreateSemester(c *fiber.Ctx) error {
	var req SemesterRequest
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

	var existing models.Semester
	if err := database.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Semester already exists",
		})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	semester := models.Semester{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Active:    active,
	}
	if err := database.DB.Create(&semester).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create semester",
		})
	}

	middleware.LogActivity(c, "CREATE", "semesters", semester.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Semester created successfully",
		"semester": semester,
	})
}
