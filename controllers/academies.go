package controllers

import (
	"strconv"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/models"
	"academias_go/services/billing"
	"academias_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AcademyController struct{}

type AcademyRequest struct {
	SemesterID uint            `json:"semester_id" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	SortOrder  int             `json:"sort_order"`
	Active     *bool           `json:"active"`
	Levels     []LevelRequest  `json:"levels"`
}

type LevelRequest struct {
	Name     string `json:"name" validate:"required"`
	Schedule string `json:"schedule"`
}

// GetAcademies lists academies for a semester, levels included.
func (ac *AcademyController) GetAcademies(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Academy{}).Preload("Levels")

	if semesterID := c.Query("semester_id"); semesterID != "" {
		query = query.Where("semester_id = ?", semesterID)
	}
	if c.Query("active") == "true" {
		query = query.Where("active = ?", true)
	}

	var academies []models.Academy
	if err := query.Order("sort_order ASC, normalized_name ASC").Find(&academies).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch academies",
		})
	}

	return c.JSON(fiber.Map{
		"academies": academies,
	})
}

// GetAcademy returns a specific academy with its levels
func (ac *AcademyController) GetAcademy(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid academy ID",
		})
	}

	var academy models.Academy
	if err := database.DB.Preload("Levels").Preload("Semester").
		First(&academy, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Academy not found",
		})
	}

	return c.JSON(fiber.Map{
		"academy": academy,
	})
}

// CreateAcademy creates an academy with optional levels. Identity is the
// normalized name within the semester.
func (ac *AcademyController) CreateAcademy(c *fiber.Ctx) error {
	var req AcademyRequest
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

	normalized := billing.NormalizeName(req.Name)
	var existing models.Academy
	if err := database.DB.Where("semester_id = ? AND normalized_name = ?",
		req.SemesterID, normalized).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Academy already exists for this semester",
		})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	academy := models.Academy{
		SemesterID:     req.SemesterID,
		Name:           req.Name,
		NormalizedName: normalized,
		Slug:           utils.Slugify(req.Name),
		UnitPrice:      req.UnitPrice,
		SortOrder:      req.SortOrder,
		Active:         active,
	}
	if err := database.DB.Create(&academy).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create academy",
		})
	}

	for _, lr := range req.Levels {
		level := models.Level{
			AcademyID:      academy.ID,
			Name:           lr.Name,
			NormalizedName: billing.NormalizeName(lr.Name),
			Schedule:       lr.Schedule,
		}
		if err := database.DB.Create(&level).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create level",
			})
		}
		academy.Levels = append(academy.Levels, level)
	}

	middleware.LogActivity(c, "CREATE", "academies", academy.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Academy created successfully",
		"academy": academy,
	})
}

// UpdateAcademy updates price, ordering and active flag. Renames re-derive
// the normalized name and slug.
func (ac *AcademyController) UpdateAcademy(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid academy ID",
		})
	}

	var academy models.Academy
	if err := database.DB.First(&academy, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Academy not found",
		})
	}

	var req AcademyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updates := map[string]interface{}{
		"unit_price": req.UnitPrice,
		"sort_order": req.SortOrder,
	}
	if req.Name != "" && req.Name != academy.Name {
		updates["name"] = req.Name
		updates["normalized_name"] = billing.NormalizeName(req.Name)
		updates["slug"] = utils.Slugify(req.Name)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if err := database.DB.Model(&academy).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update academy",
		})
	}

	middleware.LogActivity(c, "UPDATE", "academies", academy.ID, updates)

	return c.JSON(fiber.Map{
		"message": "Academy updated successfully",
		"academy": academy,
	})
}

// CreateLevel adds a level to an academy
func (ac *AcademyController) CreateLevel(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid academy ID",
		})
	}

	var academy models.Academy
	if err := database.DB.First(&academy, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Academy not found",
		})
	}

	var req LevelRequest
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

	normalized := billing.NormalizeName(req.Name)
	var existing models.Level
	if err := database.DB.Where("academy_id = ? AND normalized_name = ?",
		academy.ID, normalized).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Level already exists for this academy",
		})
	}

	level := models.Level{
		AcademyID:      academy.ID,
		Name:           req.Name,
		NormalizedName: normalized,
		Schedule:       req.Schedule,
	}
	if err := database.DB.Create(&level).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create level",
		})
	}

	middleware.LogActivity(c, "CREATE", "levels", level.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Level created successfully",
		"level":   level,
	})
}
