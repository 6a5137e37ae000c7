package seeders

import (
	"log"
	"time"

	"academias_go/database"
	"academias_go/models"
	"academias_go/services/billing"
	"academias_go/utils"

	"github.com/shopspring/decimal"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	semester := SeedSemester()
	SeedAcademies(semester)

	log.Println("Database seeding completed successfully!")
}

// SeedSemester seeds the current semester
func SeedSemester() *models.Semester {
	var existing models.Semester
	if err := database.DB.Where("name = ?", "2026-B").First(&existing).Error; err == nil {
		log.Println("Semester already seeded, skipping...")
		return &existing
	}

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)
	semester := models.Semester{
		Name:      "2026-B",
		StartDate: &start,
		EndDate:   &end,
		Active:    true,
	}
	if err := database.DB.Create(&semester).Error; err != nil {
		log.Printf("Error seeding semester: %v", err)
		return &semester
	}

	log.Println("Semester seeded successfully")
	return &semester
}

type seedAcademy struct {
	Name      string
	UnitPrice string
	Levels    []string
}

// SeedAcademies seeds the academy catalog for a semester
func SeedAcademies(semester *models.Semester) {
	var count int64
	database.DB.Model(&models.Academy{}).Where("semester_id = ?", semester.ID).Count(&count)
	if count > 0 {
		log.Println("Academies already seeded, skipping...")
		return
	}

	catalog := []seedAcademy{
		{Name: "Art", UnitPrice: "100.00", Levels: []string{"Beginner", "Advanced"}},
		{Name: "Music", UnitPrice: "120.00", Levels: []string{"Piano", "Guitar", "Choir"}},
		{Name: "Ballet", UnitPrice: "90.00", Levels: []string{"Initial", "Intermediate"}},
		{Name: "Robotics", UnitPrice: "150.00", Levels: nil},
		{Name: "Theater", UnitPrice: "85.00", Levels: nil},
		{Name: "Chess", UnitPrice: "75.00", Levels: nil},
		{Name: "Soccer", UnitPrice: "80.00", Levels: []string{"Infantil", "Juvenil"}},
	}

	for i, entry := range catalog {
		price, err := decimal.NewFromString(entry.UnitPrice)
		if err != nil {
			log.Printf("Error parsing price for %s: %v", entry.Name, err)
			continue
		}
		academy := models.Academy{
			SemesterID:     semester.ID,
			Name:           entry.Name,
			NormalizedName: billing.NormalizeName(entry.Name),
			Slug:           utils.Slugify(entry.Name),
			UnitPrice:      price,
			SortOrder:      i + 1,
			Active:         true,
		}
		if err := database.DB.Create(&academy).Error; err != nil {
			log.Printf("Error seeding academy %s: %v", entry.Name, err)
			continue
		}
		for _, levelName := range entry.Levels {
			level := models.Level{
				AcademyID:      academy.ID,
				Name:           levelName,
				NormalizedName: billing.NormalizeName(levelName),
			}
			if err := database.DB.Create(&level).Error; err != nil {
				log.Printf("Error seeding level %s for %s: %v", levelName, entry.Name, err)
			}
		}
	}

	log.Println("Academies seeded successfully")
}
