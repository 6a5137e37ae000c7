package main

import (
	"fmt"
	"os"
	"strings"

	"academias_go/config"
	"academias_go/database"
	"academias_go/migration"

	"github.com/sirupsen/logrus"
)

// One-shot migration of the legacy document export into the relational
// schema. No flags: destination credentials, the legacy export directory and
// the semester name come from the environment. Exits 0 on completion, even
// with partial per-record failures (they are reported); exits 1 only when
// credentials are missing or the semester cannot be established.
func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	config.LoadConfig()

	if missing := config.AppConfig.MissingDatabaseCredentials(); len(missing) > 0 {
		logrus.WithField("missing", missing).Error("Destination credentials are not configured")
		os.Exit(1)
	}
	if strings.TrimSpace(config.AppConfig.SemesterName) == "" {
		logrus.Error("SEMESTER_NAME is required")
		os.Exit(1)
	}

	snapshot, err := migration.LoadSnapshot(config.AppConfig.LegacyDataDir)
	if err != nil {
		logrus.WithError(err).WithField("dir", config.AppConfig.LegacyDataDir).
			Error("Failed to load legacy export")
		os.Exit(1)
	}

	database.Connect()
	defer database.Close()

	reconciler := migration.NewReconciler(database.GetDB(), snapshot)
	report, err := reconciler.Run(config.AppConfig.SemesterName)
	if err != nil {
		logrus.WithError(err).Error("Migration aborted")
		os.Exit(1)
	}

	printReport(report)
}

func printReport(report *migration.Report) {
	fmt.Printf("Migration summary for semester %q\n", report.Semester)
	fmt.Printf("  academies:          %d\n", report.Academies)
	fmt.Printf("  levels:             %d\n", report.Levels)
	fmt.Printf("  students:           %d (duplicates collapsed: %d)\n", report.Students, report.DuplicateStudents)
	fmt.Printf("  enrollments:        %d (selections skipped: %d)\n", report.Enrollments, report.SkippedSelections)
	fmt.Printf("  sessions:           %d\n", report.Sessions)
	fmt.Printf("  attendance records: %d\n", report.AttendanceRecords)
	fmt.Printf("  invoices:           %d\n", report.Invoices)
	fmt.Printf("  payments:           %d\n", report.Payments)
	if len(report.Failures) > 0 {
		fmt.Printf("  failures:           %d\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("    - %s\n", f)
		}
	}
}
