package main

import (
	"os"

	"academias_go/config"
	"academias_go/database"
	"academias_go/database/seeders"

	"github.com/sirupsen/logrus"
)

// Seeds the semester and academy catalog. Safe to re-run; existing rows are
// left alone.
func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	config.LoadConfig()

	if missing := config.AppConfig.MissingDatabaseCredentials(); len(missing) > 0 {
		logrus.WithField("missing", missing).Error("Database credentials are not configured")
		os.Exit(1)
	}

	database.Connect()
	defer database.Close()

	seeders.SeedAll()
}
