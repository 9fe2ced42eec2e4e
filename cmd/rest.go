package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/adapter/rest"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/application"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/infrastructure/engine"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/repository"
	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	coreDB "github.com/VIER-CognitiveVoice/cvg-connect/core/database"
	settingsApp "github.com/VIER-CognitiveVoice/cvg-connect/core/settings/application"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/taskrunner"
	"github.com/VIER-CognitiveVoice/cvg-connect/ui/rest/middleware"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the Cognitive Voice Gateway webhook over http",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	cfg := coreconfig.Global

	// The journal and settings store are optional: when the database cannot
	// be opened the connector keeps running without them.
	var journal domain.JournalRepository
	var settingsSvc *settingsApp.SettingsService
	if cfg.Database.Driver == "sqlite" || cfg.Database.Driver == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Name), 0o755); err != nil {
			logrus.WithError(err).Error("[DB] Could not prepare storage directory")
		}
	}
	if db, err := coreDB.NewDatabase(cfg); err != nil {
		logrus.WithError(err).Error("[DB] Dialog journal disabled, could not open database")
	} else {
		repo := repository.NewJournalGormRepository(db)
		if err := repo.InitSchema(cmd.Context()); err != nil {
			logrus.WithError(err).Error("[DB] Dialog journal disabled, migration failed")
		} else {
			journal = repo
		}

		// Stored settings win over environment defaults.
		settingsSvc = settingsApp.NewSettingsService(db)
		if ds, err := settingsSvc.GetDynamicSettings(cmd.Context()); err != nil {
			logrus.WithError(err).Error("[SETTINGS] Could not load dynamic settings, using environment values")
		} else {
			ds.Apply(cfg)
		}
	}

	pool := taskrunner.GetGlobalPool()

	outputs := application.NewOutputFactory(cfg.CVG, pool, journal)
	handler := engine.NewHandler(cfg.Engine)
	outputs.SetMessageHandler(handler)
	service := application.NewInboundService(cfg.CVG, outputs, journal, pool, handler)

	app := fiber.New(fiber.Config{
		Network:               "tcp",
		AppName:               "CVG Connect " + cfg.App.Version,
		DisableStartupMessage: false,
	})

	app.Use(requestid.New())
	app.Use(middleware.Recovery())
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	group := app.Group(cfg.App.BasePath)
	rest.InitRestWebhook(group, cfg.CVG.Token, service, journal)
	if settingsSvc != nil {
		rest.InitRestSettings(group, cfg.CVG.Token, settingsSvc)
	}

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		taskrunner.StopGlobalPool()
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}
