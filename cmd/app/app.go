package main

import (
	"os"

	"github.com/DRSN-tech/pharmacy-counter/internal/app"
	config "github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

//	@title			Pharmacy Counter API
//	@version		1.0
//	@description	Сессии прилавка аптеки: корзина, рецепты, оформление выдачи и печатные документы.
//	@host			localhost:8080
//	@BasePath		/api/v1
func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
