package main

import (
	"be/config"
	"be/internal/mediator"
	"log"

	"github.com/TypeTerrors/gonfig"
)

func main() {

	// Not strict: a missing FAL_KEY is allowed at boot and reported on the
	// generation stream instead.
	cfg, err := gonfig.Load[config.Config](
		gonfig.WithConfigFile("config/config.yaml"),
		gonfig.WithDotenv(".env"), // ignored if missing
	)
	if err != nil {
		log.Fatal(err)
	}

	app, err := mediator.NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Shutdown()

	app.Start()
}
