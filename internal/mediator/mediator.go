package mediator

import (
	"be/config"
	"be/internal/clients/fal"
	"be/internal/services"
	"context"
)

type App struct {
	api     *services.Api
	hub     *services.Hub
	gallery *services.GalleryService
	cancel  context.CancelFunc
	// settings
	Config *config.Config
}

func NewApp(config config.Config) (*App, error) {

	ctx, cancel := context.WithCancel(context.Background())

	hub := services.NewHub()

	gallery := services.NewGalleryService(hub, config.Designs, ctx)
	gallery.Run()

	generator := fal.NewClient(config.Fal)

	api := services.NewApi(generator, gallery, hub, config.Api)

	return &App{
		api:     api,
		hub:     hub,
		gallery: gallery,
		cancel:  cancel,
		Config:  &config,
	}, nil
}

func (a *App) Start() {
	a.api.Start()
}

func (a *App) Shutdown() {
	a.cancel()
	if a.gallery != nil {
		a.gallery.Shutdown()
	}
	if a.hub != nil {
		a.hub.Shutdown()
	}
}
