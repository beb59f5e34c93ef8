package services

import (
	"be/config"
	"be/internal/clients/fal"
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Generator is the upstream generation subscription the relay consumes. The
// concrete implementation is the fal queue client; tests inject fakes.
type Generator interface {
	Subscribe(ctx context.Context, req fal.GenerateRequest) <-chan fal.Event
}

type Api struct {
	server         *fiber.App
	generator      Generator
	gallery        *GalleryService
	hub            *Hub
	port           string
	allowedOrigins string
}

func NewApi(generator Generator, gallery *GalleryService, hub *Hub, config config.ApiConfig) *Api {
	if config.AllowedOrigins == "" {
		config.AllowedOrigins = "*"
	}

	return &Api{
		server:         fiber.New(),
		generator:      generator,
		gallery:        gallery,
		hub:            hub,
		port:           config.Port,
		allowedOrigins: config.AllowedOrigins,
	}
}

func (a *Api) Start() {

	allowCredentials := a.allowedOrigins != "*"

	a.server.Use(cors.New(cors.Config{
		AllowOrigins:     a.allowedOrigins,
		AllowCredentials: allowCredentials,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization,Accept,Origin",
	}))
	a.server.Use(RequestLogger())

	a.addRoutes()

	log.Fatal(a.server.Listen(fmt.Sprint(":", a.port)))
}

func (a *Api) addRoutes() {
	a.server.Add("GET", "/health", a.Health())
	a.server.Add("GET", "/generate", a.GenerateTexture())
	a.server.Add("POST", "/textures", a.UploadTexture())
	a.server.Add("GET", "/designs", a.ListDesigns())
	a.server.Add("POST", "/designs", a.SaveDesign())
	a.server.Add("GET", "/designs/file/:name", a.DesignFile())

	// websocket connection
	a.server.Use("/ws", a.WsUpgrade())
	a.server.Get("/ws/notifications", a.Notifications())
}
