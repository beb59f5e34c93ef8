package services

import (
	"be/types"
	"be/utils"
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (a *Api) Health() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		return ctx.Status(fiber.StatusOK).JSON(types.HealthResponse{
			Status:    fiber.StatusOK,
			TimeStamp: time.Now().Unix(),
		})
	}
}

// UploadTexture accepts a PNG from the browser and stores it alongside the
// saved designs so it can be applied to the model like any generated one.
func (a *Api) UploadTexture() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		header, err := ctx.FormFile("file")
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "missing file field",
			})
		}

		file, err := header.Open()
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "unreadable upload",
			})
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "unreadable upload",
			})
		}

		name, err := a.gallery.SavePNG(header.Filename, data)
		if err != nil {
			code := fiber.StatusInternalServerError
			if errors.Is(err, ErrNotPNG) {
				code = fiber.StatusUnsupportedMediaType
			}
			return ctx.Status(code).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "failed to store texture",
			})
		}

		return ctx.Status(fiber.StatusCreated).JSON(types.UploadTextureResponse{
			Name: name,
			Url:  DesignFileURL(name),
			Size: int64(len(data)),
		})
	}
}

func (a *Api) ListDesigns() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		designs, err := a.gallery.List()
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "failed to list designs",
			})
		}

		return ctx.Status(fiber.StatusOK).JSON(types.ListDesignsResponse{
			Designs: designs,
		})
	}
}

// SaveDesign queues an asynchronous save of a generation result; completion
// lands on the client's websocket.
func (a *Api) SaveDesign() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		var req types.SaveDesignRequest
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "invalid body",
			})
		}

		if req.ClientID == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   "clientId is required",
				Message: "missing clientId",
			})
		}
		if len(req.Result) == 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   "result payload is required",
				Message: "missing result",
			})
		}

		jobID := uuid.NewString()
		if err := a.gallery.Enqueue(SaveJob{
			JobID:    jobID,
			ClientID: req.ClientID,
			Name:     req.Name,
			Result:   req.Result,
		}); err != nil {
			code := fiber.StatusServiceUnavailable
			if errors.Is(err, ErrGalleryQueueFull) {
				code = fiber.StatusTooManyRequests
			}
			return ctx.Status(code).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "failed to enqueue design save",
			})
		}

		return ctx.Status(fiber.StatusAccepted).JSON(types.SaveDesignResponse{JobID: jobID})
	}
}

func (a *Api) DesignFile() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		name, err := url.PathUnescape(ctx.Params("name"))
		if err != nil || name == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   "design name is required",
				Message: "missing design name",
			})
		}

		path, err := utils.SafeSubdir(a.gallery.BaseDir(), name)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "invalid design name",
			})
		}

		return ctx.SendFile(path)
	}
}
