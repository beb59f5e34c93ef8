package services

import (
	"be/internal/clients/fal"
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// GenerateTexture relays one generation request as a server-sent event
// stream: zero or more status/log events in upstream order, then exactly one
// result or error event, then the connection closes. All failures, including
// bad query parameters and a missing upstream credential, surface as the
// terminal error event on the stream rather than as an HTTP status.
func (a *Api) GenerateTexture() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		// The fiber context is recycled once this handler returns, so
		// everything the stream writer needs is captured up front.
		params := make(map[string]string)
		ctx.Context().QueryArgs().VisitAll(func(key, val []byte) {
			params[string(key)] = string(val)
		})
		req, parseErr := parseGenerateRequest(params)

		logger := HttpLogger("generate", ctx)
		generator := a.generator

		ctx.Set(fiber.HeaderContentType, "text/event-stream")
		ctx.Set(fiber.HeaderCacheControl, "no-cache")
		ctx.Set(fiber.HeaderConnection, "keep-alive")
		ctx.Set(fiber.HeaderAccessControlAllowOrigin, "*")

		ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			stream := newEventStream(w, logger)
			defer stream.Close()

			if parseErr != nil {
				logger.Warn("rejected generation request", "err", parseErr)
				stream.Fail(parseErr.Error(), "")
				return
			}

			subCtx, cancel := context.WithCancel(context.Background())
			defer cancel()

			relayEvents(stream, cancel, generator.Subscribe(subCtx, req))
		}))
		return nil
	}
}

// relayEvents pumps one subscription onto one client stream. cancel is
// invoked once the client disconnects so the upstream poll loop stops; the
// channel is still drained so the producer goroutine can finish.
func relayEvents(stream *eventStream, cancel context.CancelFunc, events <-chan fal.Event) {
	for ev := range events {
		switch {
		case ev.Update != nil:
			stream.Status(ev.Update.Status)
			for _, line := range ev.Update.Logs {
				stream.Log(line.Message)
			}
		case ev.Err != nil:
			stream.Fail("image generation failed", ev.Err.Error())
			return
		default:
			stream.Result(ev.Result)
			return
		}

		if stream.Closed() {
			cancel()
		}
	}

	// Producer ended without a terminal event; only happens when the
	// subscription context was cancelled mid-flight.
	stream.Fail("image generation ended unexpectedly", "")
}
