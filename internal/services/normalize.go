package services

import (
	"be/internal/clients/fal"
	"errors"
	"fmt"
	"strconv"
)

var ErrMissingPrompt = errors.New("prompt is required")

// parseGenerateRequest turns raw query parameters into the typed generation
// payload. prompt must be present and non-empty. seed and num_images must
// parse as base-10 integers when present; an unparseable value is rejected
// rather than silently dropped, so the browser learns its request was wrong.
// Every other parameter passes through to the upstream payload untouched.
func parseGenerateRequest(params map[string]string) (fal.GenerateRequest, error) {

	req := fal.GenerateRequest{}

	for key, val := range params {
		switch key {
		case "prompt":
			req.Prompt = val
		case "seed":
			seed, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fal.GenerateRequest{}, fmt.Errorf("seed must be an integer, got %q", val)
			}
			req.Seed = &seed
		case "num_images", "numImages":
			num, err := strconv.Atoi(val)
			if err != nil {
				return fal.GenerateRequest{}, fmt.Errorf("num_images must be an integer, got %q", val)
			}
			req.NumImages = &num
		case "image_size", "imageSize":
			req.ImageSize = val
		default:
			if req.Extra == nil {
				req.Extra = make(map[string]string)
			}
			req.Extra[key] = val
		}
	}

	if req.Prompt == "" {
		return fal.GenerateRequest{}, ErrMissingPrompt
	}

	return req, nil
}
