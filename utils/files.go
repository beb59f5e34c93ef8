package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

func FileNameFromCd(cd string) string {
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	fn := strings.TrimSpace(params["filename"])
	fn = strings.ReplaceAll(fn, string(os.PathSeparator), "_")
	return fn
}

// prevents directory traversal; only resolves paths under base
func SafeSubdir(base, subdir string) (string, error) {
	subdir = strings.TrimSpace(subdir)
	subdir = strings.TrimPrefix(subdir, "/")
	subdir = strings.TrimPrefix(subdir, "\\")
	clean := filepath.Clean(subdir)

	if clean == "." || clean == "" {
		return filepath.Abs(base)
	}

	joined := filepath.Join(base, clean)

	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	joinedAbs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	sep := string(os.PathSeparator)
	if !(joinedAbs == baseAbs || strings.HasPrefix(joinedAbs, baseAbs+sep)) {
		return "", errors.New("path traversal detected")
	}
	return joinedAbs, nil
}

// SanitizeImageFilename normalizes a filename coming from a download or an
// upload form. Nested paths from the remote side are flattened and the stem
// may not contain spaces or periods.
func SanitizeImageFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "design.png"
	}

	// Prevent any path traversal / nested paths from the server.
	filename = filepath.Base(filename)

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	if ext == "" {
		ext = ".png"
	}

	stem = strings.Join(strings.Fields(stem), "-")
	stem = strings.ReplaceAll(stem, ".", "-")
	stem = strings.Trim(stem, "-")
	if stem == "" {
		stem = "design"
	}

	ext = strings.ReplaceAll(ext, " ", "")
	return stem + strings.ToLower(ext)
}

func NewJobID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
