package services

import (
	"be/config"
	"be/internal/clients/fal"
	"be/internal/clients/transport"
	"be/types"
	"be/utils"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrGalleryShuttingDown = errors.New("service shutting down")
	ErrGalleryQueueFull    = errors.New("queue full")
	ErrNotPNG              = errors.New("file is not a png")
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// SaveJob persists one generated design: fetch the image behind the result
// payload and drop it in the designs directory.
type SaveJob struct {
	JobID    string
	ClientID string
	Name     string
	Result   json.RawMessage
}

type GalleryService struct {
	hub     *Hub
	baseDir string

	queue chan SaveJob
	group errgroup.Group

	mu      sync.RWMutex
	closing bool

	httpClient *http.Client
	ctx        context.Context
}

func NewGalleryService(hub *Hub, config config.DesignsConfig, ctx context.Context) *GalleryService {
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	s := &GalleryService{
		hub:     hub,
		baseDir: config.BaseDir,
		queue:   make(chan SaveJob, config.QueueSize),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		ctx: ctx,
	}
	s.group.SetLimit(config.MaxConcurrent) // battery slots
	return s
}

func (g *GalleryService) Run() {
	go func() {
		for {
			select {
			case <-g.ctx.Done():
				return
			case job, ok := <-g.queue:
				if !ok {
					return
				}
				jobCopy := job
				g.group.Go(func() error {
					g.runJob(jobCopy)
					return nil
				})
			}
		}
	}()
}

func (g *GalleryService) Enqueue(job SaveJob) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closing {
		return ErrGalleryShuttingDown
	}
	select {
	case g.queue <- job:
		return nil
	default:
		return ErrGalleryQueueFull
	}
}

func (g *GalleryService) Shutdown() {
	g.mu.Lock()
	if !g.closing {
		g.closing = true
		close(g.queue)
	}
	g.mu.Unlock()
	_ = g.group.Wait()
}

// WS only emits completion/failure.
func (g *GalleryService) runJob(job SaveJob) {
	if g.ctx.Err() != nil {
		return
	}

	imageUrl, err := fal.FirstImageURL(job.Result)
	if err != nil {
		g.fail(job, err.Error())
		return
	}

	name, err := g.saveFromURL(imageUrl, job.Name)
	if err != nil {
		g.fail(job, err.Error())
		return
	}

	g.hub.SendTo(job.ClientID, WSEvent{
		Type:  "design.completed",
		JobID: job.JobID,
		Name:  name,
		Url:   DesignFileURL(name),
	})
}

func (g *GalleryService) fail(job SaveJob, message string) {
	g.hub.SendTo(job.ClientID, WSEvent{
		Type:    "design.failed",
		JobID:   job.JobID,
		Message: message,
	})
}

func (g *GalleryService) saveFromURL(imageUrl, preferredName string) (string, error) {

	resp, err := transport.Download(*g.httpClient, g.ctx, imageUrl, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := strings.TrimSpace(preferredName)
	if name == "" {
		if cd := resp.Header.Get("Content-Disposition"); cd != "" {
			name = utils.FileNameFromCd(cd)
		}
	}
	if name == "" {
		if parsed, err := url.Parse(imageUrl); err == nil {
			name = filepath.Base(parsed.Path)
		}
	}
	name = utils.SanitizeImageFilename(name)

	if err := os.MkdirAll(g.baseDir, 0o755); err != nil {
		return "", err
	}

	tmpPath := filepath.Join(g.baseDir, name+".part")
	finalPath := filepath.Join(g.baseDir, name)

	out, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}

	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return "", copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return "", closeErr
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return name, nil
}

// SavePNG stores an uploaded texture. The payload must carry the PNG
// signature; content-type headers alone are not trusted.
func (g *GalleryService) SavePNG(name string, data []byte) (string, error) {

	if !bytes.HasPrefix(data, pngMagic) {
		return "", ErrNotPNG
	}

	name = utils.SanitizeImageFilename(name)
	if !strings.HasSuffix(name, ".png") {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}

	if err := os.MkdirAll(g.baseDir, 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(g.baseDir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (g *GalleryService) List() ([]types.DesignEntry, error) {

	entries, err := os.ReadDir(g.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.DesignEntry{}, nil
		}
		return nil, err
	}

	designs := make([]types.DesignEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		designs = append(designs, types.DesignEntry{
			Name:       entry.Name(),
			Url:        DesignFileURL(entry.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().Unix(),
		})
	}

	// newest first
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].ModifiedAt > designs[j].ModifiedAt
	})
	return designs, nil
}

func (g *GalleryService) BaseDir() string {
	return g.baseDir
}

func DesignFileURL(name string) string {
	return fmt.Sprintf("/designs/file/%s", url.PathEscape(name))
}
