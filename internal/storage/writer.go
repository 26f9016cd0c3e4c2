package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/qepting91/reddit-relay/internal/domain"
)

// WriterService is the single writer for the export file; every producer
// sends posts on one channel.
type WriterService struct {
	FilePath string
	Logger   *slog.Logger

	mu      sync.Mutex
	written int
}

// Start appends each post as one JSON line until input is closed.
func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan domain.Post) {
	defer wg.Done()
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(w.FilePath), 0o755); err != nil {
		logger.Error("creating export dir failed", "path", w.FilePath, "error", err)
		drain(input)
		return
	}
	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("opening export failed", "path", w.FilePath, "error", err)
		drain(input)
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for post := range input {
		if err := enc.Encode(post); err != nil {
			logger.Error("writing post failed", "id", post.ID, "error", err)
			continue
		}
		w.mu.Lock()
		w.written++
		w.mu.Unlock()
	}
}

// Written returns how many posts have been appended so far.
func (w *WriterService) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// drain keeps producers from blocking when the file cannot be written.
func drain(input <-chan domain.Post) {
	for range input {
	}
}

// LoadPosts reads an NDJSON export. A missing file is an empty export;
// lines that do not decode are skipped.
func LoadPosts(path string) ([]domain.Post, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var posts []domain.Post
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p domain.Post
		if err := json.Unmarshal(scanner.Bytes(), &p); err == nil {
			posts = append(posts, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return posts, fmt.Errorf("reading %s: %w", path, err)
	}
	return posts, nil
}
