// shipper.go forwards committed audit entries to external destinations (a
// JSON-lines file, a webhook) so a SIEM or log aggregator can keep its own
// copy of the trail. Shipping happens after commit, off the request path;
// a destination failure never disturbs the save it describes. The database
// row remains the authoritative record, shipped copies are a convenience.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

// Shipper sends one committed audit entry to a destination.
type Shipper interface {
	Ship(ctx context.Context, entry *models.AuditLog) error
	Close() error
}

// ShipperConfig selects and configures one shipping destination.
type ShipperConfig struct {
	Enabled bool           `json:"enabled"`
	Type    string         `json:"type"` // "webhook" or "file"
	Webhook *WebhookConfig `json:"webhook,omitempty"`
	File    *FileConfig    `json:"file,omitempty"`
}

// WebhookConfig holds webhook shipper configuration.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Timeout time.Duration     `json:"timeout"`
	// BatchSize is how many entries to accumulate before sending (0 sends
	// each entry individually).
	BatchSize     int           `json:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// FileConfig holds file shipper configuration. Entries append as JSON lines.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// MultiShipper fans each entry out to every configured destination.
type MultiShipper struct {
	shippers []Shipper
	mu       sync.RWMutex
}

// NewMultiShipper builds the enabled destinations. A config with nothing
// enabled yields a shipper that does nothing, which is fine to install.
func NewMultiShipper(configs []ShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{shippers: make([]Shipper, 0)}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var shipper Shipper
		var err error

		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook shipper")
			}
			shipper, err = NewWebhookShipper(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file shipper")
			}
			shipper, err = NewFileShipper(cfg.File)
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create %s shipper: %w", cfg.Type, err)
		}

		ms.shippers = append(ms.shippers, shipper)
	}

	return ms, nil
}

// Ship sends the entry to all destinations. A failing destination is logged
// and skipped so one broken endpoint does not starve the others.
func (ms *MultiShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Ship(ctx, entry); err != nil {
			lastErr = err
			slog.Warn("audit shipper failed", "error", err)
		}
	}
	return lastErr
}

// Close closes all destinations.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// WebhookShipper POSTs entries to an HTTP endpoint, optionally batched.
type WebhookShipper struct {
	cfg       *WebhookConfig
	client    *http.Client
	batchCh   chan *models.AuditLog
	batch     []*models.AuditLog
	batchMu   sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a webhook shipper.
func NewWebhookShipper(cfg *WebhookConfig) (*WebhookShipper, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		batchCh: make(chan *models.AuditLog, 1000),
		batch:   make([]*models.AuditLog, 0),
		closeCh: make(chan struct{}),
	}

	if cfg.BatchSize > 0 {
		go ws.processBatches()
	}

	return ws, nil
}

func (ws *WebhookShipper) processBatches() {
	flushInterval := ws.cfg.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-ws.batchCh:
			ws.batchMu.Lock()
			ws.batch = append(ws.batch, entry)
			if len(ws.batch) >= ws.cfg.BatchSize {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ticker.C:
			ws.batchMu.Lock()
			if len(ws.batch) > 0 {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ws.closeCh:
			ws.batchMu.Lock()
			if len(ws.batch) > 0 {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
			return
		}
	}
}

// flushBatch sends the accumulated entries. Caller holds batchMu.
func (ws *WebhookShipper) flushBatch() {
	if len(ws.batch) == 0 {
		return
	}

	data, err := json.Marshal(ws.batch)
	if err != nil {
		slog.Error("failed to marshal audit batch", "error", err)
		ws.batch = ws.batch[:0]
		return
	}

	timeout := ws.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ws.sendRequest(ctx, data); err != nil {
		slog.Warn("failed to send audit batch", "error", err)
	}

	ws.batch = ws.batch[:0]
}

// Ship queues the entry when batching is on, otherwise POSTs it directly.
// A full queue falls back to a direct send rather than dropping the entry.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.batchCh <- entry:
			return nil
		default:
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	return ws.sendRequest(ctx, data)
}

func (ws *WebhookShipper) sendRequest(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close flushes any queued batch and stops the processor.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closeCh)
	})
	return nil
}

// FileShipper appends entries to a JSON-lines file with size-based rotation.
type FileShipper struct {
	cfg  *FileConfig
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper creates a file shipper, opening (or creating) the target file.
func NewFileShipper(cfg *FileConfig) (*FileShipper, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit shipping file: %w", err)
	}

	return &FileShipper{cfg: cfg, file: file}, nil
}

// Ship appends one entry as a JSON line, rotating first when the file has
// outgrown its limit.
func (fs *FileShipper) Ship(_ context.Context, entry *models.AuditLog) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		info, err := fs.file.Stat()
		if err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)*1024*1024 {
			if err := fs.rotate(); err != nil {
				slog.Warn("failed to rotate audit shipping file", "error", err)
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// rotate shifts existing backups up one slot and starts a fresh file.
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", fs.cfg.Path, i)
		newPath := fmt.Sprintf("%s.%d", fs.cfg.Path, i+1)
		_ = os.Rename(oldPath, newPath)
	}

	_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")

	if fs.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups+1))
	}

	file, err := os.OpenFile(fs.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	fs.file = file
	return nil
}

// Close closes the file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
