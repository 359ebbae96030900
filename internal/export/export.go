// Package export ships health reports to an external observability
// collaborator over a webhook, batching on size and on a timer.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// HealthReport is one exported health observation
type HealthReport struct {
	ChainID    string             `json:"chain_id"`
	Record     types.HealthRecord `json:"record"`
	ObservedAt time.Time          `json:"observed_at"`
}

// Config holds configuration for the health exporter
type Config struct {
	Enabled        bool
	BatchSize      int
	ExportInterval time.Duration
	WebhookURL     string
	WebhookAPIKey  string
}

// Exporter batches health reports and POSTs them to the configured
// webhook. A disabled exporter accepts reports and drops them.
type Exporter struct {
	cfg        Config
	httpClient *http.Client
	logg       logrus.FieldLogger

	mu    sync.Mutex
	batch []HealthReport

	cancel context.CancelFunc
}

// New creates an exporter and starts its periodic export loop when
// enabled
func New(cfg Config, logg logrus.FieldLogger) *Exporter {
	if logg == nil {
		logg = logrus.StandardLogger()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = time.Minute
	}

	e := &Exporter{
		cfg:  cfg,
		logg: logg,
	}
	if !cfg.Enabled {
		return e
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.Logger = nil
	e.httpClient = retryClient.StandardClient()
	e.batch = make([]HealthReport, 0, cfg.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.loop(ctx)

	logg.Info("Health exporter initialized")
	return e
}

// Add queues a health report for export. When the batch reaches the
// configured size an export is triggered immediately.
func (e *Exporter) Add(report HealthReport) {
	if !e.cfg.Enabled {
		return
	}

	e.mu.Lock()
	e.batch = append(e.batch, report)
	full := len(e.batch) >= e.cfg.BatchSize
	e.mu.Unlock()

	if full {
		go e.export()
	}
}

// Stop halts the loop and flushes the remaining batch
func (e *Exporter) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.export()
}

func (e *Exporter) loop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ExportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.export()
		case <-ctx.Done():
			return
		}
	}
}

func (e *Exporter) export() {
	e.mu.Lock()
	if len(e.batch) == 0 {
		e.mu.Unlock()
		return
	}
	reports := e.batch
	e.batch = make([]HealthReport, 0, e.cfg.BatchSize)
	e.mu.Unlock()

	if err := e.postWebhook(reports); err != nil {
		e.logg.WithError(err).Error("Failed to export health reports")
		return
	}
	e.logg.WithField("count", len(reports)).Debug("Exported health reports")
}

func (e *Exporter) postWebhook(reports []HealthReport) error {
	if e.cfg.WebhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload := struct {
		Reports    []HealthReport `json:"reports"`
		ExportTime string         `json:"export_time"`
		Count      int            `json:"count"`
	}{
		Reports:    reports,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Count:      len(reports),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.WebhookAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.WebhookAPIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}
