package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/utils"
)

var (
	ErrInvalidURL       = errors.New("invalid callback url")
	ErrMetadataEndpoint = errors.New("callback url targets a cloud metadata endpoint")
)

// EventRunPersisted is sent once a simulation run has been stored
const EventRunPersisted = "simulation.persisted"

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	Event     string               `json:"event"`
	RunID     string               `json:"run_id"`
	Run       models.SimulationRun `json:"run"`
	Timestamp int64                `json:"timestamp"` // unix ms when the notification was built
}

// Notifier posts persisted runs to a callback URL
type Notifier struct {
	httpClient  *http.Client
	callbackURL string
	maxRetries  int
	backoff     utils.BackoffStrategy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards closed and orders wg.Add against Close
	mu     sync.Mutex
	closed bool
}

// NewNotifier creates a notifier; it returns nil when no callback URL is configured
func NewNotifier(cfg config.Notifier) (*Notifier, error) {
	if cfg.CallbackURL == "" {
		return nil, nil
	}
	if err := validateCallbackURL(cfg.CallbackURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		callbackURL: cfg.CallbackURL,
		maxRetries:  cfg.MaxRetries,
		backoff:     utils.NewExponentialBackoff(cfg.BaseDelay, 30*time.Second, 2, true),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// validateCallbackURL rejects non-HTTP URLs and cloud metadata hosts
func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	if host == "metadata.google.internal" || host == "169.254.169.254" {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return fmt.Errorf("%w: wildcard address %s", ErrInvalidURL, host)
	}
	return nil
}

// Notify sends the run to the callback URL asynchronously
func (n *Notifier) Notify(run models.SimulationRun) {
	if n == nil {
		return
	}
	if run.ID == "" {
		logger.Warn("cannot notify: run is not persisted", "callback_url", n.callbackURL)
		return
	}

	// Replace {run_id} template in callback URL if present
	finalURL := strings.ReplaceAll(n.callbackURL, "{run_id}", run.ID)

	payload := NotificationPayload{
		Event:     EventRunPersisted,
		RunID:     run.ID,
		Run:       run,
		Timestamp: time.Now().UTC().UnixMilli(),
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		logger.Warn("notifier closed, dropping notification", "run_id", run.ID)
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		n.sendNotification(finalURL, payload)
	}()
}

// Close abandons pending retries and waits for in-flight notifications
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()
}

// Wait blocks until every notification sent so far has finished
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// sendNotification performs the actual HTTP POST with retry logic
func (n *Notifier) sendNotification(callbackURL string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			if !sleepCtx(n.ctx, delay) {
				logger.Warn("notification abandoned", "run_id", payload.RunID, "last_error", lastErr)
				return
			}
		}

		lastErr = n.post(callbackURL, payloadJSON, payload.RunID, attempt)
		if lastErr == nil {
			return
		}
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}

func (n *Notifier) post(callbackURL string, body []byte, runID string, attempt int) error {
	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "urban-simulation-core/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Warn("notification attempt failed",
			"callback_url", callbackURL,
			"run_id", runID,
			"attempt", attempt+1,
			"error", err)
		return fmt.Errorf("HTTP request failed: %w", err)
	}

	// Read response body for error details
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("notification sent successfully",
			"run_id", runID,
			"status_code", resp.StatusCode)
		return nil
	}

	responseBody := string(bodyBytes)
	if len(responseBody) > 200 {
		responseBody = responseBody[:200] + "..."
	}
	logger.Warn("notification returned non-2xx status",
		"callback_url", callbackURL,
		"run_id", runID,
		"status_code", resp.StatusCode,
		"response_body", responseBody,
		"attempt", attempt+1)
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
