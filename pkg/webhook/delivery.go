package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/ring"
)

const deliveryLogSize = 100

type Engine struct {
	cfg        Config
	httpClient *http.Client
	queue      chan *deliveryTask
	deliveries *ring.Buffer[DeliveryLog]
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

type deliveryTask struct {
	id    string
	event WebhookEvent
}

// ConfigFromEnv reads the WEBHOOK_* keys. The engine stays disabled without WEBHOOK_URL.
func ConfigFromEnv() Config {
	var events []EventType
	for _, name := range env.GetEnvListOrDefault("WEBHOOK_EVENTS", nil) {
		events = append(events, EventType(name))
	}
	url := env.GetEnvStringOrDefault("WEBHOOK_URL", "")
	return Config{
		Enabled:       env.GetEnvBoolOrDefault("WEBHOOKS_ENABLED", true) && url != "",
		URL:           url,
		Secret:        env.GetEnvStringOrDefault("WEBHOOK_SECRET", ""),
		Events:        events,
		Workers:       env.GetEnvIntOrDefault("WEBHOOK_WORKERS", 2),
		RetryLimit:    env.GetEnvIntOrDefault("WEBHOOK_RETRY_LIMIT", 3),
		RetryBackoff:  env.GetEnvDurationOrDefault("WEBHOOK_RETRY_BACKOFF", 2*time.Second),
		Timeout:       env.GetEnvDurationOrDefault("WEBHOOK_TIMEOUT", 10*time.Second),
		QueueSize:     env.GetEnvIntOrDefault("WEBHOOK_QUEUE_SIZE", 1000),
		AllowInsecure: env.GetEnvBoolOrDefault("WEBHOOK_ALLOW_INSECURE", false),
		AllowPrivate:  env.GetEnvBoolOrDefault("WEBHOOK_ALLOW_PRIVATE_URLS", false),
	}
}

func NewEngine(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := &Engine{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		queue:      make(chan *deliveryTask, cfg.QueueSize),
		deliveries: ring.New[DeliveryLog](deliveryLogSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	if cfg.Enabled {
		for i := 0; i < cfg.Workers; i++ {
			engine.wg.Add(1)
			go engine.worker()
		}
		log.Print(nil).WithField("workers", cfg.Workers).WithField("events", cfg.Events).Info("Webhook engine started")
	}

	return engine
}

func (e *Engine) Enabled() bool {
	return e != nil && e.cfg.Enabled
}

// Deliveries returns the most recent delivery attempts, oldest first.
func (e *Engine) Deliveries() []DeliveryLog {
	if e == nil {
		return nil
	}
	return e.deliveries.Items()
}

// Shutdown stops accepting events and waits for in-flight deliveries.
func (e *Engine) Shutdown() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.queue)
		e.wg.Wait()
		e.cancel()
	})
}

func (e *Engine) Dispatch(eventType EventType, data map[string]interface{}) {
	if !e.Enabled() || !e.shouldDispatch(eventType) {
		return
	}

	task := &deliveryTask{
		id: uuid.NewString(),
		event: WebhookEvent{
			EventType: eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
	}

	defer func() {
		// Dispatch after Shutdown lands on a closed channel
		if recover() != nil {
			e.record(task, DeliveryDropped, 0, "engine stopped")
		}
	}()

	select {
	case e.queue <- task:
	default:
		e.record(task, DeliveryDropped, 0, "queue full")
		log.Print(nil).WithField("event", eventType).Warn("Webhook queue full, event dropped")
	}
}

func (e *Engine) shouldDispatch(eventType EventType) bool {
	if len(e.cfg.Events) == 0 {
		return true
	}
	for _, evt := range e.cfg.Events {
		if evt == eventType {
			return true
		}
	}
	return false
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for task := range e.queue {
		e.deliver(task)
	}
}

func (e *Engine) deliver(task *deliveryTask) {
	if err := e.validateURL(e.cfg.URL); err != nil {
		e.record(task, DeliveryFailed, 0, err.Error())
		return
	}

	payload, err := json.Marshal(task.event)
	if err != nil {
		e.record(task, DeliveryFailed, 0, err.Error())
		return
	}

	signature := Sign(payload, e.cfg.Secret)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryLimit; attempt++ {
		req, err := http.NewRequestWithContext(e.ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Webhook-Event", string(task.event.EventType))
		req.Header.Set("X-Webhook-Delivery", task.id)
		req.Header.Set("User-Agent", "WhatsApp-Gateway/1.0")

		resp, err := e.httpClient.Do(req)
		if err == nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				e.record(task, DeliverySuccess, attempt, "")
				return
			}
			err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		lastErr = err

		if attempt < e.cfg.RetryLimit {
			select {
			case <-time.After(time.Duration(attempt) * e.cfg.RetryBackoff):
			case <-e.ctx.Done():
				attempt = e.cfg.RetryLimit
			}
		}
	}

	errorMsg := ""
	if lastErr != nil {
		errorMsg = lastErr.Error()
	}
	e.record(task, DeliveryFailed, e.cfg.RetryLimit, errorMsg)
}

func (e *Engine) record(task *deliveryTask, status DeliveryStatus, attempts int, lastError string) {
	e.deliveries.Push(DeliveryLog{
		ID:           task.id,
		EventType:    task.event.EventType,
		Status:       status,
		AttemptCount: attempts,
		LastError:    lastError,
		CreatedAt:    time.Now().UTC(),
	})
	entry := log.Print(nil).
		WithField("event", task.event.EventType).
		WithField("delivery", task.id).
		WithField("attempts", attempts)
	if status == DeliverySuccess {
		entry.Debug("Webhook delivered")
	} else {
		entry.WithField("status", status).Warn("Webhook not delivered: " + lastError)
	}
}

// Sign returns the X-Webhook-Signature value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (e *Engine) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if u.Scheme != "https" && !(e.cfg.AllowInsecure && u.Scheme == "http") {
		return fmt.Errorf("only HTTPS URLs are allowed")
	}

	if e.cfg.AllowPrivate {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return fmt.Errorf("private/local network URLs are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()) {
		return fmt.Errorf("private/local network URLs are not allowed")
	}

	return nil
}
