package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	// sqlstore dialects
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/ring"
)

const (
	eventLogSize         = 50
	logoutRequestTimeout = 30 * time.Second
	autoReplyTimeout     = 30 * time.Second
)

type EventName string

const (
	EventQR             EventName = "qr"
	EventAuthenticated  EventName = "authenticated"
	EventReady          EventName = "ready"
	EventAuthFailure    EventName = "auth_failure"
	EventDisconnected   EventName = "disconnected"
	EventMessageCreate  EventName = "message_create"
	EventError          EventName = "error"
	EventSessionCleared EventName = "session_cleared"
	EventRestarted      EventName = "restarted"
)

type State string

const (
	StateInitializing  State = "initializing"
	StateQR            State = "qr"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
	StateDisconnected  State = "disconnected"
	StateAuthFailure   State = "auth_failure"
)

type Event struct {
	Event     EventName              `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type ReceivedMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Author    string `json:"author,omitempty"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	FromMe    bool   `json:"fromMe"`
}

// Listener observes every recorded lifecycle event.
type Listener func(name EventName, data map[string]interface{})

type Status struct {
	IsReady   bool       `json:"isReady"`
	State     State      `json:"state"`
	Connected bool       `json:"connected"`
	LoggedIn  bool       `json:"loggedIn"`
	JID       string     `json:"jid,omitempty"`
	PushName  string     `json:"pushName,omitempty"`
	LastQRAt  *time.Time `json:"lastQrAt,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	Uptime    string     `json:"uptime"`
	Message   string     `json:"message"`
}

type Counters struct {
	MessagesReceived int64  `json:"messagesReceived"`
	MessagesSent     int64  `json:"messagesSent"`
	SendFailures     int64  `json:"sendFailures"`
	AutoReplies      int64  `json:"autoReplies"`
	EventsDropped    uint64 `json:"eventsDropped"`
}

type Diagnostics struct {
	Status        Status    `json:"status"`
	Events        []Event   `json:"events"`
	ClientErrors  []LogLine `json:"clientErrors"`
	ClientConsole []LogLine `json:"clientConsole"`
	Counters      Counters  `json:"counters"`
}

// Session wraps the single whatsmeow client the gateway drives and tracks
// its readiness from the client's lifecycle events.
type Session struct {
	cfg       Config
	container *sqlstore.Container
	logger    *clientLogger

	mu              sync.RWMutex
	client          *whatsmeow.Client
	handlerID       uint32
	state           State
	lastQR          string
	lastQRAt        time.Time
	lastQRTimeout   time.Duration
	authenticatedAt time.Time
	startedAt       time.Time
	readyTimer      *time.Timer
	cancelQR        context.CancelFunc
	listeners       []Listener

	ready atomic.Bool
	opMu  sync.Mutex

	events        *ring.Buffer[Event]
	messages      *ring.Buffer[ReceivedMessage]
	clientErrors  *ring.Buffer[LogLine]
	clientConsole *ring.Buffer[LogLine]
	limiter       *rate.Limiter

	received atomic.Int64
	sent     atomic.Int64
	failed   atomic.Int64
	replies  atomic.Int64

	// overridable in tests
	probe func() (connected bool, loggedIn bool)
	reply func(ctx context.Context, msg *events.Message, text string) error
	now   func() time.Time
}

func newSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:           cfg,
		state:         StateInitializing,
		startedAt:     time.Now(),
		events:        ring.New[Event](eventLogSize),
		messages:      ring.New[ReceivedMessage](cfg.MessagesLimit),
		clientErrors:  ring.New[LogLine](clientErrorLogSize),
		clientConsole: ring.New[LogLine](clientConsoleLogSize),
		limiter:       rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), cfg.SendBurst),
		now:           time.Now,
	}
	s.logger = newClientLogger("WhatsApp", s.clientErrors, s.clientConsole)
	s.reply = s.replyTo
	return s
}

// NewSession opens the datastore and prepares a client for the first stored
// device, or a fresh one when nothing is paired yet. Call Start to connect.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	s := newSession(cfg)

	log.Print(nil).Info("Initializing WhatsApp datastore with driver=" + s.cfg.DatastoreType)

	container, err := sqlstore.New(ctx, s.cfg.DatastoreType, s.cfg.DatastoreURI, s.logger.Sub("Database"))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp datastore: %w", err)
	}
	s.container = container

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	store.DeviceProps.Os = proto.String("WhatsApp Gateway")
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	s.attach(device)
	return s, nil
}

// OnEvent registers l for every event recorded after the call.
func (s *Session) OnEvent(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) attach(device *store.Device) {
	client := whatsmeow.NewClient(device, s.logger.Sub("Client"))
	if len(s.cfg.ProxyURL) > 0 {
		client.SetProxyAddress(s.cfg.ProxyURL)
	}
	client.EnableAutoReconnect = true
	client.AutoTrustIdentity = true

	id := client.AddEventHandler(s.handleEvent)

	s.mu.Lock()
	s.client = client
	s.handlerID = id
	s.mu.Unlock()
}

// detach unhooks the current client so events from its teardown are not recorded.
func (s *Session) detach() *whatsmeow.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client := s.client
	if client != nil {
		client.RemoveEventHandler(s.handlerID)
	}
	s.client = nil
	if s.cancelQR != nil {
		s.cancelQR()
		s.cancelQR = nil
	}
	return client
}

func (s *Session) currentClient() *whatsmeow.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) clientState() (bool, bool) {
	if s.probe != nil {
		return s.probe()
	}
	client := s.currentClient()
	if client == nil {
		return false, false
	}
	return client.IsConnected(), client.IsLoggedIn()
}

// Start connects the client, retrying up to InitRetries times.
func (s *Session) Start(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.cfg.InitRetries; attempt++ {
		if err = s.connect(); err == nil {
			log.Session("init").WithField("attempt", attempt).Info("WhatsApp client initialized")
			return nil
		}

		log.Session("init").
			WithField("attempt", attempt).
			WithField("retries", s.cfg.InitRetries).
			Warn("Failed to initialize WhatsApp client: " + err.Error())

		if attempt < s.cfg.InitRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.InitRetryDelay):
			}
		}
	}
	s.record(EventError, map[string]interface{}{"error": err.Error()})
	return fmt.Errorf("initialize whatsapp client after %d attempts: %w", s.cfg.InitRetries, err)
}

func (s *Session) connect() error {
	client := s.currentClient()
	if client == nil {
		return errors.New("whatsapp client is not initialized")
	}
	if client.IsConnected() {
		return nil
	}

	if client.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := client.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return err
		}
		s.mu.Lock()
		if s.cancelQR != nil {
			s.cancelQR()
		}
		s.cancelQR = cancel
		s.mu.Unlock()

		Go("qr-channel", func() { s.consumeQR(qrChan) })

		if err := client.Connect(); err != nil {
			cancel()
			return err
		}
		return nil
	}

	return client.Connect()
}

func (s *Session) consumeQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			s.onQR(item.Code, item.Timeout)
		case whatsmeow.QRChannelSuccess.Event:
			log.Session("qr").Info("QR code scanned")
		case whatsmeow.QRChannelTimeout.Event:
			s.markNotReady(StateAuthFailure, EventAuthFailure, map[string]interface{}{"reason": "qr timeout"})
		case "error":
			data := map[string]interface{}{"source": "qr"}
			if item.Error != nil {
				data["error"] = item.Error.Error()
			}
			s.record(EventError, data)
		default:
			s.markNotReady(StateAuthFailure, EventAuthFailure, map[string]interface{}{"reason": item.Event})
		}
	}
}

func (s *Session) onQR(code string, timeout time.Duration) {
	s.mu.Lock()
	s.ready.Store(false)
	s.state = StateQR
	s.lastQR = code
	s.lastQRAt = s.now()
	s.lastQRTimeout = timeout
	s.mu.Unlock()

	if s.cfg.QRTerminal {
		printQR(code)
	}
	s.record(EventQR, map[string]interface{}{
		"code":    code,
		"timeout": int(timeout.Seconds()),
	})
}

func (s *Session) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		s.markAuthenticated(map[string]interface{}{
			"jid":          log.Mask(e.ID.User),
			"platform":     e.Platform,
			"businessName": e.BusinessName,
		})
	case *events.Connected:
		s.markAuthenticated(nil)
	case *events.OfflineSyncCompleted:
		s.markReady("offline_sync")
	case *events.AppStateSyncComplete:
		s.markReady("app_state_sync")
	case *events.Disconnected:
		s.markNotReady(StateDisconnected, EventDisconnected, map[string]interface{}{"reason": "connection closed"})
	case *events.LoggedOut:
		s.markNotReady(StateDisconnected, EventDisconnected, map[string]interface{}{
			"reason":    "logged out: " + e.Reason.String(),
			"onConnect": e.OnConnect,
		})
	case *events.StreamReplaced:
		s.markNotReady(StateDisconnected, EventDisconnected, map[string]interface{}{"reason": "stream replaced"})
	case *events.ConnectFailure:
		s.markNotReady(StateAuthFailure, EventAuthFailure, map[string]interface{}{
			"reason":  e.Reason.String(),
			"message": e.Message,
		})
	case *events.ClientOutdated:
		s.markNotReady(StateAuthFailure, EventAuthFailure, map[string]interface{}{"reason": "client outdated"})
	case *events.TemporaryBan:
		s.markNotReady(StateAuthFailure, EventAuthFailure, map[string]interface{}{
			"reason": "temporary ban: " + e.Code.String(),
			"expire": e.Expire.String(),
		})
	case *events.PairError:
		data := map[string]interface{}{"reason": "pair error"}
		if e.Error != nil {
			data["error"] = e.Error.Error()
		}
		s.markNotReady(StateAuthFailure, EventAuthFailure, data)
	case *events.Message:
		s.onMessage(e)
	case *events.StreamError:
		s.record(EventError, map[string]interface{}{"source": "stream", "code": e.Code})
	case *events.KeepAliveTimeout:
		s.record(EventError, map[string]interface{}{
			"source":      "keepalive",
			"errorCount":  e.ErrorCount,
			"lastSuccess": e.LastSuccess.UTC().Format(time.RFC3339),
		})
	}
}

func (s *Session) markAuthenticated(data map[string]interface{}) {
	s.mu.Lock()
	s.ready.Store(false)
	s.state = StateAuthenticated
	s.authenticatedAt = s.now()
	s.lastQR = ""
	if s.readyTimer != nil {
		s.readyTimer.Stop()
	}
	if s.cfg.ReadyTimeout > 0 {
		s.readyTimer = time.AfterFunc(s.cfg.ReadyTimeout, func() {
			Guard("ready-timer", s.promoteIfLoggedIn)
		})
	}
	s.mu.Unlock()

	s.record(EventAuthenticated, data)
}

// promoteIfLoggedIn covers sessions that never report a sync completion.
func (s *Session) promoteIfLoggedIn() {
	if connected, loggedIn := s.clientState(); connected && loggedIn {
		s.markReady("ready_timeout")
	}
}

func (s *Session) markReady(source string) {
	s.mu.Lock()
	if !s.ready.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return
	}
	s.state = StateReady
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.mu.Unlock()

	s.record(EventReady, map[string]interface{}{"source": source})
}

func (s *Session) markNotReady(state State, name EventName, data map[string]interface{}) {
	s.mu.Lock()
	s.ready.Store(false)
	s.state = state
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.mu.Unlock()

	s.record(name, data)
}

func (s *Session) record(name EventName, data map[string]interface{}) {
	s.events.Push(Event{
		Event:     name,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	})

	entry := log.Session(string(name))
	switch name {
	case EventAuthFailure, EventError, EventDisconnected:
		entry.WithField("data", data).Warn("WhatsApp client event")
	case EventMessageCreate:
		entry.Debug("WhatsApp client event")
	default:
		entry.Info("WhatsApp client event")
	}

	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		Guard("event-listener", func() { l(name, data) })
	}
}

func (s *Session) onMessage(e *events.Message) {
	body := messageBody(e.Message)
	msg := ReceivedMessage{
		ID:        e.Info.ID,
		From:      e.Info.Chat.String(),
		Body:      body,
		Timestamp: e.Info.Timestamp.Unix(),
		FromMe:    e.Info.IsFromMe,
	}
	if e.Info.IsGroup {
		msg.Author = e.Info.Sender.ToNonAD().String()
	}
	s.messages.Push(msg)
	s.received.Add(1)

	s.record(EventMessageCreate, map[string]interface{}{
		"id":        msg.ID,
		"from":      msg.From,
		"author":    msg.Author,
		"body":      msg.Body,
		"timestamp": msg.Timestamp,
		"fromMe":    msg.FromMe,
	})

	if !s.cfg.AutoReply || (e.Info.IsFromMe && !s.cfg.AutoReplyFromMe) {
		return
	}
	text, ok := AutoReply(body, s.now())
	if !ok {
		return
	}
	Go("auto-reply", func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoReplyTimeout)
		defer cancel()
		if err := s.reply(ctx, e, text); err != nil {
			log.Op("auto-reply", e.Info.Sender.User).Warn("Failed to send auto reply: " + err.Error())
			return
		}
		s.replies.Add(1)
	})
}

func (s *Session) IsReady() bool {
	return s.ready.Load()
}

func (s *Session) Status() Status {
	connected, loggedIn := s.clientState()

	s.mu.RLock()
	ready := s.ready.Load()
	st := Status{
		IsReady:   ready,
		State:     s.state,
		Connected: connected,
		LoggedIn:  loggedIn,
		StartedAt: s.startedAt,
		Uptime:    s.now().Sub(s.startedAt).Round(time.Second).String(),
	}
	if !s.lastQRAt.IsZero() {
		at := s.lastQRAt
		st.LastQRAt = &at
	}
	if s.client != nil && s.client.Store.ID != nil {
		st.JID = log.Mask(s.client.Store.ID.User)
		st.PushName = s.client.Store.PushName
	}
	s.mu.RUnlock()

	if ready {
		st.Message = "El cliente de WhatsApp está listo"
	} else {
		st.Message = "El cliente de WhatsApp no está listo"
	}
	return st
}

// Messages returns every message seen since start, oldest first.
func (s *Session) Messages() []ReceivedMessage {
	return s.messages.Items()
}

func (s *Session) Events() []Event {
	return s.events.Items()
}

func (s *Session) Diagnostics() Diagnostics {
	return Diagnostics{
		Status:        s.Status(),
		Events:        s.events.Items(),
		ClientErrors:  s.clientErrors.Items(),
		ClientConsole: s.clientConsole.Items(),
		Counters: Counters{
			MessagesReceived: s.received.Load(),
			MessagesSent:     s.sent.Load(),
			SendFailures:     s.failed.Load(),
			AutoReplies:      s.replies.Load(),
			EventsDropped:    s.events.Dropped(),
		},
	}
}

func (s *Session) resetState() {
	s.mu.Lock()
	s.ready.Store(false)
	s.state = StateInitializing
	s.lastQR = ""
	s.lastQRAt = time.Time{}
	s.authenticatedAt = time.Time{}
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.mu.Unlock()
}

// ClearSession logs the device out (deleting it from the store when the
// logout request fails) and reconnects with a fresh device to emit a new QR.
func (s *Session) ClearSession(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	unlock := true
	defer func() {
		if unlock {
			s.opMu.Unlock()
		}
	}()

	if s.container == nil {
		return errors.New("whatsapp datastore is not initialized")
	}

	client := s.detach()
	if client != nil {
		if client.Store.ID != nil {
			logoutCtx, cancel := context.WithTimeout(ctx, logoutRequestTimeout)
			err := client.Logout(logoutCtx)
			cancel()
			if err != nil {
				log.Session("clear").Warn("Logout failed, deleting device from store: " + err.Error())
				client.Disconnect()
				if err := client.Store.Delete(ctx); err != nil {
					return fmt.Errorf("delete whatsapp device: %w", err)
				}
			}
		} else {
			client.Disconnect()
		}
	}

	s.resetState()
	s.record(EventSessionCleared, nil)
	s.attach(s.container.NewDevice())

	unlock = false
	Go("session-clear", func() {
		defer s.opMu.Unlock()
		if err := s.Start(context.Background()); err != nil {
			log.Session("clear").Error(err.Error())
		}
	})
	return nil
}

// Restart tears the client down and connects again over the same device.
func (s *Session) Restart(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	unlock := true
	defer func() {
		if unlock {
			s.opMu.Unlock()
		}
	}()

	var device *store.Device
	if client := s.detach(); client != nil {
		client.Disconnect()
		device = client.Store
	}
	if device == nil {
		if s.container == nil {
			return errors.New("whatsapp datastore is not initialized")
		}
		var err error
		if device, err = s.container.GetFirstDevice(ctx); err != nil {
			return fmt.Errorf("load whatsapp device: %w", err)
		}
	}

	s.resetState()
	s.record(EventRestarted, nil)
	s.attach(device)

	unlock = false
	Go("session-restart", func() {
		defer s.opMu.Unlock()
		if err := s.Start(context.Background()); err != nil {
			log.Session("restart").Error(err.Error())
		}
	})
	return nil
}

// CheckHealth reconciles the readiness flag with the live connection.
func (s *Session) CheckHealth() Status {
	connected, loggedIn := s.clientState()
	healthy := connected && loggedIn

	s.mu.RLock()
	state := s.state
	authenticatedAt := s.authenticatedAt
	s.mu.RUnlock()

	switch {
	case s.ready.Load() && !healthy:
		s.markNotReady(StateDisconnected, EventDisconnected, map[string]interface{}{
			"reason":    "health check",
			"connected": connected,
			"loggedIn":  loggedIn,
		})
	case !s.ready.Load() && healthy && state == StateAuthenticated &&
		!authenticatedAt.IsZero() && s.now().Sub(authenticatedAt) >= s.cfg.ReadyTimeout:
		s.markReady("health_check")
	}

	return s.Status()
}

// Close disconnects the client without touching the stored session.
func (s *Session) Close() {
	s.mu.Lock()
	s.ready.Store(false)
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.mu.Unlock()
	if client := s.detach(); client != nil {
		client.Disconnect()
	}
}
