package mqttadapter

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

// pendingPublish is one entry in the adapter's send queue: the request
// as handed to Request, plus how many times it has already been
// attempted against the broker.
type pendingPublish struct {
	req      sparkplug.PublishRequest
	attempts int
}

// mqttConn is the slice of *autopaho.ConnectionManager this adapter
// actually drives: publish, subscribe, clean disconnect. Narrowing to
// an interface (rather than holding the concrete type directly) gives
// tests a seam to inject an in-memory double and exercise retry and
// queue-flush behavior without a live broker.
type mqttConn interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Disconnect(ctx context.Context) error
}

// Adapter implements sparkplug.BrokerAdapter over a single autopaho
// connection. One Adapter speaks for exactly one broker and owns its
// own EventQueue; a Node with several Adapters drains each queue.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
	queue  *sparkplug.EventQueue

	mu        sync.Mutex
	settings  sparkplug.AdapterSettings
	conn      mqttConn
	connected bool
	active    bool
	pending   []pendingPublish
}

var _ sparkplug.BrokerAdapter = (*Adapter)(nil)

// New creates an Adapter against the given broker settings. Connect
// must be called (normally by a Node's tick loop) before it is usable.
func New(cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:    cfg,
		logger: logger,
		queue:  sparkplug.NewEventQueue(),
	}
}

// Configure stores the Sparkplug topic/bdSeq settings the Node
// computed. Must be called once before Connect.
func (a *Adapter) Configure(settings sparkplug.AdapterSettings) error {
	if a.cfg.BrokerURL == "" {
		return fmt.Errorf("mqttadapter: broker URL must not be empty")
	}
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
	return nil
}

// Connect opens the autopaho connection manager. It returns once the
// manager has been constructed; connection outcome arrives later as an
// EventConnected or the OnConnectError log, matching autopaho's
// fire-and-forget reconnection model.
func (a *Adapter) Connect(ctx context.Context) error {
	brokerURL, err := url.Parse(a.cfg.BrokerURL)
	if err != nil {
		return fmt.Errorf("mqttadapter: parse broker URL: %w", err)
	}

	a.mu.Lock()
	settings := a.settings
	a.mu.Unlock()

	willPayload, err := settings.WillPayload()
	if err != nil {
		return fmt.Errorf("mqttadapter: build death certificate: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       a.cfg.keepAlive(),
		ConnectUsername: a.cfg.Username,
		ConnectPassword: []byte(a.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   settings.NodeDeathTopic,
			Payload: willPayload,
			QoS:     1,
			Retain:  false,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			a.logger.Info("mqttadapter connected", "broker", a.cfg.BrokerURL)
			a.mu.Lock()
			a.connected = true
			a.mu.Unlock()

			if settings.PrimaryHost != "" {
				topic := primaryHostStateTopic(settings.PrimaryHost)
				if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
					Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
				}); err != nil {
					a.logger.Error("mqttadapter state-topic subscribe failed", "topic", topic, "error", err)
				}
			}

			a.queue.Push(sparkplug.Event{Source: a, Kind: sparkplug.EventConnected})
		},
		OnConnectError: func(err error) {
			a.logger.Warn("mqttadapter connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: a.cfg.clientIDPrefix() + settings.NodeID,
			OnServerDisconnect: func(d *paho.Disconnect) {
				a.handleLoss(fmt.Errorf("server disconnect: reason %d", d.ReasonCode))
			},
			OnClientError: func(err error) {
				a.handleLoss(err)
			},
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqttadapter: connect: %w", err)
	}
	cm.AddOnPublishReceived(a.handleIncoming)

	a.mu.Lock()
	a.conn = cm
	a.mu.Unlock()
	return nil
}

func (a *Adapter) handleIncoming(pr autopaho.PublishReceived) (bool, error) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("mqttadapter message handling panicked",
					"topic", pr.Packet.Topic, "panic", r)
			}
		}()
		payload := make([]byte, len(pr.Packet.Payload))
		copy(payload, pr.Packet.Payload)
		a.queue.Push(sparkplug.Event{
			Source: a,
			Kind:   sparkplug.EventMessage,
			Message: &sparkplug.MessagePayload{
				Topic:   pr.Packet.Topic,
				Payload: payload,
			},
		})
	}()
	return true, nil
}

// handleLoss reports a broken connection once, from whichever path
// (server disconnect or client error) notices it first.
func (a *Adapter) handleLoss(err error) {
	a.mu.Lock()
	wasConnected := a.connected
	a.connected = false
	a.active = false
	a.mu.Unlock()

	if !wasConnected {
		return
	}
	a.logger.Warn("mqttadapter connection lost", "error", err)
	a.queue.Push(sparkplug.Event{Source: a, Kind: sparkplug.EventDisconnected})
	a.failPending()
}

// Disconnect tears down the connection manager. autopaho publishes the
// registered will itself only on an unclean disconnect, so Disconnect
// here is always a clean shutdown — callers that want the death
// certificate sent should let the connection drop rather than calling
// Disconnect.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	a.connected = false
	a.active = false
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Disconnect(ctx)
}

// Activate subscribes to this node's command topics and, if
// configured, its primary host's STATE topic, then reports itself
// active.
func (a *Adapter) Activate(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	settings := a.settings
	a.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("mqttadapter: not connected")
	}

	subs := []paho.SubscribeOptions{
		{Topic: nodeCommandTopic(settings.GroupID, settings.NodeID), QoS: 1},
		{Topic: deviceCommandWildcard(settings.GroupID, settings.NodeID), QoS: 1},
	}
	if settings.PrimaryHost != "" {
		subs = append(subs, paho.SubscribeOptions{Topic: primaryHostStateTopic(settings.PrimaryHost), QoS: 1})
	}

	if _, err := conn.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		return fmt.Errorf("mqttadapter: subscribe: %w", err)
	}

	a.mu.Lock()
	a.active = true
	a.mu.Unlock()
	a.queue.Push(sparkplug.Event{Source: a, Kind: sparkplug.EventActive})
	return nil
}

// Deactivate marks the adapter ineligible to publish and drains any
// outstanding queued publishes as undelivered; subscriptions are left
// in place since another Activate on the same connection will simply
// resubscribe.
func (a *Adapter) Deactivate(ctx context.Context) error {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
	a.failPending()
	a.queue.Push(sparkplug.Event{Source: a, Kind: sparkplug.EventDeactive})
	return nil
}

// Request queues req for publication and attempts to send it
// immediately if nothing is ahead of it.
func (a *Adapter) Request(req sparkplug.PublishRequest) error {
	a.mu.Lock()
	a.pending = append(a.pending, pendingPublish{req: req})
	headOnly := len(a.pending) == 1
	a.mu.Unlock()

	if headOnly {
		a.pumpQueue()
	}
	return nil
}

// pumpQueue sends the head-of-queue publish, retrying immediately on
// failure up to Config.MaxRetries before reporting it undelivered and
// moving on to the next queued item.
func (a *Adapter) pumpQueue() {
	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			a.mu.Unlock()
			return
		}
		item := a.pending[0]
		conn := a.conn
		a.mu.Unlock()

		if conn == nil {
			a.dropHead(item.req, false)
			return
		}

		_, err := conn.Publish(context.Background(), &paho.Publish{
			Topic:   item.req.Topic,
			Payload: item.req.Payload,
			QoS:     item.req.QoS,
			Retain:  item.req.Retain,
		})
		if err == nil {
			a.dropHead(item.req, true)
			continue
		}

		item.attempts++
		a.logger.Warn("mqttadapter publish failed",
			"topic", item.req.Topic, "attempt", item.attempts, "error", err)
		if item.attempts > a.cfg.maxRetries() {
			a.dropHead(item.req, false)
			continue
		}

		a.mu.Lock()
		if len(a.pending) > 0 {
			a.pending[0] = item
		}
		a.mu.Unlock()
	}
}

func (a *Adapter) dropHead(req sparkplug.PublishRequest, delivered bool) {
	a.mu.Lock()
	if len(a.pending) > 0 && a.pending[0].req.ID == req.ID {
		a.pending = a.pending[1:]
	}
	a.mu.Unlock()

	kind := sparkplug.EventUndelivered
	if delivered {
		kind = sparkplug.EventDelivered
	}
	reqCopy := req
	a.queue.Push(sparkplug.Event{Source: a, Kind: kind, Request: &reqCopy})
}

// failPending reports every queued publish as undelivered without
// attempting to send it, used when the connection drops or the
// adapter is deactivated.
func (a *Adapter) failPending() {
	a.mu.Lock()
	items := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, item := range items {
		reqCopy := item.req
		a.queue.Push(sparkplug.Event{Source: a, Kind: sparkplug.EventUndelivered, Request: &reqCopy})
	}
}

// IsConnected reports the adapter's last known connection state.
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Events returns the queue this adapter pushes onto.
func (a *Adapter) Events() *sparkplug.EventQueue {
	return a.queue
}
