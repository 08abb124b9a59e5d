package sparkplug

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EnabledCommands is a bitset selecting which Node Control metrics a
// Node registers at construction.
type EnabledCommands uint8

const (
	CommandRebirth EnabledCommands = 1 << iota
	CommandNextServer
	CommandReboot
)

const (
	nodeControlRebirth    = "Node Control/Rebirth"
	nodeControlNextServer = "Node Control/Next Server"
	nodeControlReboot     = "Node Control/Reboot"
)

// NodeMode is Single (first adapter to connect is activated) or
// PrimaryHost (activation gated on an external state topic).
type NodeMode int

const (
	ModeSingle NodeMode = iota
	ModePrimaryHost
)

func (m NodeMode) String() string {
	if m == ModePrimaryHost {
		return "PrimaryHost"
	}
	return "Single"
}

// schedulerState is the Node's own lifecycle state, distinct from the
// per-Publishable Idle/CanPublish/Publishing state tracked by the
// embedded *publishable.
type schedulerState int

const (
	schedulerDisabled schedulerState = iota
	schedulerIdle
	schedulerAwaitingActivation
	schedulerActive
	schedulerStopping
)

// NodeOptions configures a Node at construction.
type NodeOptions struct {
	GroupID         string
	NodeID          string
	PrimaryHost     string // non-empty selects PrimaryHost mode
	EnabledCommands EnabledCommands
	Codec           PayloadCodec
	Clock           Clock
	Logger          *slog.Logger

	// OnReboot, if set, is called when the Node Control/Reboot metric
	// is commanded true. The Node itself takes no reboot action.
	OnReboot func()
}

// pendingPublish tracks an in-flight PublishRequest so its terminal
// Delivered/Undelivered event can be routed back to the publishable
// that produced it.
type pendingPublish struct {
	pub     publishableLike
	isBirth bool
}

// Node is the root Publishable: it owns Devices, BrokerAdapters, topic
// templates, the draining of its adapters' event queues, and
// primary-host election, per C5.
type Node struct {
	*publishable

	groupID         string
	nodeID          string
	primaryHost     string
	enabledCommands EnabledCommands
	mode            NodeMode

	devices  []*Device
	adapters []BrokerAdapter

	activeAdapter BrokerAdapter
	adapterOnline map[BrokerAdapter]bool // primary-host observed online state

	bdSeq        uint64 // next bdSeq to hand out via NextBdSeq
	currentBdSeq uint64 // bdSeq value echoed by the in-progress session's NBIRTH
	payloadSeq   uint64
	nextReqID  uint64
	pending    map[uint64]pendingPublish

	topics Topics
	state  schedulerState

	codec  PayloadCodec
	clock  Clock
	logger *slog.Logger
}

// NewNode constructs a Node. Node Control metrics are registered
// immediately according to opts.EnabledCommands; the Rebirth handler,
// when commanded true, triggers an immediate birth burst.
func NewNode(opts NodeOptions) *Node {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	n := &Node{
		publishable:     newPublishable("", 1000, logger),
		groupID:         opts.GroupID,
		nodeID:          opts.NodeID,
		primaryHost:     opts.PrimaryHost,
		enabledCommands: opts.EnabledCommands,
		adapterOnline:   make(map[BrokerAdapter]bool),
		pending:         make(map[uint64]pendingPublish),
		codec:           opts.Codec,
		clock:           clock,
		logger:          logger,
		state:           schedulerDisabled,
	}

	if opts.EnabledCommands&CommandRebirth != 0 {
		m := NewMetric(nodeControlRebirth, TypeBoolean, false, WithClock(clock), WithLogger(logger))
		m.SetCommandHandler(func(_ *Metric, value any) {
			if v, _ := value.(bool); v {
				n.publishBirth()
			}
		})
		n.AddMetric(m)
	}
	if opts.EnabledCommands&CommandNextServer != 0 {
		m := NewMetric(nodeControlNextServer, TypeBoolean, false, WithClock(clock), WithLogger(logger))
		m.SetCommandHandler(func(_ *Metric, value any) {
			if v, _ := value.(bool); v {
				n.NextServer()
			}
		})
		n.AddMetric(m)
	}
	if opts.EnabledCommands&CommandReboot != 0 {
		m := NewMetric(nodeControlReboot, TypeBoolean, false, WithClock(clock), WithLogger(logger))
		m.SetCommandHandler(func(_ *Metric, value any) {
			if v, _ := value.(bool); v && opts.OnReboot != nil {
				opts.OnReboot()
			}
		})
		n.AddMetric(m)
	}

	return n
}

// isNode implements publishableLike.
func (n *Node) isNode() bool { return true }

// AddDevice registers a device under this node, wiring its parent
// back-reference.
func (n *Node) AddDevice(d *Device) {
	d.parent = n
	n.devices = append(n.devices, d)
}

// Devices returns the node's devices in registration order.
func (n *Node) Devices() []*Device {
	return append([]*Device(nil), n.devices...)
}

// AddAdapter registers a broker adapter. Execute drains every
// registered adapter's own EventQueue each tick; see EventQueue for
// the ordering guarantees that gives across adapters.
func (n *Node) AddAdapter(a BrokerAdapter) {
	n.adapters = append(n.adapters, a)
}

// Enable validates configuration, configures every adapter, computes
// topic templates, and sets the scheduling mode.
func (n *Node) Enable() error {
	if n.groupID == "" || n.nodeID == "" {
		return ErrInvalidTopics
	}
	if len(n.adapters) == 0 {
		return ErrNoAdapters
	}

	n.topics = buildTopics(n.groupID, n.nodeID, n.primaryHost)

	settings := AdapterSettings{
		GroupID:        n.groupID,
		NodeID:         n.nodeID,
		NodeDeathTopic: n.topics.NodeDeath,
		PrimaryHost:    n.primaryHost,
		WillPayload:    n.buildWillPayload,
	}
	for _, a := range n.adapters {
		if err := a.Configure(settings); err != nil {
			return fmt.Errorf("%w: %v", ErrAdapterConfigFail, err)
		}
	}

	if n.primaryHost != "" {
		n.mode = ModePrimaryHost
	} else {
		n.mode = ModeSingle
	}
	n.state = schedulerIdle
	return nil
}

// Execute is the single cooperative progress point: it re-drives
// disconnected adapters, drains the event queue, and submits due
// publishes. It must never block on a broker round-trip. The returned
// duration is a hint for how soon Execute should be called again.
func (n *Node) Execute(ctx context.Context, elapsedMs int32) (time.Duration, error) {
	if n.state == schedulerDisabled {
		return 0, ErrNotStarted
	}

	for _, a := range n.adapters {
		if !a.IsConnected() {
			if err := a.Connect(ctx); err != nil {
				n.logger.Debug("sparkplug: adapter connect failed", "error", err)
			}
		}
	}

	n.drainEvents()

	if n.activeAdapter == nil {
		return time.Millisecond, nil
	}

	nextMs := n.update(elapsedMs)
	if n.canPublish() {
		n.requestPublish(n, false)
	}
	for _, d := range n.devices {
		if ms := d.update(elapsedMs); ms < nextMs {
			nextMs = ms
		}
		if d.canPublish() {
			n.requestPublish(d, false)
		}
	}

	return time.Duration(nextMs) * time.Millisecond, nil
}

// RequestPublish honors a publish request only for the Node itself or
// one of its registered devices; it is a no-op for anything else or
// while the publishable is already Publishing.
func (n *Node) RequestPublish(p publishableLike, isBirth bool) {
	if p != publishableLike(n) {
		owned := false
		for _, d := range n.devices {
			if p == publishableLike(d) {
				owned = true
				break
			}
		}
		if !owned {
			return
		}
	}
	n.requestPublish(p, isBirth)
}

func (n *Node) requestPublish(p publishableLike, isBirth bool) {
	if p.State() == StatePublishing {
		return
	}
	if n.activeAdapter == nil {
		return
	}

	now := msToTime(n.clock.NowMs())
	desc := p.buildPayload(isBirth, now)

	seq := n.payloadSeq % 256
	n.payloadSeq++
	desc.Seq = &seq
	if isBirth && p.isNode() {
		bd := n.currentBdSeq
		desc.BdSeq = &bd
		desc.Metrics = append(desc.Metrics, MetricDesc{Name: "bdSeq", Type: TypeInt64, Value: int64(bd), Timestamp: now})
	}

	payload, err := n.codec.Encode(desc)
	if err != nil {
		// Treated exactly like an adapter-reported Undelivered (§7
		// DeliveryError): the publishable is marked published so its
		// dirty metrics clear and its countdown re-arms, rather than
		// being stuck resubmitting the same oversize payload forever.
		n.logger.Error("sparkplug: payload encode failed", "publishable", p.Name(), "error", err)
		p.published()
		return
	}

	topic := n.topicFor(p, isBirth)

	id := n.nextReqID
	n.nextReqID++
	n.pending[id] = pendingPublish{pub: p, isBirth: isBirth}

	p.publishing()
	if err := n.activeAdapter.Request(PublishRequest{ID: id, Topic: topic, Payload: payload, QoS: 1}); err != nil {
		delete(n.pending, id)
		p.resetAfterFailedPublish()
		n.logger.Error("sparkplug: publish request failed", "publishable", p.Name(), "error", err)
	}
}

func (n *Node) topicFor(p publishableLike, isBirth bool) string {
	if p.isNode() {
		if isBirth {
			return n.topics.NodeBirth
		}
		return n.topics.NodeData
	}
	d := p.(*Device)
	if isBirth {
		return n.topics.DeviceBirthTopic(d.Name())
	}
	return n.topics.DeviceDataTopic(d.Name())
}

// publishBirth submits a birth for the node, then for every device in
// registration order. payload_seq resets to 0 for the burst; the node
// birth carries bdSeq and is assigned seq 0, with each following
// device birth taking the next seq value.
func (n *Node) publishBirth() {
	n.payloadSeq = 0
	n.requestPublish(n, true)
	for _, d := range n.devices {
		n.requestPublish(d, true)
	}
}

// NextServer fails the node over to the next configured adapter,
// round-robin by registration order: the current adapter is
// deactivated, then the following one in the list is activated. A no-op
// if fewer than two adapters are registered or none is currently
// active.
func (n *Node) NextServer() {
	if n.activeAdapter == nil || len(n.adapters) < 2 {
		return
	}
	idx := -1
	for i, a := range n.adapters {
		if a == n.activeAdapter {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	ctx := context.Background()
	current := n.activeAdapter
	next := n.adapters[(idx+1)%len(n.adapters)]
	if err := current.Deactivate(ctx); err != nil {
		n.logger.Error("sparkplug: adapter deactivation failed during failover", "error", err)
	}
	n.activeAdapter = nil
	n.state = schedulerAwaitingActivation
	if err := next.Activate(ctx); err != nil {
		n.logger.Error("sparkplug: adapter activation failed during failover", "error", err)
	}
}

// Stop deactivates then disconnects every adapter. Idempotent and
// asynchronous: completion is observed through Disconnected events on
// the next Execute calls, not returned here.
func (n *Node) Stop(ctx context.Context) {
	n.state = schedulerStopping
	for _, a := range n.adapters {
		_ = a.Deactivate(ctx)
		_ = a.Disconnect(ctx)
	}
}

func (n *Node) drainEvents() {
	for _, a := range n.adapters {
		a.Events().Drain(func(e Event) {
			n.handleEvent(e)
		})
	}
}

func (n *Node) handleEvent(e Event) {
	switch e.Kind {
	case EventConnected:
		n.handleConnected(e.Source)
	case EventActive:
		n.handleActive(e.Source)
	case EventDeactive:
		n.handleDeactive(e.Source)
	case EventDisconnected:
		n.handleDisconnected(e.Source)
	case EventMessage:
		n.handleMessage(e.Source, e.Message)
	case EventDelivered:
		n.handleTerminal(e.Request, true)
	case EventUndelivered:
		n.handleTerminal(e.Request, false)
	}
}

func (n *Node) handleConnected(src BrokerAdapter) {
	if n.mode == ModeSingle && n.activeAdapter == nil {
		n.state = schedulerAwaitingActivation
		ctx := context.Background()
		if err := src.Activate(ctx); err != nil {
			n.logger.Error("sparkplug: adapter activation failed", "error", err)
		}
	}
}

func (n *Node) handleActive(src BrokerAdapter) {
	if n.activeAdapter != nil && n.activeAdapter != src {
		// Another adapter already holds activation; only one is active
		// at a time, so this one is handed back.
		if err := src.Deactivate(context.Background()); err != nil {
			n.logger.Error("sparkplug: adapter deactivation failed", "error", err)
		}
		return
	}
	n.activeAdapter = src
	n.state = schedulerActive
	n.publishBirth()
}

func (n *Node) handleDeactive(src BrokerAdapter) {
	if n.activeAdapter == src {
		n.activeAdapter = nil
		n.state = schedulerIdle
	}
}

func (n *Node) handleDisconnected(src BrokerAdapter) {
	if n.activeAdapter == src {
		n.activeAdapter = nil
		n.state = schedulerIdle
	}
	delete(n.adapterOnline, src)
}

func (n *Node) handleMessage(src BrokerAdapter, msg *MessagePayload) {
	if msg == nil {
		return
	}
	switch {
	case msg.Topic == n.topics.NodeCommand:
		n.publishable.handleCommand(n.codec, msg.Payload)
	case n.mode == ModePrimaryHost && isPrimaryHostStateTopic(msg.Topic, n.primaryHost):
		n.handlePrimaryHostState(src, msg.Payload)
	default:
		if d := n.deviceFromCommandTopic(msg.Topic); d != nil {
			d.handleCommand(n.codec, msg.Payload)
		}
	}
}

func (n *Node) deviceFromCommandTopic(topic string) *Device {
	prefix := namespace + "/" + n.groupID + "/DCMD/" + n.nodeID + "/"
	if !strings.HasPrefix(topic, prefix) {
		return nil
	}
	deviceID := strings.TrimPrefix(topic, prefix)
	for _, d := range n.devices {
		if d.Name() == deviceID {
			return d
		}
	}
	return nil
}

func (n *Node) handlePrimaryHostState(src BrokerAdapter, payload []byte) {
	online, ok := parseOnlineState(payload)
	if !ok {
		return
	}
	n.adapterOnline[src] = online

	switch {
	case online && n.activeAdapter == nil:
		ctx := context.Background()
		if err := src.Activate(ctx); err != nil {
			n.logger.Error("sparkplug: adapter activation failed", "error", err)
		}
	case !online && n.activeAdapter == src:
		ctx := context.Background()
		if err := src.Deactivate(ctx); err != nil {
			n.logger.Error("sparkplug: adapter deactivation failed", "error", err)
		}
	}
}

func (n *Node) handleTerminal(req *PublishRequest, delivered bool) {
	if req == nil {
		return
	}
	pend, ok := n.pending[req.ID]
	if !ok {
		return
	}
	delete(n.pending, req.ID)
	// Delivered and undelivered are handled identically: the publishable
	// is marked published either way, clearing dirty metrics and
	// re-arming its countdown. An undelivered publish is not retried —
	// its values are folded into whatever the publishable next reports.
	pend.pub.published()
}

// buildWillPayload encodes the DEATH payload an adapter registers as
// its LWT at connect time: a single int64 metric, bdSeq, holding the
// next rolling bdSeq value. The value is also stashed in currentBdSeq
// so the session's subsequent NBIRTH echoes exactly the same number.
func (n *Node) buildWillPayload() ([]byte, error) {
	bd := n.NextBdSeq()
	n.currentBdSeq = bd
	desc := PayloadDesc{
		Timestamp: msToTime(n.clock.NowMs()),
		BdSeq:     &bd,
		Metrics: []MetricDesc{
			{Name: "bdSeq", Type: TypeInt64, Value: int64(bd), Timestamp: msToTime(n.clock.NowMs())},
		},
	}
	return n.codec.Encode(desc)
}

// NextBdSeq returns the bdSeq value an adapter should embed in its
// will payload for the upcoming session, advancing the rolling
// counter. Must be called exactly once per Configure/session.
func (n *Node) NextBdSeq() uint64 {
	v := n.bdSeq
	n.bdSeq = (n.bdSeq + 1) % 256
	return v
}

// Topics returns the computed topic template set. Valid only after
// Enable.
func (n *Node) Topics() Topics { return n.topics }

// IsActive reports whether the node currently has an active adapter
// and is therefore eligible to publish.
func (n *Node) IsActive() bool { return n.activeAdapter != nil }

// Mode returns the node's scheduling mode.
func (n *Node) Mode() NodeMode { return n.mode }
