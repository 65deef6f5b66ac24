package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/paddock/protocol"
	"github.com/luma/paddock/transport"
)

const (
	DefaultReadTimeout    = time.Second
	DefaultUpdateInterval = 250 * time.Millisecond
	DefaultDisplayName    = "paddock"
)

var (
	ErrInvalidState   = errors.New("Session is not in a state that allows this call")
	ErrRejected       = errors.New("Server rejected the registration")
	ErrConnectionLost = errors.New("Connection to the server was lost")

	errStopping = errors.New("session stopping")
)

type Options struct {
	// ReadTimeout bounds each wait for inbound bytes. It is also the longest
	// Stop will wait for an idle session to notice it should exit.
	ReadTimeout time.Duration

	// Transport settings. Host and Port are taken from the Registration.
	Transport transport.Options

	Log *zap.Logger
}

// Registration is everything needed to open a session with a server.
type Registration struct {
	Host            string
	Port            int
	Password        string
	CommandPassword string
	DisplayName     string
	UpdateInterval  time.Duration
}

type exitReason int

const (
	exitStopped exitReason = iota
	exitRejected
	exitLost
)

// session is the per-Start state: the socket, its reader and the goroutine
// decoding from it.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	udp    *transport.UDP
	reader *transport.Reader
	roster *Roster

	done chan struct{}
	err  error
}

func (s *session) alive() bool {
	select {
	case <-s.done:
		return false

	default:
		return true
	}
}

// Conn is a client session with a simulator's broadcasting interface.
//
// Start, Stop and the command methods are meant to be called from a single
// goroutine. Subscribers are invoked from the session's processing goroutine.
type Conn struct {
	options Options
	events  Events

	mu           sync.Mutex
	state        ConnectionState
	connectionID int32
	writable     bool
	sess         *session

	log *zap.Logger
}

func New(options Options) *Conn {
	if options.ReadTimeout <= 0 {
		options.ReadTimeout = DefaultReadTimeout
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	if options.Transport.Log == nil {
		options.Transport.Log = log.Named("transport")
	}

	return &Conn{
		options: options,
		log:     log,
	}
}

func (c *Conn) OnConnectionStateChange() *Observable[ConnectionState] {
	return &c.events.ConnectionState
}

func (c *Conn) OnTrackDataUpdate() *Observable[*protocol.TrackData] {
	return &c.events.TrackData
}

func (c *Conn) OnEntryListCarUpdate() *Observable[*protocol.EntryListCar] {
	return &c.events.EntryListCar
}

func (c *Conn) OnRealtimeUpdate() *Observable[*protocol.RealtimeUpdate] {
	return &c.events.RealtimeUpdate
}

func (c *Conn) OnRealtimeCarUpdate() *Observable[*protocol.RealtimeCarUpdate] {
	return &c.events.RealtimeCarUpdate
}

func (c *Conn) OnBroadcastingEvent() *Observable[*protocol.BroadcastingEvent] {
	return &c.events.BroadcastingEvent
}

func (c *Conn) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ConnectionID is the server-assigned id; it is only meaningful while the
// session is established.
func (c *Conn) ConnectionID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectionID
}

// Writable reports whether the server accepts state-changing commands from
// this client.
func (c *Conn) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writable
}

// Roster returns the entry roster of the current session, or nil if no
// session has been started.
func (c *Conn) Roster() *Roster {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil
	}
	return c.sess.roster
}

// Err returns the error that ended the most recent session, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || c.sess.alive() {
		return nil
	}
	return c.sess.err
}

// Start opens a socket to the server, starts the receive and processing
// goroutines and sends the registration command. Registration completes
// asynchronously; watch OnConnectionStateChange for the outcome.
//
// Start fails with ErrInvalidState if a session is still running. A session
// that already ended (lost or rejected) is cleaned up and replaced.
func (c *Conn) Start(ctx context.Context, reg Registration) error {
	c.mu.Lock()
	prev := c.sess
	if prev != nil && prev.alive() {
		c.mu.Unlock()
		return fmt.Errorf("Cannot start, already running: %w", ErrInvalidState)
	}
	c.sess = nil
	c.connectionID = 0
	c.writable = false
	c.mu.Unlock()

	if reg.DisplayName == "" {
		reg.DisplayName = DefaultDisplayName
	}

	if reg.UpdateInterval <= 0 {
		reg.UpdateInterval = DefaultUpdateInterval
	}

	log := c.log.With(zap.String("host", reg.Host), zap.Int("port", reg.Port))

	c.setState(ConnectionState{State: StateConnecting})

	options := c.options.Transport
	options.Host = reg.Host
	options.Port = reg.Port

	udp, err := transport.Dial(options)
	if err != nil {
		c.setState(ConnectionState{State: StateDisconnected})
		return err
	}

	reader := transport.NewReader(udp, options)
	reader.Start()

	sessCtx, cancel := context.WithCancel(ctx)
	s := &session{
		ctx:    sessCtx,
		cancel: cancel,
		udp:    udp,
		reader: reader,
		roster: NewRoster(),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()

	go c.run(s, log.Named("session"))

	err = c.send(s, &protocol.RegisterCommand{
		DisplayName:      reg.DisplayName,
		Password:         reg.Password,
		UpdateIntervalMs: int32(reg.UpdateInterval / time.Millisecond),
		CommandPassword:  reg.CommandPassword,
	})
	if err != nil {
		cancel()
		<-s.done

		c.mu.Lock()
		c.sess = nil
		c.mu.Unlock()

		return fmt.Errorf("Failed to send registration: %w", err)
	}

	log.Info("Registration sent", zap.Stringer("local", udp.LocalAddr()))

	return nil
}

// Stop ends the session and waits for its goroutines to exit. The final
// state is disconnected, or lost/rejected if the session had already ended
// that way.
func (c *Conn) Stop() error {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()

	if s == nil {
		return fmt.Errorf("Cannot stop, not running: %w", ErrInvalidState)
	}

	s.cancel()
	<-s.done

	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	c.mu.Unlock()

	return nil
}

// Done returns a channel that is closed when the current session's
// processing goroutine exits, or nil if there is no session.
func (c *Conn) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil
	}
	return c.sess.done
}

// TargetOption selects the car and/or camera for focus and replay commands.
type TargetOption func(*target)

type target struct {
	carIndex *uint16
	camera   *protocol.CameraSelection
}

func WithCar(carIndex uint16) TargetOption {
	return func(t *target) {
		t.carIndex = &carIndex
	}
}

func WithCamera(cameraSet, camera string) TargetOption {
	return func(t *target) {
		t.camera = &protocol.CameraSelection{Set: cameraSet, Camera: camera}
	}
}

func makeTarget(opts []TargetOption) target {
	var t target
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (c *Conn) RequestEntryList() error {
	s, id, err := c.established()
	if err != nil {
		return err
	}

	return c.send(s, &protocol.EntryListRequest{ConnectionID: id})
}

func (c *Conn) RequestTrackData() error {
	s, id, err := c.established()
	if err != nil {
		return err
	}

	return c.send(s, &protocol.TrackDataRequest{ConnectionID: id})
}

// ChangeFocus moves the broadcast focus to a car, a camera, or both. With no
// options the command is still sent and changes nothing.
func (c *Conn) ChangeFocus(opts ...TargetOption) error {
	s, id, err := c.established()
	if err != nil {
		return err
	}

	t := makeTarget(opts)

	return c.send(s, &protocol.FocusChange{
		ConnectionID: id,
		CarIndex:     t.carIndex,
		Camera:       t.camera,
	})
}

// RequestInstantReplay asks the server to replay duration worth of session
// starting at start (session time). Car and camera default to the current
// focus.
func (c *Conn) RequestInstantReplay(start, duration time.Duration, opts ...TargetOption) error {
	s, id, err := c.established()
	if err != nil {
		return err
	}

	t := makeTarget(opts)

	req := &protocol.InstantReplayRequest{
		ConnectionID: id,
		StartTime:    float32(start.Milliseconds()),
		DurationMs:   float32(duration.Milliseconds()),
		CarIndex:     -1,
	}

	if t.carIndex != nil {
		req.CarIndex = int32(*t.carIndex)
	}

	if t.camera != nil {
		req.CameraSet = t.camera.Set
		req.Camera = t.camera.Camera
	}

	return c.send(s, req)
}

func (c *Conn) ChangeHUDPage(page string) error {
	s, id, err := c.established()
	if err != nil {
		return err
	}

	return c.send(s, &protocol.HUDPageChange{ConnectionID: id, Page: page})
}

func (c *Conn) established() (*session, int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || c.state.State != StateEstablished {
		return nil, 0, fmt.Errorf("Cannot send command while %s: %w", c.state, ErrInvalidState)
	}

	return c.sess, c.connectionID, nil
}

func (c *Conn) send(s *session, cmd protocol.Command) error {
	data, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("Failed to encode %T: %w", cmd, err)
	}

	return s.udp.Send(data)
}

// setState publishes a state change. Repeating the current state is a no-op.
func (c *Conn) setState(next ConnectionState) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	c.log.Info("Connection state changed", zap.Stringer("state", next))
	c.events.ConnectionState.dispatch(next, c.log)
}

// run is the session's processing goroutine. Whatever ends the loop, the
// exit path sends a best-effort unregister and releases the socket.
func (c *Conn) run(s *session, log *zap.Logger) {
	defer close(s.done)

	reason, err := c.process(s, log)

	if uerr := c.send(s, &protocol.UnregisterCommand{}); uerr != nil {
		log.Debug("Unregister failed", zap.Error(uerr))
	}

	if cerr := multierr.Combine(s.reader.Stop(), s.udp.Close()); cerr != nil {
		log.Warn("Session did not close cleanly", zap.Error(cerr))
	}

	switch reason {
	case exitLost:
		s.err = fmt.Errorf("%w: %w", ErrConnectionLost, err)
		c.setState(ConnectionState{State: StateLost})

	case exitRejected:
		s.err = err

	default:
		if c.State().Running() {
			c.setState(ConnectionState{State: StateDisconnected})
		}
	}

	log.Info("Session ended", zap.Stringer("state", c.State()))
}

func (c *Conn) process(s *session, log *zap.Logger) (exitReason, error) {
	dec := protocol.NewDecoder(&streamSource{
		reader:  s.reader,
		timeout: c.options.ReadTimeout,
		ctx:     s.ctx,
	})

	for {
		if s.ctx.Err() != nil {
			return exitStopped, nil
		}

		msg, err := protocol.ReadMessage(dec)
		if err != nil {
			if errors.Is(err, errStopping) {
				return exitStopped, nil
			}

			log.Warn("Failed to read server message", zap.Error(err))
			return exitLost, err
		}

		if rejected := c.handle(s, msg, log); rejected != nil {
			return exitRejected, rejected
		}
	}
}

// handle routes one decoded message. It returns a non-nil error only when the
// server rejected the registration.
func (c *Conn) handle(s *session, msg protocol.Message, log *zap.Logger) error {
	if r, ok := msg.(*protocol.RegistrationResult); ok {
		return c.handleRegistration(s, r, log)
	}

	if c.State().State != StateEstablished {
		log.Debug("Dropping message before registration",
			zap.Stringer("type", msg.MessageType()))
		return nil
	}

	switch m := msg.(type) {
	case *protocol.EntryList:
		s.roster.Reset(m.CarIndices)

	case *protocol.EntryListCar:
		s.roster.Record(m.CarIndex, len(m.Drivers))
		c.events.EntryListCar.dispatch(m, log)

	case *protocol.RealtimeCarUpdate:
		if !s.roster.Accept(m.CarIndex, m.DriverCount) {
			log.Debug("Car update does not match the entry list, refreshing",
				zap.Uint16("carIndex", m.CarIndex),
				zap.Uint8("driverCount", m.DriverCount))
			c.requestEntryList(s, log)
			return nil
		}
		c.events.RealtimeCarUpdate.dispatch(m, log)

	case *protocol.RealtimeUpdate:
		c.events.RealtimeUpdate.dispatch(m, log)

	case *protocol.TrackData:
		c.events.TrackData.dispatch(m, log)

	case *protocol.BroadcastingEvent:
		c.events.BroadcastingEvent.dispatch(m, log)
	}

	return nil
}

func (c *Conn) handleRegistration(s *session, r *protocol.RegistrationResult, log *zap.Logger) error {
	if !r.Success {
		log.Warn("Registration rejected", zap.String("reason", r.ErrorMessage))
		c.setState(ConnectionState{State: StateRejected, Reason: r.ErrorMessage})
		return fmt.Errorf("%w: %s", ErrRejected, r.ErrorMessage)
	}

	c.mu.Lock()
	c.connectionID = r.ConnectionID
	c.writable = r.Writable
	c.mu.Unlock()

	log.Info("Registered",
		zap.Int32("connectionID", r.ConnectionID),
		zap.Bool("writable", r.Writable))

	c.setState(ConnectionState{State: StateEstablished})

	// The server does not push these on its own
	c.requestEntryList(s, log)
	if err := c.send(s, &protocol.TrackDataRequest{ConnectionID: r.ConnectionID}); err != nil {
		log.Warn("Failed to request track data", zap.Error(err))
	}

	return nil
}

func (c *Conn) requestEntryList(s *session, log *zap.Logger) {
	if err := c.send(s, &protocol.EntryListRequest{ConnectionID: c.ConnectionID()}); err != nil {
		log.Warn("Failed to request entry list", zap.Error(err))
	}
}

// streamSource adapts the reader to protocol.Source. Read timeouts are
// retried until the session is cancelled.
type streamSource struct {
	reader  *transport.Reader
	timeout time.Duration
	ctx     context.Context
}

func (s *streamSource) Next(n int) ([]byte, error) {
	for {
		b, err := s.reader.Read(n, s.timeout)
		if !errors.Is(err, transport.ErrTimeout) {
			return b, err
		}

		if s.ctx.Err() != nil {
			return nil, errStopping
		}
	}
}
