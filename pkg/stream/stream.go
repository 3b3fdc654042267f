// Package stream publishes simulation tick events over a nanomsg PUB socket
// so external renderers can follow a run live. Messages are a topic prefix
// followed by a JSON body; subscribers filter on the prefix.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// Topic prefixes carried at the front of every message.
const (
	TickTopic = "TICK:"
	DoneTopic = "DONE:"
)

// DefaultRecvTimeout bounds each blocking receive so Recv can observe its context.
const DefaultRecvTimeout = 250 * time.Millisecond

// Recorder receives send outcomes; *metrics.Registry satisfies it.
type Recorder interface {
	RecordStreamEvent(status string)
}

// RunDone is published once when a run finishes.
type RunDone struct {
	RunID         string `json:"run_id"`
	Ticks         int    `json:"ticks"`
	FinalInfected int    `json:"final_infected"`
	Success       bool   `json:"success"`
}

// Publisher owns a bound PUB socket.
type Publisher struct {
	sock     mangos.Socket
	addr     string
	logger   logging.Logger
	recorder Recorder

	mu     sync.Mutex
	closed bool
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger logging.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logging.OrNop(logger)
	}
}

// WithRecorder reports every send as "sent" or "error".
func WithRecorder(r Recorder) PublisherOption {
	return func(p *Publisher) {
		p.recorder = r
	}
}

// NewPublisher creates a PUB socket listening on addr, e.g. "tcp://*:9470"
// or "inproc://botnet".
func NewPublisher(addr string, opts ...PublisherOption) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket to %s: %w", addr, err)
	}

	p := &Publisher{
		sock:   sock,
		addr:   addr,
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logging.Component("stream"), logging.String("addr", addr))
	p.logger.Info("tick publisher bound")

	return p, nil
}

// Addr returns the listen address.
func (p *Publisher) Addr() string {
	return p.addr
}

// PublishTick sends one tick event.
func (p *Publisher) PublishTick(ev propagation.TickEvent) error {
	return p.send(TickTopic, ev)
}

// PublishDone sends the end-of-run marker.
func (p *Publisher) PublishDone(done RunDone) error {
	return p.send(DoneTopic, done)
}

func (p *Publisher) send(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", topic, err)
	}
	msg := append([]byte(topic), data...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return mangos.ErrClosed
	}

	err = p.sock.Send(msg)
	p.record(err)
	return err
}

func (p *Publisher) record(err error) {
	if p.recorder == nil {
		return
	}
	if err != nil {
		p.recorder.RecordStreamEvent("error")
		return
	}
	p.recorder.RecordStreamEvent("sent")
}

// Observer returns a propagation.Observer that publishes every tick. Send
// failures are logged and never interrupt the run.
func (p *Publisher) Observer() propagation.Observer {
	return propagation.ObserverFunc(func(ev propagation.TickEvent) {
		if err := p.PublishTick(ev); err != nil {
			p.logger.Warn("failed to publish tick", logging.Tick(ev.Tick), logging.Error(err))
		}
	})
}

// Close closes the socket. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.sock.Close()
}

// Message is one decoded stream message; exactly one of Tick or Done is set.
type Message struct {
	Tick *propagation.TickEvent
	Done *RunDone
}

// Subscriber is a SUB socket dialed to a Publisher.
type Subscriber struct {
	sock mangos.Socket
}

// NewSubscriber dials addr and subscribes to both tick and done messages.
func NewSubscriber(addr string) (*Subscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	for _, topic := range []string{TickTopic, DoneTopic} {
		if err := sock.SetOption(mangos.OptionSubscribe, []byte(topic)); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, DefaultRecvTimeout); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set receive deadline: %w", err)
	}
	return &Subscriber{sock: sock}, nil
}

// Recv blocks until a message arrives or ctx is done.
func (s *Subscriber) Recv(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		raw, err := s.sock.Recv()
		if errors.Is(err, mangos.ErrRecvTimeout) {
			continue
		}
		if err != nil {
			return Message{}, err
		}
		return decode(raw)
	}
}

// Close closes the socket.
func (s *Subscriber) Close() error {
	return s.sock.Close()
}

func decode(raw []byte) (Message, error) {
	switch {
	case bytes.HasPrefix(raw, []byte(TickTopic)):
		var ev propagation.TickEvent
		if err := json.Unmarshal(raw[len(TickTopic):], &ev); err != nil {
			return Message{}, fmt.Errorf("failed to decode tick: %w", err)
		}
		return Message{Tick: &ev}, nil
	case bytes.HasPrefix(raw, []byte(DoneTopic)):
		var done RunDone
		if err := json.Unmarshal(raw[len(DoneTopic):], &done); err != nil {
			return Message{}, fmt.Errorf("failed to decode done: %w", err)
		}
		return Message{Done: &done}, nil
	default:
		return Message{}, fmt.Errorf("unknown stream topic in %q", truncate(raw, 16))
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
