// Package events broadcasts build notifications to external consumers over
// an NNG PUB socket. Subscribers (dashboards, downstream indexers) connect
// with a SUB socket and filter on the topic prefix.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/nodeatlas/nodeatlas/pkg/logging"
)

// Topic prefixes on the wire. Messages are "<topic>|<json payload>".
const (
	TopicBuildCompleted = "build.completed"
	TopicBuildFailed    = "build.failed"
)

// BuildNotice is the payload published after every build attempt.
type BuildNotice struct {
	BuildID     string    `json:"buildId"`
	CompletedAt time.Time `json:"completedAt"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Hubs        int       `json:"hubs"`
	Strategy    string    `json:"strategy,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Publisher owns the PUB socket. Publishing is best-effort: a consumer that
// is not connected simply misses the message.
type Publisher struct {
	sock   socket
	logger logging.Logger
}

// socket is the slice of mangos.Socket the publisher uses.
type socket interface {
	Send([]byte) error
	Close() error
}

// NewPublisher binds a PUB socket on addr (e.g. "tcp://0.0.0.0:9410" or
// "inproc://builds").
func NewPublisher(addr string, logger logging.Logger) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bind pub socket to %s: %w", addr, err)
	}
	logger.Info("event publisher bound", logging.String("addr", addr))
	return &Publisher{sock: sock, logger: logger}, nil
}

// Publish sends notice on topic. Send errors are logged, not returned, since
// no caller can act on them.
func (p *Publisher) Publish(topic string, notice BuildNotice) {
	payload, err := json.Marshal(notice)
	if err != nil {
		p.logger.Error("marshal build notice", logging.Error(err))
		return
	}
	msg := append([]byte(topic+"|"), payload...)
	if err := p.sock.Send(msg); err != nil {
		p.logger.Warn("publish build notice",
			logging.String("topic", topic),
			logging.Error(err))
	}
}

// Close shuts the socket down.
func (p *Publisher) Close() error {
	return p.sock.Close()
}
