package events

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"

	"github.com/nodeatlas/nodeatlas/pkg/logging"
)

// TestPublishBuildCompleted tests the wire format end to end over inproc
func TestPublishBuildCompleted(t *testing.T) {
	addr := "inproc://events-test-completed"
	p, err := NewPublisher(addr, logging.Nop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer p.Close()

	recv, err := sub.NewSocket()
	if err != nil {
		t.Fatalf("sub socket: %v", err)
	}
	defer recv.Close()
	if err := recv.Dial(addr); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := recv.SetOption(mangos.OptionSubscribe, []byte(TopicBuildCompleted)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := recv.SetOption(mangos.OptionRecvDeadline, 2*time.Second); err != nil {
		t.Fatalf("deadline: %v", err)
	}

	// PUB drops messages sent before the subscriber pipe is up; retry until
	// one lands or the deadline expires.
	notice := BuildNotice{BuildID: "b-1", Nodes: 42, Edges: 99, Hubs: 5, Strategy: "force"}
	var msg []byte
	deadline := time.Now().Add(2 * time.Second)
	for {
		p.Publish(TopicBuildCompleted, notice)
		recv.SetOption(mangos.OptionRecvDeadline, 100*time.Millisecond)
		msg, err = recv.Recv()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no message received: %v", err)
		}
	}

	sep := bytes.IndexByte(msg, '|')
	if sep < 0 {
		t.Fatalf("message missing topic separator: %q", msg)
	}
	if got := string(msg[:sep]); got != TopicBuildCompleted {
		t.Errorf("topic = %q, want %q", got, TopicBuildCompleted)
	}

	var decoded BuildNotice
	if err := json.Unmarshal(msg[sep+1:], &decoded); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if decoded.BuildID != "b-1" || decoded.Nodes != 42 || decoded.Edges != 99 {
		t.Errorf("decoded = %+v", decoded)
	}
}

// TestTopicFilter tests that a subscriber filtered on failures ignores completions
func TestTopicFilter(t *testing.T) {
	addr := "inproc://events-test-filter"
	p, err := NewPublisher(addr, logging.Nop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer p.Close()

	recv, err := sub.NewSocket()
	if err != nil {
		t.Fatalf("sub socket: %v", err)
	}
	defer recv.Close()
	if err := recv.Dial(addr); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := recv.SetOption(mangos.OptionSubscribe, []byte(TopicBuildFailed)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	recv.SetOption(mangos.OptionRecvDeadline, 100*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.Publish(TopicBuildCompleted, BuildNotice{BuildID: "ignored"})
		p.Publish(TopicBuildFailed, BuildNotice{BuildID: "b-2", Error: "directory unreachable"})
		msg, err := recv.Recv()
		if err == nil {
			if !bytes.HasPrefix(msg, []byte(TopicBuildFailed+"|")) {
				t.Fatalf("received non-failure message: %q", msg)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no failure message received: %v", err)
		}
	}
}

// TestPublishAfterClose tests that sending on a closed socket doesn't panic
func TestPublishAfterClose(t *testing.T) {
	p, err := NewPublisher("inproc://events-test-closed", logging.Nop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	p.Close()
	p.Publish(TopicBuildCompleted, BuildNotice{BuildID: "late"})
}
