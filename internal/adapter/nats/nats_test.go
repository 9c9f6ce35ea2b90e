package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/logger"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/messagequeue"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

func TestQueue_TriggerRoundTrip(t *testing.T) {
	q := testConnect(t)
	const agentID = "it-agent"

	var (
		mu       sync.Mutex
		received workflow.Request
		gotReqID string
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := q.Subscribe(context.Background(), messagequeue.WorkflowTriggerSubject(agentID), func(ctx context.Context, _ string, d []byte) error {
		var req workflow.Request
		if err := json.Unmarshal(d, &req); err != nil {
			return err
		}
		mu.Lock()
		received = req
		gotReqID = logger.RequestID(ctx)
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), "req-abc-123")
	h, err := NewWorkflowTrigger(q).TriggerWorkflow(ctx, agentID, workflow.Request{
		ExecutionID: "exec_h1_" + agentID,
		HandoffID:   "h1",
	})
	if err != nil {
		t.Fatalf("TriggerWorkflow: %v", err)
	}
	if h.Backend != "nats" {
		t.Errorf("backend = %q", h.Backend)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.HandoffID != "h1" || received.TargetAgentID != agentID {
		t.Errorf("received %+v", received)
	}
	if gotReqID != "req-abc-123" {
		t.Errorf("request ID = %q", gotReqID)
	}
}

func TestQueue_InvalidMessageGoesToDLQ(t *testing.T) {
	q := testConnect(t)
	ctx := context.Background()
	subject := messagequeue.WorkflowTriggerSubject("dlq-agent")

	stop, err := q.Subscribe(ctx, subject, func(context.Context, string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe main: %v", err)
	}
	defer stop()

	dlqConsumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject + messagequeue.DeadLetterSuffix,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("create DLQ consumer: %v", err)
	}

	var (
		dlqData []byte
		dlqDone = make(chan struct{})
		dlqOnce sync.Once
	)
	dlqSub, err := dlqConsumer.Consume(func(msg jetstream.Msg) {
		dlqOnce.Do(func() {
			dlqData = msg.Data()
			close(dlqDone)
		})
		_ = msg.Ack()
	})
	if err != nil {
		t.Fatalf("consume DLQ: %v", err)
	}
	defer dlqSub.Stop()

	bad := []byte(`{"handoff_id":"h1","target_agent_id":"someone-else"}`)
	if err := q.Publish(ctx, subject, bad); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-dlqDone:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for DLQ message")
	}
	if string(dlqData) != string(bad) {
		t.Errorf("DLQ data = %s", dlqData)
	}
}
