package natskv_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/natskv"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/cache/cachetest"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"success_rate.seo-specialist", "success_rate.seo-specialist"},
		{"idem:POST:/api/v1/handoffs/execute:abc", "idem_POST_/api/v1/handoffs/execute_abc"},
		{"rate agent é", "rate_agent__"},
	}
	for _, tt := range tests {
		if got := natskv.EncodeKey(tt.in); got != tt.want {
			t.Errorf("EncodeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCache_Compliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	c, err := natskv.Open(ctx, js, "HANDOFF_TEST_CACHE", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = js.DeleteKeyValue(ctx, "HANDOFF_TEST_CACHE") }()

	cachetest.RunComplianceTests(t, c, nil)
}
