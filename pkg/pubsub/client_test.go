package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/hirepurchase-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "ledger-prod", name: "hp-audit-events", want: "projects/ledger-prod/topics/hp-audit-events"},
		{project: "ledger-prod", name: " projects/other/topics/audit ", want: "projects/other/topics/audit"},
		{project: "", name: "hp-audit-events", want: ""},
		{project: "ledger-prod", name: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := TopicResourceName(tt.project, tt.name); got != tt.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q want %q", tt.project, tt.name, got, tt.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	if got := topicNames(config.PubSubConfig{AuditTopic: " "}); len(got) != 0 {
		t.Fatalf("expected no topics, got %v", got)
	}
	if got := topicNames(config.PubSubConfig{AuditTopic: "audit"}); len(got) != 1 || got[0] != "audit" {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{AuditTopic: "audit"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.AuditPublisher() != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error for nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
