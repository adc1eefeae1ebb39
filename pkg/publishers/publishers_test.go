package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/1/follows "
      region: us-east-1
      endpoint: http://localhost:4566
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "queue" {
		t.Fatalf("expected only queue enabled, got %#v", enabled)
	}
	q := enabled[0]
	if q.Type != TypeSQS || q.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/1/follows" || q.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("sqs config not normalized: %#v", q.SQS)
	}
	hook, ok := reg.ByID("hook")
	if !ok || hook.HTTP.Method != "POST" || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", hook.HTTP)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[
		{"id":"topic","type":"sns","sns":{"topic_arn":"arn:aws:sns:us-east-1:1:follows","region":"us-east-1"}},
		{"id":"ps","type":"gcp_pubsub","gcp_pubsub":{"project_id":"p","topic":"follows"}},
		{"id":"bus","type":"nats","nats":{"url":"nats://127.0.0.1:4222","subject_prefix":"social."}}
	]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 publishers, got %d", len(reg.All()))
	}
	if cfg, ok := reg.ByID("bus"); !ok || cfg.NATS.SubjectPrefix != "social" || cfg.NATS.FlushTimeoutSeconds != natsDefaultFlushSeconds {
		t.Fatalf("nats config = %#v", cfg.NATS)
	}
	if cfg, ok := reg.ByID("ps"); !ok || cfg.PubSub.Topic != "follows" {
		t.Fatalf("pubsub config = %#v", cfg.PubSub)
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook
    type: http
    http: {url: https://a.example.com}
  - id: hook
    type: http
    http: {url: https://b.example.com}
`)
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":   {ID: "h1", Type: TypeHTTP},
		"missing region": {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}},
		"missing topic":  {ID: "t1", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSConfig: AWSConfig{Region: "r"}}},
		"missing pubsub": {ID: "p1", Type: TypeGCPPubSub},
		"missing nats":   {ID: "n1", Type: TypeNATS, NATS: &NATSPublisherConfig{}},
		"unknown type":   {ID: "x", Type: "kafka"},
		"missing id":     {Type: TypeHTTP},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
