package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/tbourn/go-diary-bot/internal/config"
	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/worker"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "worker", "migrate", "extract"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("missing subcommand %q: %v", name, err)
		}
	}
}

func TestExtractCmd_PrintsAttributes(t *testing.T) {
	t.Setenv("NLP_LEXICON_PATH", "")
	t.Setenv("NLP_TAGGER_URL", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", "", "extract", "выпил", "2", "чашки", "кофе"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var got domain.Attributes
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got.Action == nil || *got.Action != "выпить" {
		t.Fatalf("action=%v", got.Action)
	}
	if got.Quantity == nil || *got.Quantity != "2 чашки" {
		t.Fatalf("quantity=%v", got.Quantity)
	}
}

func TestExtractCmd_RequiresText(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"extract"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without text")
	}
}

func TestNewNotifier(t *testing.T) {
	if _, ok := newNotifier(config.Config{}).(worker.LogNotifier); !ok {
		t.Fatal("expected log notifier without webhook url")
	}
	cfg := config.Config{NotifyWebhookURL: "http://bot.local/notify"}
	if _, ok := newNotifier(cfg).(*worker.WebhookNotifier); !ok {
		t.Fatal("expected webhook notifier")
	}
}
