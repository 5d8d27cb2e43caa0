package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConversationRoundTrip(t *testing.T) {
	wd, _ := os.Getwd()
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	c, err := New("test-conv")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.AddTurn("hello", "hi there")
	c.AddTurn("bye", "goodbye")
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmp, ".odoo-agent", "conversations", "test-conv.json")); err != nil {
		t.Fatalf("conversation file not written: %v", err)
	}

	loaded, err := Load("test-conv")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].User != "hello" || loaded.Turns[1].Assistant != "goodbye" {
		t.Errorf("turns not preserved: %+v", loaded.Turns)
	}
}

func TestConversationLogFormat(t *testing.T) {
	c := &Conversation{ID: "x"}
	c.AddTurn("what is up", "not much")

	log := c.Log()
	if !strings.Contains(log, "User: what is up") || !strings.Contains(log, "Assistant: not much") {
		t.Errorf("unexpected log format: %q", log)
	}

	c.Clear()
	if c.Log() != "" {
		t.Errorf("expected empty log after Clear, got %q", c.Log())
	}
}
