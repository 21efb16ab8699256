package sse

import (
	"bytes"
	"testing"
)

func TestBroadcastByTopic(t *testing.T) {
	clients := NewSSEClients()
	tip := NewClient("tip")
	guide := NewClient("guide")
	clients.Add(tip)
	clients.Add(guide)

	clients.Broadcast("tip", "50")

	select {
	case msg := <-tip.Msg:
		if msg != "50" {
			t.Errorf("Expected '50', got %q", msg)
		}
	default:
		t.Fatal("Expected tip client to receive the message")
	}

	select {
	case msg := <-guide.Msg:
		t.Errorf("Guide client received %q", msg)
	default:
	}

	if n := clients.Count("tip"); n != 1 {
		t.Errorf("Expected 1 tip client, got %d", n)
	}
}

func TestBroadcastDoesNotBlock(t *testing.T) {
	clients := NewSSEClients()
	c := &Client{Msg: make(chan string), Topic: "tip"}
	clients.Add(c)

	// Nobody reads c.Msg; the call must still return.
	clients.Broadcast("tip", "10")
}

func TestDelete(t *testing.T) {
	clients := NewSSEClients()
	c := NewClient("tip")
	clients.Add(c)
	clients.Delete(c)
	clients.Delete(c)

	if _, ok := <-c.Msg; ok {
		t.Error("Expected channel to be closed")
	}
	if n := clients.Count("tip"); n != 0 {
		t.Errorf("Expected no clients, got %d", n)
	}
	clients.Broadcast("tip", "ignored")
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvent(&buf, "progress", "100"); err != nil {
		t.Fatal(err)
	}
	if err := WriteEvent(&buf, "", "x"); err != nil {
		t.Fatal(err)
	}
	want := "event: progress\ndata: 100\n\ndata: x\n\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}
