package dcs

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"samsim/server/internal/proto"
	"samsim/server/internal/telemetry"
)

func TestSenderFiresDatagram(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind listener: %v", err)
	}
	defer listener.Close()

	counters := &telemetry.Counters{}
	sender, err := NewSender(listener.LocalAddr().String(), SenderConfig{Counters: counters})
	if err != nil {
		t.Fatalf("failed to open sender: %v", err)
	}
	defer sender.Close()

	cmd := proto.NewInitSiteCommand("sam1", "SAM Alpha")
	if err := sender.Send(cmd); err != nil {
		t.Fatalf("failed to send command: %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 65535)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("failed to receive datagram: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf[:n], &decoded); err != nil {
		t.Fatalf("failed to decode datagram: %v", err)
	}
	if decoded["cmd"] != "init_site" {
		t.Fatalf("expected cmd init_site, got %v", decoded["cmd"])
	}
	if decoded["siteId"] != "sam1" {
		t.Fatalf("expected siteId sam1, got %v", decoded["siteId"])
	}

	if counters.Snapshot().CommandsSent != 1 {
		t.Fatalf("expected one command counted, got %d", counters.Snapshot().CommandsSent)
	}
}

func TestSenderForwardsRawPayloadVerbatim(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind listener: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String(), SenderConfig{})
	if err != nil {
		t.Fatalf("failed to open sender: %v", err)
	}
	defer sender.Close()

	raw := json.RawMessage(`{"cmd":"set_radar","siteId":"sam1","params":{"mode":2}}`)
	if err := sender.Send(raw); err != nil {
		t.Fatalf("failed to send raw command: %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 65535)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("failed to receive datagram: %v", err)
	}
	if string(buf[:n]) != string(raw) {
		t.Fatalf("expected verbatim forward, got %s", buf[:n])
	}
}

func TestSenderRejectsUnencodableCommand(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind listener: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String(), SenderConfig{})
	if err != nil {
		t.Fatalf("failed to open sender: %v", err)
	}
	defer sender.Close()

	if err := sender.Send(make(chan int)); err == nil {
		t.Fatalf("expected error for unencodable command")
	}
}
