package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestSMTP_BuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s := NewSMTP("mail.example.com", "", "user", "pass")
	s.sendMail = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), Message{
		From:    "Uptime Monitor <alerts@example.com>",
		To:      "owner@example.com",
		Subject: "🚨 Website Alert: https://a.example is Down",
		HTML:    "<p>down</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.example.com:587" {
		t.Fatalf("bad addr %q", gotAddr)
	}
	if gotFrom != "alerts@example.com" || len(gotTo) != 1 || gotTo[0] != "owner@example.com" {
		t.Fatalf("bad envelope from=%q to=%v", gotFrom, gotTo)
	}
	if !strings.Contains(gotMsg, "Content-Type: text/html") || !strings.Contains(gotMsg, "=?UTF-8?q?") {
		t.Fatalf("unexpected message:\n%s", gotMsg)
	}
}

func TestSMTP_RejectsBadRecipient(t *testing.T) {
	s := NewSMTP("mail.example.com", "25", "", "")
	called := false
	s.sendMail = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	if err := s.Send(context.Background(), Message{From: "a@example.com", To: "not an address"}); err == nil {
		t.Fatalf("want error for bad recipient")
	}
	if called {
		t.Fatalf("must not dial with a bad recipient")
	}
}

func TestSMTP_RelayError(t *testing.T) {
	s := NewSMTP("mail.example.com", "25", "", "")
	s.sendMail = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}
	err := s.Send(context.Background(), Message{From: "a@example.com", To: "b@example.com"})
	if err == nil || !strings.Contains(err.Error(), "550") {
		t.Fatalf("want relay error, got %v", err)
	}
}

func localRelay(t *testing.T, serve func(net.Conn)) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				serve(conn)
			}()
		}
	}()
	host, port, _ = net.SplitHostPort(ln.Addr().String())
	return host, port
}

func TestSMTP_StalledRelayHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	host, port := localRelay(t, func(net.Conn) { <-release })

	s := NewSMTP(host, port, "", "")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Send(ctx, Message{From: "a@example.com", To: "b@example.com", HTML: "<p>x</p>"})
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("want error from a relay that never greets")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Send still blocked after the ctx deadline")
	}
}

func TestSMTP_SessionDeliversMessage(t *testing.T) {
	got := make(chan string, 1)
	host, port := localRelay(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		reply("220 relay.test ESMTP")
		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				reply("250 relay.test")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				got <- data.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unknown")
			}
		}
	})

	s := NewSMTP(host, port, "", "")
	err := s.Send(context.Background(), Message{
		From:    "Uptime Monitor <alerts@example.com>",
		To:      "owner@example.com",
		Subject: "down",
		HTML:    "<p>down</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case msg := <-got:
		if !strings.Contains(msg, "To: owner@example.com") || !strings.Contains(msg, "<p>down</p>") {
			t.Fatalf("unexpected message:\n%s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay never received DATA")
	}
}
