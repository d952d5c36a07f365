package bridge

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/editorbridge/mcp-bridge/internal/wire"
)

type echoProcessor struct{}

func (echoProcessor) Process(_ context.Context, _ string, requestJSON []byte) ([]byte, error) {
	return requestJSON, nil
}

func dialAndWait(t *testing.T, port int) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("dial 127.0.0.1:%d: %v", port, err)
	return nil
}

func TestServerStartAcceptsAndEchoesFrame(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New(Options{Processor: echoProcessor{}})
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn := dialAndWait(t, s.Port())
	defer conn.Close()

	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	if _, err := conn.Write(wire.Encode(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	contentLen, headerLen, res := wire.TryParseHeader(buf, n)
	if res != wire.HeaderOK {
		t.Fatalf("TryParseHeader result = %v", res)
	}
	body, err := wire.ExtractBody(buf, contentLen, headerLen)
	if err != nil {
		t.Fatalf("ExtractBody: %v", err)
	}
	if string(body) != string(msg) {
		t.Fatalf("echoed body = %q, want %q", body, msg)
	}
}

func TestServerStartTwiceOnSamePortFails(t *testing.T) {
	s1 := New(Options{})
	if err := s1.Start(0); err != nil {
		t.Fatalf("Start s1: %v", err)
	}
	defer s1.Stop()

	s2 := New(Options{})
	err := s2.Start(s1.Port())
	if err == nil {
		s2.Stop()
		t.Fatal("expected error starting second server on bound port")
	}
	if err != ErrAddressInUse {
		t.Errorf("err = %v, want ErrAddressInUse", err)
	}
}

func TestServerStopClosesConnectionsAndReleasesPort(t *testing.T) {
	s := New(Options{Processor: echoProcessor{}})
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := dialAndWait(t, s.Port())
	defer conn.Close()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() {
		t.Error("expected Running() false after Stop")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected read to fail after server stop (clean EOF or reset)")
	}
}

func TestUpdateClientNamePreservesConnectedAt(t *testing.T) {
	s := New(Options{Processor: echoProcessor{}})
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn := dialAndWait(t, s.Port())
	defer conn.Close()

	if _, err := conn.Write(wire.Encode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	clients := s.ConnectedClients()
	if len(clients) != 1 {
		t.Fatalf("len(clients) = %d, want 1", len(clients))
	}
	endpoint := clients[0].Endpoint
	before := clients[0].ConnectedAt

	if !s.UpdateClientName(endpoint, "cursor-1.2.3") {
		t.Fatal("UpdateClientName returned false")
	}

	clients = s.ConnectedClients()
	if clients[0].Name != "cursor-1.2.3" {
		t.Errorf("Name = %q, want %q", clients[0].Name, "cursor-1.2.3")
	}
	if !clients[0].ConnectedAt.Equal(before) {
		t.Errorf("ConnectedAt changed: got %v, want %v", clients[0].ConnectedAt, before)
	}
}

func TestBroadcastDeliversToAllConnections(t *testing.T) {
	s := New(Options{Processor: echoProcessor{}})
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn1 := dialAndWait(t, s.Port())
	defer conn1.Close()
	conn2 := dialAndWait(t, s.Port())
	defer conn2.Close()

	// Let the accept loop register both connections before broadcasting.
	time.Sleep(100 * time.Millisecond)

	s.Broadcast([]byte(`{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`))

	for _, c := range []net.Conn{conn1, conn2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, err := c.Read(buf)
		if err != nil {
			t.Fatalf("read broadcast: %v", err)
		}
		if n == 0 {
			t.Fatal("expected non-empty broadcast frame")
		}
	}
}
