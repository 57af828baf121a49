package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

func send(t *testing.T, path, cmd string) string {
	t.Helper()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		t.Fatal(err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(reply)
}

func TestServeHandlesConsecutiveConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go serve(ln, func(msg ControlMessage) string {
		return "ack:" + msg.Cmd
	})

	// the accept loop must survive across connections
	for _, cmd := range []string{CmdStart, CmdStop, CmdStatus} {
		if got := send(t, path, cmd); got != "ack:"+cmd {
			t.Fatalf("reply for %s: %q", cmd, got)
		}
	}
}

func TestServeStopsWhenListenerCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		serve(ln, func(ControlMessage) string { return "" })
		close(done)
	}()

	ln.Close()
	<-done
}
