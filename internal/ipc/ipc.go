package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/murmur.sock"

// ControlMessage is one daemon control command.
type ControlMessage struct {
	Cmd string `json:"cmd"`
}

// Control commands understood by the daemon.
const (
	CmdStart      = "start"
	CmdStop       = "stop"
	CmdToggle     = "toggle"
	CmdNewSession = "new_session"
	CmdClear      = "clear"
	CmdStatus     = "status"
)

// StartServer listens on the control socket and invokes handler for every
// incoming command. The handler's reply is written back to the client.
func StartServer(handler func(ControlMessage) string) (func() error, error) {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go serve(ln, handler)

	return ln.Close, nil
}

// serve accepts until the listener is closed. A transient accept error
// must not take the control surface down with it.
func serve(ln net.Listener, handler func(ControlMessage) string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler func(ControlMessage) string) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	reply := handler(msg)
	fmt.Fprintln(conn, reply)
}

// SendCommand delivers one command to a running daemon and returns its
// reply.
func SendCommand(cmd string) (string, error) {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return "", fmt.Errorf("is the daemon running? %w", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return "", err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
