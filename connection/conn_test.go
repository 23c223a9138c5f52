/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package connection

import (
	"net"
	"testing"
	"time"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func testTemplate() command.Context {
	return command.Context{
		Store: store.NewMemoryBackend(4),
		Now:   func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func encodeRequest(args ...string) []byte {
	items := make([]protocol.Frame, len(args))
	for i, a := range args {
		items[i] = protocol.BulkString(a)
	}
	return protocol.EncodeBytes(protocol.Array(items))
}

func TestConnectionHandlesPingOverPipe(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	srv := NewServer(testTemplate(), nil, nil)
	id := srv.registry.add(server)
	state := &command.ConnState{Addr: server.RemoteAddr().String()}
	ctx := srv.Template
	ctx.State = state

	done := make(chan struct{})
	go func() {
		loop(server, &ctx, srv.registry, srv.monitor, srv.Metrics, id, srv.Log)
		close(done)
	}()

	client.Write(encodeRequest("PING"))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(buf[:n]) != "+PONG\r\n" {
		t.Fatalf("expected +PONG, got %q", buf[:n])
	}

	client.Close()
	<-done
}

func TestConnectionSetGetRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	srv := NewServer(testTemplate(), nil, nil)
	id := srv.registry.add(server)
	ctx := srv.Template
	ctx.State = &command.ConnState{Addr: server.RemoteAddr().String()}

	done := make(chan struct{})
	go func() {
		loop(server, &ctx, srv.registry, srv.monitor, srv.Metrics, id, srv.Log)
		close(done)
	}()

	client.Write(encodeRequest("SET", "k", "v"))
	buf := make([]byte, 64)
	n, _ := client.Read(buf)
	if string(buf[:n]) != "+OK\r\n" {
		t.Fatalf("expected +OK, got %q", buf[:n])
	}

	client.Write(encodeRequest("GET", "k"))
	n, _ = client.Read(buf)
	if string(buf[:n]) != "$1\r\nv\r\n" {
		t.Fatalf("expected bulk v, got %q", buf[:n])
	}

	client.Close()
	<-done
}

func TestMonitorReceivesFormattedLine(t *testing.T) {
	monServer, monClient := net.Pipe()
	defer monClient.Close()
	cmdServer, cmdClient := net.Pipe()
	defer cmdClient.Close()

	srv := NewServer(testTemplate(), nil, nil)

	monID := srv.registry.add(monServer)
	monCtx := srv.Template
	monCtx.State = &command.ConnState{Addr: monServer.RemoteAddr().String()}
	monDone := make(chan struct{})
	go func() {
		loop(monServer, &monCtx, srv.registry, srv.monitor, srv.Metrics, monID, srv.Log)
		close(monDone)
	}()

	// drive the MONITOR handshake
	monClient.Write(encodeRequest("MONITOR"))
	buf := make([]byte, 64)
	n, err := monClient.Read(buf)
	if err != nil {
		t.Fatalf("read MONITOR reply: %v", err)
	}
	if string(buf[:n]) != "+OK\r\n" {
		t.Fatalf("expected +OK, got %q", buf[:n])
	}

	cmdID := srv.registry.add(cmdServer)
	cmdCtx := srv.Template
	cmdCtx.State = &command.ConnState{Addr: "127.0.0.1:9999"}
	cmdDone := make(chan struct{})
	go func() {
		loop(cmdServer, &cmdCtx, srv.registry, srv.monitor, srv.Metrics, cmdID, srv.Log)
		close(cmdDone)
	}()

	cmdClient.Write(encodeRequest("SET", "a", "1"))
	n, _ = cmdClient.Read(buf)
	if string(buf[:n]) != "+OK\r\n" {
		t.Fatalf("expected +OK from SET, got %q", buf[:n])
	}

	monBuf := make([]byte, 256)
	monClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = monClient.Read(monBuf)
	if err != nil {
		t.Fatalf("read monitor line: %v", err)
	}
	line := string(monBuf[:n])
	if line[len(line)-2:] != "\r\n" {
		t.Fatalf("expected CRLF-terminated monitor line, got %q", line)
	}
	if !contains(line, `"SET"`) || !contains(line, `"a"`) || !contains(line, `"1"`) {
		t.Fatalf("expected formatted SET line, got %q", line)
	}

	cmdClient.Close()
	<-cmdDone
	monClient.Close()
	<-monDone
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestClientListReportsConnectedClients(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	srv := NewServer(testTemplate(), nil, nil)
	id := srv.registry.add(server)
	ctx := srv.Template
	ctx.State = &command.ConnState{Addr: server.RemoteAddr().String()}

	done := make(chan struct{})
	go func() {
		loop(server, &ctx, srv.registry, srv.monitor, srv.Metrics, id, srv.Log)
		close(done)
	}()

	client.Write(encodeRequest("CLIENT", "LIST"))
	buf := make([]byte, 256)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read CLIENT LIST reply: %v", err)
	}
	if !contains(string(buf[:n]), "addr=") {
		t.Fatalf("expected addr= field in CLIENT LIST output, got %q", buf[:n])
	}

	client.Close()
	<-done
}
