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
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/protocol"
)

const readBufferSize = 4096

// rw is the minimal conn surface the request loop needs, letting tests
// drive it over net.Pipe or any io.ReadWriter without a real listener.
type rw interface {
	io.Reader
	io.Writer
}

// loop implements SPEC_FULL §4.7: read bytes, feed the incremental parser,
// dispatch each complete frame, write its response, report metrics, fan out
// to MONITOR subscribers, and keep going until a protocol framing error or
// a read failure ends the connection. Once a MONITOR reply has been sent,
// the connection switches permanently into the streaming phase.
func loop(conn rw, ctx *command.Context, registry *Registry, monitor *monitorHub, metrics Metrics, id uint64, log *logrus.Entry) {
	parser := protocol.NewParser()
	buf := make([]byte, readBufferSize)
	var out bytes.Buffer

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, perr := parser.Feed(buf[:n])
			for _, f := range frames {
				start := time.Now()
				name, argv := requestName(f)
				reply, derr := command.Dispatch(ctx, f)
				failed := derr != nil
				if derr != nil {
					reply = protocol.Err(derr.WireLine())
				}
				protocol.Encode(&out, reply)
				if metrics != nil {
					metrics.CommandCompleted(name, time.Since(start), failed)
				}
				monitor.publish(ctx.State.DB, ctx.State.Addr, name, argv)
				registry.setName(id, ctx.State.Name)
				registry.setDB(id, ctx.State.DB)

				if ctx.State.Monitor {
					// Subscribe before the OK reply is written: the client cannot
					// observe the reply until the write completes, so by the time
					// it sends its next command this connection is already listed
					// as a subscriber and will not miss that line.
					q := monitor.subscribe(id)
					if out.Len() > 0 {
						conn.Write(out.Bytes())
						out.Reset()
					}
					monitorStream(conn, monitor, id, q)
					return
				}
			}
			if out.Len() > 0 {
				if _, werr := conn.Write(out.Bytes()); werr != nil {
					return
				}
				out.Reset()
			}
			if perr != nil {
				log.WithError(perr).Debug("protocol framing error, closing connection")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("connection read error")
			}
			return
		}
	}
}

// requestName extracts the command name and argument list from a dispatch
// request frame for metrics/MONITOR purposes, tolerating malformed frames
// (Dispatch itself will reject those; this just must not panic).
func requestName(f protocol.Frame) (string, [][]byte) {
	if f.Kind != protocol.KindArray || len(f.Items) == 0 {
		return "", nil
	}
	name := strings.ToUpper(string(f.Items[0].Bulk))
	args := make([][]byte, 0, len(f.Items)-1)
	for _, it := range f.Items[1:] {
		args = append(args, it.Bulk)
	}
	return name, args
}

// monitorStream takes over a connection once it has entered MONITOR mode:
// a background goroutine keeps reading (discarding any input) purely to
// detect the socket closing, while this goroutine blocks on the
// subscriber queue and writes every line it receives. Returns once the
// connection closes or a write fails.
func monitorStream(conn rw, monitor *monitorHub, id uint64, q monitorQueue) {
	defer monitor.unsubscribe(id)

	closed := make(chan struct{})
	go func() {
		discard := make([]byte, 512)
		for {
			if _, err := conn.Read(discard); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case line := <-q:
			if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
