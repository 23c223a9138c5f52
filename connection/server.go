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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/aikv/command"
)

// Server accepts connections on one listener and drives each through the
// command dispatcher. Template carries every field of command.Context that
// is shared across connections (Store, Cluster, ServerInfo, Scripts, Now);
// Clients is always overwritten with the Server's own Registry.
type Server struct {
	Template command.Context
	Metrics  Metrics
	Log      *logrus.Entry

	registry *Registry
	monitor  *monitorHub

	listener net.Listener
	wg       sync.WaitGroup
	closing  chan struct{}
	closeOne sync.Once
}

// NewServer wires a listener-less Server around a shared dispatch template.
// Call Serve with a net.Listener (TCP in production, net.Pipe/bufconn in
// tests) to start accepting connections.
func NewServer(template command.Context, metrics Metrics, log *logrus.Entry) *Server {
	registry := NewRegistry()
	template.Clients = registry
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		Template: template,
		Metrics:  metrics,
		Log:      log.WithField("component", "connection"),
		registry: registry,
		monitor:  newMonitorHub(),
		closing:  make(chan struct{}),
	}
}

// Registry exposes the server's client table, e.g. so main.go can wire it
// into multiple listeners sharing one logical server.
func (s *Server) Registry() *Registry { return s.registry }

// Serve accepts connections on l until Close is called or Accept fails.
// It blocks; callers run it in its own goroutine.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Close stops accepting new connections and waits until every connection's
// loop has returned. It does not close live sockets, so it blocks until
// those clients disconnect or their Registry entries are closed.
func (s *Server) Close() error {
	s.closeOne.Do(func() { close(s.closing) })
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handle(conn net.Conn) {
	id := s.registry.add(conn)
	addr := conn.RemoteAddr().String()
	log := s.Log.WithField("client_addr", addr)
	log.Debug("client connected")
	if s.Metrics != nil {
		s.Metrics.ConnectionOpened()
	}

	defer func() {
		conn.Close()
		s.registry.remove(id)
		s.monitor.unsubscribe(id)
		if s.Metrics != nil {
			s.Metrics.ConnectionClosed()
		}
		log.Debug("client disconnected")
	}()

	ctx := s.Template
	state := &command.ConnState{Addr: addr}
	ctx.State = state

	loop(conn, &ctx, s.registry, s.monitor, s.Metrics, id, log)
}
