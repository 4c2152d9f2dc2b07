// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package livestatusmock provides a stub Livestatus server for tests.
//
// Each accepted connection is answered with the next Response from the list
// given to NewServer. Once the list is used up, the last Response is repeated.
package livestatusmock

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

type ResponseType int

const (
	// ResponseTypeReply reads the request until the client closes its write side, then writes Payload and closes
	ResponseTypeReply ResponseType = iota
	// ResponseTypeHang reads the request and never answers
	ResponseTypeHang
	// ResponseTypeClose closes the connection without reading or answering
	ResponseTypeClose
	// ResponseTypeTrickle reads the request and then writes Payload one byte per Interval
	ResponseTypeTrickle
)

const requestReadTimeout = 5 * time.Second

type Response struct {
	Type     ResponseType
	Payload  string
	Interval time.Duration
}

// Reply is a shorthand for a ResponseTypeReply Response
func Reply(payload string) Response {
	return Response{Type: ResponseTypeReply, Payload: payload}
}

var (
	ResponseHang  = Response{Type: ResponseTypeHang}
	ResponseClose = Response{Type: ResponseTypeClose}
)

type Server struct {
	listener  net.Listener
	responses []Response
	mutex     sync.Mutex
	requests  []string
	accepted  int
	doneChan  chan struct{}
	onceClose sync.Once
	waitGroup sync.WaitGroup
}

// NewServer starts a server listening on a random TCP port on the loopback interface
func NewServer(responses ...Response) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return newServer(listener, responses), nil
}

// NewUnixServer starts a server listening on a UNIX socket at path
func NewUnixServer(path string, responses ...Response) (*Server, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return newServer(listener, responses), nil
}

func newServer(listener net.Listener, responses []Response) *Server {
	if len(responses) == 0 {
		responses = []Response{Reply("")}
	}
	s := &Server{
		listener:  listener,
		responses: responses,
		doneChan:  make(chan struct{}),
	}
	s.waitGroup.Add(1)
	go s.acceptLoop()
	return s
}

func (s *Server) Network() string {
	return s.listener.Addr().Network()
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the host part of a TCP listen address
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the port of a TCP listen address
func (s *Server) Port() int {
	_, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)
	return port
}

// Requests returns the requests received so far, in order
func (s *Server) Requests() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ret := make([]string, len(s.requests))
	copy(ret, s.requests)
	return ret
}

// Accepted returns the number of connections accepted so far
func (s *Server) Accepted() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.accepted
}

// Close stops the listener and waits for all connection handlers to return
func (s *Server) Close() error {
	var err error
	s.onceClose.Do(func() {
		close(s.doneChan)
		err = s.listener.Close()
		s.waitGroup.Wait()
	})
	return err
}

func (s *Server) acceptLoop() {
	defer s.waitGroup.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener was closed
			return
		}
		s.mutex.Lock()
		idx := s.accepted
		s.accepted++
		s.mutex.Unlock()
		if idx >= len(s.responses) {
			idx = len(s.responses) - 1
		}
		s.waitGroup.Add(1)
		go s.handleConn(conn, s.responses[idx])
	}
}

func (s *Server) handleConn(conn net.Conn, resp Response) {
	defer s.waitGroup.Done()
	defer conn.Close()
	if resp.Type == ResponseTypeClose {
		return
	}
	if err := s.readRequest(conn); err != nil {
		return
	}
	switch resp.Type {
	case ResponseTypeHang:
		<-s.doneChan
	case ResponseTypeTrickle:
		for i := 0; i < len(resp.Payload); i++ {
			if _, err := conn.Write([]byte{resp.Payload[i]}); err != nil {
				return
			}
			select {
			case <-s.doneChan:
				return
			case <-time.After(resp.Interval):
			}
		}
	default:
		_, _ = io.WriteString(conn, resp.Payload)
	}
}

func (s *Server) readRequest(conn net.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(requestReadTimeout)); err != nil {
		return err
	}
	data, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	s.mutex.Lock()
	s.requests = append(s.requests, string(data))
	s.mutex.Unlock()
	return nil
}
