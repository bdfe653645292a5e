// Package proxy implements the TCP splice engine (C7, spec §4.7): for
// each declared ServicePort it listens on the local WireGuard address
// at the public port and bidirectionally forwards to the local
// destination's corresponding local port.
package proxy

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/serviceport"
)

// Engine runs one TCP listener per ServicePort until Run's context is
// canceled.
type Engine struct {
	// OnAccept, if non-nil, is called once per accepted connection —
	// used by the status server to count accepted connections.
	OnAccept func(port serviceport.ServicePort)
}

// Run binds localIP:port.public_port for every port in ports — the
// same port nginx's remote stream block listens on, tunneled straight
// through — and, for each accepted connection, dials
// destIP:port.local_port and splices the two sockets together. It
// blocks until ctx is canceled, closing every listener, and returns
// once every accept loop has exited; connections already accepted are
// not waited for.
func (e *Engine) Run(ctx context.Context, localIP, destIP string, ports []serviceport.ServicePort) error {
	if len(ports) == 0 {
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup

	for _, p := range ports {
		listener, err := net.Listen("tcp", net.JoinHostPort(localIP, strconv.Itoa(p.PublicPort)))
		if err != nil {
			return innisfreeerrors.Wrap(innisfreeerrors.Network, "listen on "+localIP, err)
		}

		wg.Add(1)
		go func(p serviceport.ServicePort, listener net.Listener) {
			defer wg.Done()
			e.acceptLoop(ctx, listener, destIP, p)
		}(p, listener)
	}

	wg.Wait()
	return nil
}

func (e *Engine) acceptLoop(ctx context.Context, listener net.Listener, destIP string, port serviceport.ServicePort) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		if e.OnAccept != nil {
			e.OnAccept(port)
		}
		go handleConn(conn, destIP, port)
	}
}

// handleConn dials the destination and runs two concurrent byte
// pumps. When either direction hits EOF it half-closes the opposite
// socket's write side; a failure in either pump closes both sockets.
func handleConn(client net.Conn, destIP string, port serviceport.ServicePort) {
	defer client.Close()

	upstream, err := net.Dial("tcp", net.JoinHostPort(destIP, strconv.Itoa(port.LocalPort)))
	if err != nil {
		return
	}
	defer upstream.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		pump(upstream, client)
	}()
	go func() {
		defer wg.Done()
		pump(client, upstream)
	}()

	wg.Wait()
}

// pump copies from src to dst until EOF, then half-closes dst's write
// side so the other pump can observe the shutdown. If the copy fails,
// it closes both sockets instead.
func pump(dst, src net.Conn) {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = src.Close()
		return
	}
	if tc, ok := dst.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}
