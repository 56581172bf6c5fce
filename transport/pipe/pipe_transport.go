// Package pipe provides in-memory connections, for tests of code that dials.
package pipe

import (
	"context"
	"sync"

	"http-client/transport"

	"github.com/benbjohnson/clock"
)

// DefaultBufSize is the buffer size of pipes made by a [PipeTransport] created with size 0.
const DefaultBufSize = 4096

type Addr struct {
	Name string
}

func (p Addr) Network() string { return "pipe" }
func (p Addr) String() string  { return p.Name }

var _ transport.Addr = Addr{}

type pipeRequest struct {
	conn     transport.Conn
	accepted chan struct{}
}

// PipeTransport connects dialers to listeners by address name.
type PipeTransport struct {
	listeners map[string]*pipeListener
	clock     clock.Clock
	bufSize   uint

	mu sync.Mutex
}

// NewPipeTransport creates a transport whose connections are buffered pipes of bufSize,
// or of [DefaultBufSize] when bufSize is 0.
func NewPipeTransport(clock clock.Clock, bufSize uint) *PipeTransport {
	return &PipeTransport{
		listeners: make(map[string]*pipeListener),
		clock:     clock,
		bufSize:   bufSize,
	}
}

var _ transport.Dialer = (*PipeTransport)(nil)

func (pt *PipeTransport) newPair(name1, name2 string) (transport.Conn, transport.Conn) {
	size := pt.bufSize
	if size == 0 {
		size = DefaultBufSize
	}
	return BufferedPipe(name1, name2, pt.clock, size)
}

// Dial connects to the listener of the address with the same name.
func (pt *PipeTransport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pt.mu.Lock()
	listener, ok := pt.listeners[addr.String()]
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	p1, p2 := pt.newPair("dialer", addr.String())

	req := pipeRequest{
		conn:     p2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case _, accepted := <-req.accepted:
		if !accepted {
			return nil, transport.ErrConnRefused
		}
	}

	return p1, nil
}

func (pt *PipeTransport) Listen(addr transport.Addr) (*pipeListener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr.String()]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	pl := &pipeListener{
		addr:      addr,
		transport: pt,
		requests:  make(chan pipeRequest),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr.String()] = pl

	return pl, nil
}

// Serve accepts connections on a new listener of addr and runs handler for each in its own goroutine,
// until the listener is closed. Closing waits for running handlers.
func (pt *PipeTransport) Serve(addr transport.Addr, handler func(conn transport.Conn)) (*pipeListener, error) {
	pl, err := pt.Listen(addr)
	if err != nil {
		return nil, err
	}

	pl.wg.Add(1)
	go func() {
		defer pl.wg.Done()
		for {
			conn, err := pl.Accept(context.Background())
			if err != nil {
				return
			}

			pl.wg.Add(1)
			go func() {
				defer pl.wg.Done()
				defer conn.Close()
				handler(conn)
			}()
		}
	}()

	return pl, nil
}

type pipeListener struct {
	addr transport.Addr

	transport *PipeTransport

	requests chan pipeRequest
	closed   chan struct{}

	mu sync.Mutex
	wg sync.WaitGroup
}

var _ transport.ConnListener = (*pipeListener)(nil)

func (pl *pipeListener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnListenerClosed
	case request := <-pl.requests:
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case request.accepted <- struct{}{}:
		}

		return request.conn, nil
	}
}

func (pl *pipeListener) Close() error {
	pl.mu.Lock()

	select {
	case <-pl.closed:
		pl.mu.Unlock()
		return transport.ErrConnListenerClosed
	default:
	}

	close(pl.closed)

	for range len(pl.requests) {
		req := <-pl.requests
		close(req.accepted)
	}

	pl.transport.mu.Lock()
	delete(pl.transport.listeners, pl.addr.String())
	pl.transport.mu.Unlock()

	pl.mu.Unlock()

	pl.wg.Wait()
	return nil
}
