// Package livefeedtest provides an in-memory STOMP broker that satisfies
// livefeed.Transport for tests.
package livefeedtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/park285/IgKnight-client/internal/livefeed"
)

var ErrConnClosed = errors.New("livefeedtest: connection closed")

// Broker accepts dials and hands each connection to the test.
type Broker struct {
	// ServerHeartbeat is sent in CONNECTED. Defaults to "0,0".
	ServerHeartbeat string

	mu      sync.Mutex
	dialErr error
	mute    bool
	conns   []*Conn
	connCh  chan *Conn
}

func NewBroker() *Broker {
	return &Broker{ServerHeartbeat: "0,0", connCh: make(chan *Conn, 16)}
}

// FailDials makes subsequent dials fail with err until called with nil.
func (b *Broker) FailDials(err error) {
	b.mu.Lock()
	b.dialErr = err
	b.mu.Unlock()
}

func (b *Broker) Dial(ctx context.Context, header http.Header) (livefeed.Conn, error) {
	b.mu.Lock()
	if b.dialErr != nil {
		err := b.dialErr
		b.mu.Unlock()
		return nil, err
	}
	c := &Conn{
		broker:   b,
		header:   header.Clone(),
		toClient: make(chan []byte, 64),
		closed:   make(chan struct{}),
		subCh:    make(chan string, 64),
		sends:    make(chan *frame.Frame, 64),
		subs:     make(map[string]string),
	}
	b.conns = append(b.conns, c)
	b.mu.Unlock()
	select {
	case b.connCh <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c, nil
}

// Mute makes the broker accept CONNECT without ever answering it.
func (b *Broker) Mute(on bool) {
	b.mu.Lock()
	b.mute = on
	b.mu.Unlock()
}

func (b *Broker) muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mute
}

// NextConn waits for the next dialed connection.
func (b *Broker) NextConn(ctx context.Context) (*Conn, error) {
	select {
	case c := <-b.connCh:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dials is the number of successful dials so far.
func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Conn is the server end of one client connection.
type Conn struct {
	broker   *Broker
	header   http.Header
	toClient chan []byte
	closed   chan struct{}
	once     sync.Once
	msgID    atomic.Int64
	beats    atomic.Int64

	mu    sync.Mutex
	subs  map[string]string // destination -> subscription id
	order []string
	subCh chan string
	sends chan *frame.Frame
}

func (c *Conn) Header() http.Header { return c.header }

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrConnClosed
	default:
	}
	select {
	case data := <-c.toClient:
		return data, nil
	case <-c.closed:
		return nil, ErrConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Write(_ context.Context, data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	r := frame.NewReader(bytes.NewReader(data))
	for {
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if f == nil {
			c.beats.Add(1)
			continue
		}
		c.handle(f)
	}
}

func (c *Conn) handle(f *frame.Frame) {
	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		if c.broker.muted() {
			return
		}
		hb := c.broker.ServerHeartbeat
		if hb == "" {
			hb = "0,0"
		}
		c.queue(frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, hb))
	case frame.SUBSCRIBE:
		dest := f.Header.Get(frame.Destination)
		c.mu.Lock()
		c.subs[dest] = f.Header.Get(frame.Id)
		c.order = append(c.order, dest)
		c.mu.Unlock()
		c.subCh <- dest
	case frame.SEND:
		c.sends <- f
	}
}

func (c *Conn) Close(string) error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Drop simulates the server or network closing the connection.
func (c *Conn) Drop() { _ = c.Close("drop") }

func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Push sends v as JSON on destination.
func (c *Conn) Push(destination string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	sub := c.subs[destination]
	c.mu.Unlock()
	f := frame.New(frame.MESSAGE,
		frame.Destination, destination,
		frame.Subscription, sub,
		frame.MessageId, strconv.FormatInt(c.msgID.Add(1), 10),
		frame.ContentType, "application/json",
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	c.queue(f)
	return nil
}

// Fail sends an ERROR frame.
func (c *Conn) Fail(message string) {
	c.queue(frame.New(frame.ERROR, frame.Message, message))
}

// Heartbeat sends a bare newline to the client.
func (c *Conn) Heartbeat() {
	c.toClient <- []byte("\n")
}

func (c *Conn) queue(f *frame.Frame) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		panic(err)
	}
	c.toClient <- buf.Bytes()
}

// WaitSubscriptions blocks until n SUBSCRIBE frames have arrived and
// returns their destinations in order.
func (c *Conn) WaitSubscriptions(ctx context.Context, n int) ([]string, error) {
	for {
		c.mu.Lock()
		if len(c.order) >= n {
			out := append([]string(nil), c.order...)
			c.mu.Unlock()
			return out, nil
		}
		c.mu.Unlock()
		select {
		case <-c.subCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// NextSend waits for the next SEND frame from the client.
func (c *Conn) NextSend(ctx context.Context) (*frame.Frame, error) {
	select {
	case f := <-c.sends:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Heartbeats counts newline heartbeats received from the client.
func (c *Conn) Heartbeats() int { return int(c.beats.Load()) }
