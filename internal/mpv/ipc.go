package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

var errConnClosed = errors.New("mpv ipc connection closed")

const requestTimeout = 3 * time.Second

// message is one line read from the IPC socket: either a reply to a request
// (RequestID set) or an asynchronous event.
type message struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcConn speaks mpv's line-delimited JSON protocol.
type ipcConn struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan message
	closed  bool

	done chan struct{}
}

func newIPCConn(conn net.Conn, onEvent func(message)) *ipcConn {
	c := &ipcConn{
		conn:    conn,
		pending: make(map[int64]chan message),
		done:    make(chan struct{}),
	}
	go c.readLoop(onEvent)
	return c
}

func (c *ipcConn) readLoop(onEvent func(message)) {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Event != "" {
			onEvent(msg)
			continue
		}
		if msg.RequestID == 0 {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *ipcConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}

// command sends args and waits for mpv's reply.
func (c *ipcConn) command(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errConnClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("encode mpv command: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(requestTimeout))
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write mpv command: %w", err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, errConnClosed
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	case <-timer.C:
		c.forget(id)
		return nil, fmt.Errorf("mpv %v: timed out", args[0])
	}
}

func (c *ipcConn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ipcConn) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
