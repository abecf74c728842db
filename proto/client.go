package proto

import (
	"bytes"
	"encoding/binary"
	"net"
	"sync"
	"time"
)

// defaultCallTimeout bounds one request/reply exchange on the wire.
const defaultCallTimeout = 5 * time.Second

// Client is a synchronous protocol client. Calls serialize on an internal
// mutex, so one Client may be shared between goroutines.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to a protocol server.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn, timeout: defaultCallTimeout}, nil
}

// SetTimeout overrides the per-call deadline. Zero disables it.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one raw request and returns the success payload. An error reply
// is surfaced as a StatusError.
func (c *Client) Call(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}

	if err := writeFrame(c.conn, req); err != nil {
		return nil, err
	}

	reply, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}
	if len(reply) < 1 {
		return nil, ErrShortReply
	}

	status := reply[0]
	payload := reply[1:]

	if status != StatusOK {
		if len(payload) < 1 {
			return nil, ErrShortReply
		}
		return nil, StatusError(payload[0])
	}

	return payload, nil
}

// request builds and sends [opcode][payload].
func (c *Client) request(opcode byte, payload []byte) ([]byte, error) {
	req := make([]byte, 1+len(payload))
	req[0] = opcode
	copy(req[1:], payload)

	return c.Call(req)
}

// Ping verifies the server answers with the fixed PONG marker.
func (c *Client) Ping() error {
	payload, err := c.request(OpPing, nil)
	if err != nil {
		return err
	}
	if !bytes.Equal(payload, pongPayload) {
		return ErrUnexpectedReply
	}

	return nil
}

// Echo returns the request payload verbatim.
func (c *Client) Echo(data []byte) ([]byte, error) {
	return c.request(OpEcho, data)
}

// StartRadio brings up the radio stack on first use and (re)starts scanning.
func (c *Client) StartRadio() error {
	_, err := c.request(OpBLEStart, nil)
	return err
}

// StopRadio stops scanning.
func (c *Client) StopRadio() error {
	_, err := c.request(OpBLEStop, nil)
	return err
}

// Latest returns the most recently merged device record.
func (c *Client) Latest() (Record, error) {
	payload, err := c.request(OpLatest, nil)
	if err != nil {
		return Record{}, err
	}

	return DecodeRecord(payload)
}

// LatestFor returns the merged record for the given 16-bit device id.
func (c *Client) LatestFor(id uint16) (Record, error) {
	var idBuf [2]byte
	binary.BigEndian.PutUint16(idBuf[:], id)

	payload, err := c.request(OpLatestFor, idBuf[:])
	if err != nil {
		return Record{}, err
	}

	return DecodeRecord(payload)
}
