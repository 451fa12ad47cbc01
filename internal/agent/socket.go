package agent

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageKind distinguishes text control frames from binary audio frames.
type MessageKind int

const (
	TextMessage MessageKind = iota + 1
	BinaryMessage
)

// Socket is the minimal transport capability the bridge depends on. Both the
// telephony media stream and the agent backend connection are bound to it, so
// the bridge never sees a concrete websocket type.
type Socket interface {
	// ReadMessage blocks until the next full message arrives.
	ReadMessage() (MessageKind, []byte, error)
	WriteText(data []byte) error
	WriteBinary(data []byte) error
	// Close unblocks any pending ReadMessage. Safe to call more than once.
	Close() error
}

// WSSocket adapts a gorilla websocket connection to Socket. Writes are
// serialized; gorilla permits only one concurrent writer per connection.
type WSSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWSSocket wraps an established websocket connection.
func NewWSSocket(conn *websocket.Conn) *WSSocket {
	return &WSSocket{conn: conn}
}

func (s *WSSocket) ReadMessage() (MessageKind, []byte, error) {
	mt, data, err := s.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	if mt == websocket.BinaryMessage {
		return BinaryMessage, data, nil
	}
	return TextMessage, data, nil
}

func (s *WSSocket) WriteText(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *WSSocket) WriteBinary(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *WSSocket) Close() error {
	return s.conn.Close()
}

// BackendDialer opens a streaming connection to the conversational agent
// backend.
type BackendDialer interface {
	Dial(ctx context.Context) (Socket, error)
}

// DeepgramDialer dials the Deepgram voice agent converse endpoint,
// authenticating through websocket subprotocols.
type DeepgramDialer struct {
	URL    string
	APIKey string
}

func (d *DeepgramDialer) Dial(ctx context.Context) (Socket, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{"token", d.APIKey},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return NewWSSocket(conn), nil
}
