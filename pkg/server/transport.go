package server

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// transport is the slice of *websocket.Conn the connection actually uses.
// Tests substitute an in-memory implementation.
type transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

var _ transport = (*websocket.Conn)(nil)
