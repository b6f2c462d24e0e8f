package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	pubResolution  = 100 * time.Millisecond
	pingResolution = 500 * time.Millisecond
	pongWait       = pingResolution * 4
)

// ErrPongDeadlineExceeded reports that a connected client stopped
// responding to pings and is presumed gone.
var ErrPongDeadlineExceeded = errors.New("monitor: client disconnect, pong deadline exceeded")

// client publishes ProgressFrames to one websocket connection, grounded on
// server/fastview/client.go's ping/pong liveness + serialized-write shape,
// specialised from that file's generic client[T] to ProgressFrame since
// this package has exactly one update type.
type client struct {
	updates <-chan ProgressFrame
	ws      *websock
	rootCtx context.Context
}

func newClient(updates <-chan ProgressFrame, ws *websocket.Conn, rootCtx context.Context) *client {
	return &client{updates: updates, ws: newWebsock(ws), rootCtx: rootCtx}
}

// sync runs the read pump, ping/pong liveness check, and update publisher
// concurrently, returning when any of them errors or the connection closes.
func (c *client) sync() error {
	group, groupCtx := errgroup.WithContext(c.rootCtx)
	group.Go(func() error { return c.readMessages(groupCtx) })
	group.Go(func() error { return c.pingPong(groupCtx) })
	group.Go(func() error { return c.publish(groupCtx) })
	return group.Wait()
}

func (c *client) close() {
	c.ws.Close()
}

// readMessages must run for the pong handler installed by pingPong to ever
// fire: gorilla/websocket only invokes control-frame handlers while a read
// is in flight.
func (c *client) readMessages(ctx context.Context) error {
	for {
		err := c.ws.Read(ctx, func(ws *websocket.Conn) (readErr error) {
			_, _, readErr = ws.ReadMessage()
			return
		})
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (c *client) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	c.ws.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := c.ws.Write(ctx, func(ws *websocket.Conn) error {
				return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

// publish forwards frames from updates to the websocket, dropping any that
// arrive faster than pubResolution since a frame is a complete snapshot of
// current progress and earlier ones are moot once a newer one exists.
func (c *client) publish(ctx context.Context) error {
	lastSent := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-c.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSent) < pubResolution {
				continue
			}
			lastSent = time.Now()
			err := c.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return err
				}
				return ws.WriteJSON(frame)
			})
			if err != nil {
				return err
			}
		}
	}
}

// websock serializes reads and writes to the underlying connection, which
// gorilla/websocket requires have at most one reader and one writer active
// at a time (grounded on server/fastview/client.go's websock).
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebsock(ws *websocket.Conn) *websock {
	return &websock{readSem: make(chan struct{}, 1), writeSem: make(chan struct{}, 1), ws: ws}
}

func (s *websock) Conn() *websocket.Conn { return s.ws }

func (s *websock) Close() {
	s.readSem <- struct{}{}
	s.writeSem <- struct{}{}
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.ws.Close()
}

var errSockCongestion = errors.New("monitor: socket operation dropped, too many concurrent waiters")

func (s *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case s.readSem <- struct{}{}:
		defer func() { <-s.readSem }()
		return readFn(s.ws)
	case <-time.After(writeWait):
		return errSockCongestion
	}
}

func (s *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case s.writeSem <- struct{}{}:
		defer func() { <-s.writeSem }()
		return writeFn(s.ws)
	case <-time.After(writeWait):
		return errSockCongestion
	}
}
