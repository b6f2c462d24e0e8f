// Package monitor serves a minimal live-progress dashboard over HTTP and
// websocket while a driver run is in flight (spec.md §1's "out of scope...
// logging configuration" analog: non-core, but exercised by cmd/ctm when
// --monitor-addr is set).
//
// Grounded on the teacher's server/server.go: a single mux route pair
// ("/" and "/ws"), one websocket client at a time, update publication
// throttled to a fixed rate. The teacher's own comments call out that
// single-client limitation as an intentional prototype simplification
// ("this app only requires a small portion of websocket functionality");
// this package inherits the same scope rather than building a
// multi-client broadcast hub the spec never asked for.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// ProgressFrame is the JSON payload pushed to a connected dashboard client
// after each batch merges into the global aggregator. It mirrors the
// driver's ProgressFunc signature (internal/driver), flattened to the
// fields worth showing live.
type ProgressFrame struct {
	CompletedBatches uint64 `json:"completed_batches"`
	TotalBatches     uint64 `json:"total_batches"`
	TotalSeen        uint64 `json:"total_seen"`
	HaltingTotal     uint64 `json:"halting_total"`
	DistinctOutputs  int    `json:"distinct_outputs"`
}

// Server publishes ProgressFrames read from Updates to a single connected
// browser client over websocket, and serves a tiny status page at "/".
type Server struct {
	addr    string
	updates <-chan ProgressFrame
	router  *mux.Router
}

// New returns a Server that will push frames received on updates to
// whichever client is connected to addr's "/ws" endpoint.
func New(addr string, updates <-chan ProgressFrame) *Server {
	s := &Server{addr: addr, updates: updates, router: mux.NewRouter()}
	s.router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.serveWebsocket)
	return s
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. It is meant to be run in its own goroutine alongside a
// driver.Driver.Run call.
func (s *Server) Serve(ctx context.Context) error {
	httpSrv := &http.Server{Addr: s.addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexPage)
}

// serveWebsocket upgrades the request and hands the connection to a client
// that publishes every ProgressFrame it reads off s.updates until the
// client disconnects or the request context is cancelled.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cli := newClient(s.updates, ws, r.Context())
	defer cli.close()
	if err := cli.sync(); err != nil {
		fmt.Println("monitor: client disconnected:", err)
	}
}

const indexPage = `<!doctype html>
<html><head><title>ctm progress</title></head>
<body>
<pre id="frame">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => { document.getElementById("frame").textContent = ev.data; };
</script>
</body></html>
`

const (
	// writeWait is the time allowed to write a single message to the peer.
	writeWait = 1 * time.Second
	// closeGracePeriod bounds how long Serve waits for the HTTP server to
	// shut down gracefully once its context is cancelled.
	closeGracePeriod = 2 * time.Second
)
