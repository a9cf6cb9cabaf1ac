package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// indexPage embeds the MJPEG stream and live counts pushed over the
// websocket
const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>doorcount</title>
<style>
body { background: #111; color: #eee; font-family: sans-serif; text-align: center; }
img { margin-top: 1em; max-width: 95%; }
#counts { font-size: 1.4em; margin-top: 0.5em; }
</style>
</head>
<body>
<h3>doorcount</h3>
<img src="/stream" alt="stream">
<div id="counts">in: 0 / out: 0</div>
<script>
var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = function(ev) {
  var c = JSON.parse(ev.data);
  document.getElementById("counts").textContent =
    "in: " + c.in + " / out: " + (c.out_left + c.out_right);
};
</script>
</body>
</html>
`

// Server exposes the annotated stream and counters over HTTP
type Server struct {
	slot *Slot
	hub  *Hub
	// interval paces chunk writes so a client is not served faster than
	// frames are produced
	interval time.Duration
}

// NewServer returns a Server reading from the given slot.  hub may be
// nil to disable the websocket endpoint.
func NewServer(slot *Slot, hub *Hub, targetFPS float64) *Server {
	return &Server{
		slot:     slot,
		hub:      hub,
		interval: time.Duration(float64(time.Second) / targetFPS),
	}
}

// Routes registers the handlers on the given mux
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.Index)
	mux.HandleFunc("/stream", s.Stream)
	mux.HandleFunc("/counts", s.CountsHandler)

	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.Handler)
	}
}

// Index serves the viewer page
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}

// CountsHandler serves the current totals as JSON
func (s *Server) CountsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.slot.Counts())
}

// Stream serves the MJPEG multipart stream, one JPEG chunk per paced
// cycle, until the client disconnects
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {

	log.Infof("stream client connected from %s", r.RemoteAddr)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-r.Context().Done():
			log.Infof("stream client disconnected from %s", r.RemoteAddr)
			break loop

		case <-ticker.C:

			frame, ok := s.slot.Frame()
			if !ok {
				break loop
			}

			buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
			frame.Close()

			if err != nil {
				log.Errorf("frame encoding failed: %v", err)
				continue
			}

			// Write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(buf.GetBytes())
			w.Write([]byte("\r\n"))

			buf.Close()

			// Flush the buffer
			flusher, ok := w.(http.Flusher)
			if ok {
				flusher.Flush()
			}
		}
	}
}

// ListenAndServe runs the HTTP server until the context is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {

	mux := http.NewServeMux()
	s.Routes(mux)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("serving on http://%s", addr)

	err := srv.ListenAndServe()

	if err == http.ErrServerClosed {
		return nil
	}

	return err
}
