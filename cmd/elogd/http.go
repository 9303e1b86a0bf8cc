package main

import (
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/linchenxuan/elogport"
	"github.com/linchenxuan/elogport/metrics"
	"github.com/linchenxuan/elogport/rtt"
)

const _maxDownBody = 4 << 10

type errorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

type statusResponse struct {
	Tick    uint32           `json:"tick"`
	Tasks   int              `json:"tasks"`
	Mutexes int              `json:"mutexes"`
	Channel string           `json:"channel"`
	Started bool             `json:"started"`
	Up      []rtt.BufferDesc `json:"up"`
	Down    []rtt.BufferDesc `json:"down"`
}

type downResponse struct {
	Written int `json:"written"`
}

// probeHost serves one control block. The buffers are single producer and
// single consumer, so host-side reads and writes are serialised here.
type probeHost struct {
	app     *elogport.App
	readMu  sync.Mutex
	writeMu sync.Mutex
}

func newRouter(app *elogport.App) *chi.Mux {
	h := &probeHost{app: app}

	r := chi.NewRouter()
	r.Get("/rtt/{idx}", h.drain)
	r.Post("/rtt/{idx}/down", h.down)
	r.Get("/status", h.status)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (h *probeHost) drain(w http.ResponseWriter, r *http.Request) {
	idx, ok := bufferIndex(w, r)
	if !ok {
		return
	}

	h.readMu.Lock()
	var out []byte
	buf := make([]byte, 512)
	for {
		n := h.app.Probe.Read(idx, buf)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	h.readMu.Unlock()

	render.Data(w, r, out)
}

func (h *probeHost) down(w http.ResponseWriter, r *http.Request) {
	idx, ok := bufferIndex(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, _maxDownBody))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Body.Unreadable", err.Error())
		return
	}

	h.writeMu.Lock()
	n := h.app.Probe.HostWrite(idx, body)
	h.writeMu.Unlock()

	render.JSON(w, r, &downResponse{Written: n})
}

func (h *probeHost) status(w http.ResponseWriter, r *http.Request) {
	resp := &statusResponse{
		Tick:    h.app.Kernel.CurrentTick(),
		Tasks:   h.app.Kernel.Running(),
		Mutexes: h.app.Kernel.Mutexes(),
		Started: h.app.Logger.Started(),
		Up:      h.app.Probe.UpBuffers(),
		Down:    h.app.Probe.DownBuffers(),
	}
	if named, ok := h.app.Channel.(interface{ Name() string }); ok {
		resp.Channel = named.Name()
	}
	render.JSON(w, r, resp)
}

func bufferIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		writeError(w, r, http.StatusBadRequest, "Index.Invalid", "buffer index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errType, msg string) {
	render.Status(r, status)
	render.JSON(w, r, &errorResponse{
		ErrorType:    errType,
		ErrorMessage: msg,
	})
}
