package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"datamap/internal/datamap"
	"datamap/internal/geom"
	"datamap/internal/metrics"
)

const maxBody = 8 << 20

var contentTypes = map[string]string{
	"svg":  "image/svg+xml",
	"html": "text/html; charset=utf-8",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus maps map errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case eris.Is(err, datamap.ErrNotList), eris.Is(err, errBadRequest):
		return http.StatusBadRequest
	case eris.Is(err, datamap.ErrNotResponsive):
		return http.StatusConflict
	case eris.Is(err, datamap.ErrUnknownPlugin):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

var errBadRequest = eris.New("bad request")

// readBody reads the request body and decodes it into v.
func readBody(r *http.Request, v any) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, eris.Wrap(errBadRequest, err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, eris.Wrapf(errBadRequest, "invalid json: %v", err)
	}
	return body, nil
}

func (s *Server) handleRender(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := s.State() + "/" + format
		etag := `"` + key + `"`
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if b, level, ok := s.cache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", contentTypes[format])
			w.Header().Set("ETag", etag)
			w.Header().Set("X-Cache", level)
			_, _ = w.Write(b)
			return
		}

		start := time.Now()
		var buf bytes.Buffer
		s.mu.Lock()
		key = s.state + "/" + format
		var err error
		if format == "svg" {
			err = s.m.SVG(&buf)
		} else {
			err = s.m.HTML(&buf)
		}
		s.mu.Unlock()
		if err != nil {
			zap.L().Error("render failed", zap.String("format", format), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		metrics.RenderDurationMs.WithLabelValues(format).Observe(float64(time.Since(start).Milliseconds()))

		b := buf.Bytes()
		s.cache.Set(r.Context(), key, b)
		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("ETag", `"`+key+`"`)
		w.Header().Set("X-Cache", "miss")
		_, _ = w.Write(b)
	}
}

type popupResponse struct {
	Hovered string `json:"hovered,omitempty"`
	Content string `json:"content"`
	Shown   bool   `json:"shown"`
}

func (s *Server) popup() popupResponse {
	content, shown := s.m.Popup()
	resp := popupResponse{Content: content, Shown: shown}
	if el := s.m.Hovered(); el != nil {
		if shape, ok := s.m.ShapeOf(el); ok {
			resp.Hovered = shape.ID
		}
	}
	return resp
}

func (s *Server) handlePopup(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := s.popup()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

type choroplethRequest struct {
	Data  map[string]any `json:"data"`
	Reset bool           `json:"reset"`
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	var req choroplethRequest
	body, err := readBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err = s.update("choropleth", body, func(m *datamap.Map) error {
		m.UpdateChoropleth(req.Data, datamap.ChoroplethOptions{Reset: req.Reset})
		return nil
	})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(req.Data), "state": s.State()})
}

type layerRequest struct {
	Data    any            `json:"data"`
	Options map[string]any `json:"options"`
}

// handleLayer draws list data through a plugin (bubbles, arc).
func (s *Server) handleLayer(plugin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req layerRequest
		body, err := readBody(r, &req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		err = s.update(plugin, body, func(m *datamap.Map) error {
			return m.Call(plugin, req.Data, geom.Record(req.Options), nil, false)
		})
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"state": s.State()})
	}
}

// handleOptionsLayer draws a plugin whose only input is its options.
func (s *Server) handleOptionsLayer(plugin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts map[string]any
		body, err := readBody(r, &opts)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		err = s.update(plugin, body, func(m *datamap.Map) error {
			switch plugin {
			case "labels":
				return m.Labels(opts)
			case "legend":
				return m.Legend(opts)
			default:
				return m.Graticule()
			}
		})
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"state": s.State()})
	}
}

func (s *Server) handleRemoveLayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed := false
	_ = s.update("remove", []byte(name), func(m *datamap.Map) error {
		removed = m.RemoveLayer(name)
		return nil
	})
	if !removed {
		writeError(w, http.StatusNotFound, eris.Errorf("no layer %q", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": s.State()})
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width float64 `json:"width"`
	}
	body, err := readBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Width <= 0 {
		writeError(w, http.StatusBadRequest, eris.New("width must be positive"))
		return
	}
	var width, height float64
	err = s.update("resize", body, func(m *datamap.Map) error {
		if err := m.Resize(req.Width); err != nil {
			return err
		}
		width, height = m.Width(), m.Height()
		return nil
	})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"width": width, "height": height})
}

type zoomResponse struct {
	Transform string  `json:"transform"`
	Scale     float64 `json:"scale"`
}

func (s *Server) zoomResponse(w http.ResponseWriter) {
	s.mu.Lock()
	z := s.m.ZoomTransform()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, zoomResponse{Transform: z.String(), Scale: z.K})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Factor float64 `json:"factor"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	body, err := readBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	_ = s.update("zoom", body, func(m *datamap.Map) error {
		m.Zoom(req.Factor, req.X, req.Y)
		return nil
	})
	s.zoomResponse(w)
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	body, err := readBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	_ = s.update("pan", body, func(m *datamap.Map) error {
		m.Pan(req.DX, req.DY)
		return nil
	})
	s.zoomResponse(w)
}

func (s *Server) handleResetZoom(w http.ResponseWriter, _ *http.Request) {
	_ = s.update("reset-zoom", nil, func(m *datamap.Map) error {
		m.ResetZoom()
		return nil
	})
	s.zoomResponse(w)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	body, err := readBody(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var resp popupResponse
	_ = s.update("pointer", body, func(m *datamap.Map) error {
		m.PointerMove(req.X, req.Y)
		resp = s.popup()
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePointerLeave(w http.ResponseWriter, _ *http.Request) {
	var resp popupResponse
	_ = s.update("pointer-leave", nil, func(m *datamap.Map) error {
		m.PointerLeave()
		resp = s.popup()
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettle(w http.ResponseWriter, _ *http.Request) {
	var n int
	_ = s.update("settle", nil, func(m *datamap.Map) error {
		n = m.Settle()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]int{"settled": n})
}
