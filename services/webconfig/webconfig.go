// Package webconfig serves the configuration page and accepts updates over
// HTTP.
package webconfig

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"gamepad-go/errcode"
	"gamepad-go/types"
	"gamepad-go/x/logx"
)

// Pad is the part of the pad service the web surface needs.
type Pad interface {
	Submit(ctx context.Context, key, value string) error
	Status() types.PadStatus
}

type Server struct {
	pad    Pad
	router chi.Router
}

type response struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func New(pad Pad) *Server {
	s := &Server{pad: pad}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog)

	r.Get("/", s.index)
	r.Post("/post", s.post)
	r.Get("/state", s.state)
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	logx.Info(logx.ComponentWeb, "web config listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logx.Debug(logx.ComponentWeb, "request", "method", r.Method, "uri", r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

// post takes variable_id and value from the query string (or form body),
// queues the update and redirects back to the page.
func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidParams, err.Error())
		return
	}
	key := r.Form.Get("variable_id")
	value := r.Form.Get("value")
	if key == "" {
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidParams, "missing variable_id")
		return
	}

	err := s.pad.Submit(r.Context(), key, value)
	switch {
	case err == nil:
	case errors.Is(err, errcode.FieldTooLong):
		s.fail(w, r, http.StatusBadRequest, errcode.FieldTooLong, err.Error())
		return
	case errors.Is(err, errcode.Timeout):
		s.fail(w, r, http.StatusServiceUnavailable, errcode.QueueFull, "configuration queue full, update dropped")
		return
	default:
		s.fail(w, r, http.StatusInternalServerError, errcode.Of(err), err.Error())
		return
	}
	logx.Info(logx.ComponentWeb, "update queued", "variable_id", key, "value", value)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.pad.Status())
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, code errcode.Code, msg string) {
	logx.Warn(logx.ComponentWeb, "request failed", "uri", r.RequestURI, "code", string(code), "msg", msg)
	render.Status(r, status)
	render.JSON(w, r, response{Status: "error", Code: string(code), Message: msg})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, s.pad.Status()); err != nil {
		logx.Error(logx.ComponentWeb, "render page", "err", err)
	}
}

var page = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Gamepad configuration</title></head>
<body>
<h1>Gamepad configuration</h1>
<table>
<tr><td>Host link</td><td>{{if .Connected}}connected{{else}}waiting{{end}}</td></tr>
<tr><td>Chip</td><td>{{.ChipSeries}}</td></tr>
<tr><td>Button pins</td><td>{{.Pins}}</td></tr>
<tr><td>Button map</td><td>{{if .ButtonMap}}{{.ButtonMap}}{{else}}all pins: button 1{{end}}</td></tr>
<tr><td>Scan mode</td><td>{{.ScanMode}}</td></tr>
<tr><td>Throttle / brake</td><td>{{.Throttle}} / {{.Brake}}</td></tr>
{{if .LastError}}<tr><td>Last error</td><td>{{.LastError}}</td></tr>{{end}}
</table>
<form method="post" action="/post">
<input type="hidden" name="variable_id" value="apply">
<label>Button pins <input name="value" maxlength="63" value="{{.Pins}}"></label>
<button type="submit">Apply</button>
</form>
<form method="post" action="/post">
<input type="hidden" name="variable_id" value="esp32_chip_series">
<label>Chip series
<select name="value">
<option>ESP32</option><option>ESP32_S2</option><option selected>ESP32_S3</option><option>ESP32_C3</option>
</select></label>
<button type="submit">Set</button>
</form>
<form method="post" action="/post">
<input type="hidden" name="variable_id" value="button_map">
<label>Button map <input name="value" maxlength="63" value="{{.ButtonMap}}" placeholder="4:1,5:2"></label>
<button type="submit">Set</button>
</form>
<form method="post" action="/post">
<input type="hidden" name="variable_id" value="scan_mode">
<label>Scan mode
<select name="value"><option>single</option><option>pairs</option></select></label>
<button type="submit">Set</button>
</form>
</body>
</html>
`))
