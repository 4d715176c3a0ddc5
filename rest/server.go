// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/mux"
	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/telemetry"
)

// Reporter produces topology snapshots.  *topovisor.Reporter is the
// usual implementation.
type Reporter interface {
	Report(ctx context.Context) (*topovisor.TopologySnapshot, error)
}

type Options struct {
	Service     string // reported by /health
	Env         string
	Port        int
	OtelEnabled bool

	// Log, if not nil, is served at /log.
	Log *topovisor.Log

	Telemetry *telemetry.Telemetry
	Logger    *log.Logger

	// When AuthUser is set, every route except /health requires HTTP
	// basic auth.  AuthHash is the bcrypt hash of the password.
	AuthUser string
	AuthHash string
}

// Handler serves topology reports over HTTP.
type Handler struct {
	rep  Reporter
	opts Options
	r    *mux.Router
}

func (h *Handler) logf(format string, v ...interface{}) {
	if h.opts.Logger != nil {
		h.opts.Logger.Printf(format, v...)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	h.writeJsonCode(w, http.StatusOK, v)
}

func (h *Handler) writeJsonCode(w http.ResponseWriter, code int, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(code)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	h.writeJsonCode(w, e.Code, e)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, &Hello{
		Message:   "Hello from a supervisor-managed app!",
		Status:    "running",
		Processes: "managed by supervisord",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, &Health{Status: "healthy", Service: h.opts.Service})
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, &Info{
		Environment: map[string]string{
			"APP_ENV":      h.opts.Env,
			"PORT":         strconv.Itoa(h.opts.Port),
			"OTEL_ENABLED": strconv.FormatBool(h.opts.OtelEnabled),
		},
		ProcessManager: "supervisord",
		GoVersion:      runtime.Version(),
	})
}

// format picks the report format.  An explicit format parameter wins;
// otherwise browsers (Accept naming text/html) get HTML and everyone
// else gets JSON.
func format(r *http.Request) (string, *Error) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case FormatJSON, FormatHTML, FormatText:
		return f, nil
	case "":
	default:
		return "", &Error{http.StatusBadRequest, "Unknown format"}
	}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return FormatHTML, nil
	}
	return FormatJSON, nil
}

// textRenderer renders without colors, since we cannot know what will
// display the result.
func textRenderer() *lipgloss.Renderer {
	tr := lipgloss.NewRenderer(io.Discard)
	tr.SetColorProfile(termenv.Ascii)
	return tr
}

func (h *Handler) processes(w http.ResponseWriter, r *http.Request) {
	f, ferr := format(r)
	if ferr != nil {
		h.writeError(w, ferr)
		return
	}

	ctx, end := h.opts.Telemetry.Start(r.Context(), "topovisor.http.processes",
		attribute.String("format", f))
	snap, e := h.rep.Report(ctx)
	end(e)
	if e != nil {
		h.logf("report failed: %v", e)
		h.writeJsonCode(w, http.StatusInternalServerError,
			render.Failure(e, topovisor.Self()))
		return
	}
	h.opts.Telemetry.CountReport(f)

	w.Header().Set("Cache-Control", "no-store")
	switch f {
	case FormatHTML:
		var buf bytes.Buffer
		if e := render.Visual(&buf, snap); e != nil {
			h.internalError(w, e)
			return
		}
		w.Header().Set("Content-Type", mimeHtml)
		w.Write(buf.Bytes())
	case FormatText:
		w.Header().Set("Content-Type", mimeText)
		io.WriteString(w, render.Terminal(snap, textRenderer())+"\n")
	default:
		h.writeJson(w, render.Structured(snap))
	}
}

func etagOf(id int64) string {
	return `"` + strconv.FormatInt(id, 10) + `"`
}

// lastEtag returns the log ID the client already has, or -1.
func lastEtag(r *http.Request) int64 {
	tag := strings.Trim(strings.TrimPrefix(r.Header.Get("If-None-Match"), "W/"), `"`)
	if id, e := strconv.ParseInt(tag, 10, 64); e == nil {
		return id
	}
	return -1
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	if h.opts.Log == nil {
		h.writeError(w, &Error{http.StatusNotFound, "Log not available"})
		return
	}
	last := lastEtag(r)
	recs, id := h.opts.Log.Records(last)
	w.Header().Set("Etag", etagOf(id))
	if recs == nil && id == last {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJson(w, recs)
}

// clearLog empties the task log.  Since anyone could otherwise do it,
// it is only allowed when the server requires credentials.
func (h *Handler) clearLog(w http.ResponseWriter, r *http.Request) {
	if h.opts.Log == nil {
		h.writeError(w, &Error{http.StatusNotFound, "Log not available"})
		return
	}
	if h.opts.AuthUser == "" {
		h.writeError(w, &Error{http.StatusForbidden, "Clearing the log requires authentication"})
		return
	}
	h.opts.Log.Clear()
	h.logf("Task log cleared by %s", h.opts.AuthUser)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if mh := h.opts.Telemetry.MetricsHandler(); mh != nil {
		mh.ServeHTTP(w, r)
		return
	}
	h.writeError(w, &Error{http.StatusNotFound, "Metrics disabled"})
}

func (h *Handler) authorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(h.opts.AuthUser)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.opts.AuthHash), []byte(pass)) == nil
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.AuthUser == "" || r.URL.Path == "/health" || h.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="topovisor"`)
		h.writeError(w, &Error{http.StatusUnauthorized, "Unauthorized"})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func NewHandler(rep Reporter, opts Options) *Handler {
	r := mux.NewRouter()
	h := &Handler{rep: rep, opts: opts, r: r}
	r.Use(h.authenticate)
	r.HandleFunc("/", h.home).Methods("GET")
	r.HandleFunc("/health", h.health).Methods("GET")
	r.HandleFunc("/info", h.info).Methods("GET")
	r.HandleFunc("/processes", h.processes).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	r.HandleFunc("/log", h.clearLog).Methods("DELETE")
	r.HandleFunc("/metrics", h.metrics).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, &Error{http.StatusNotFound, "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, &Error{http.StatusMethodNotAllowed, "Method not allowed"})
	})
	return h
}
