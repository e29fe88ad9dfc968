package panelread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/panelread/internal/shield"
	"github.com/hazyhaar/panelread/readout"
)

// Handler returns the HTTP API:
//
//	GET  /health
//	GET  /panels
//	POST /panels/{name}/read
//	GET  /sessions?panel=&limit=
//	GET  /sessions/{id}
func (r *Reader) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(
		middleware.Recoverer,
		shield.HeadToGet,
		shield.SecurityHeaders(shield.DefaultHeaders()),
		shield.MaxBody(64<<10),
		shield.TraceID(r.logger),
	)
	limiter := shield.NewRateLimiter(r.cfg.HTTP.ReadLimit, r.cfg.HTTP.ReadWindow, r.clock)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Get("/panels", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, r.PanelInfos())
	})

	read := r.endpoint("http_read", func(ctx context.Context, req any) (any, error) {
		return r.Read(ctx, req.(string))
	})
	mux.With(limiter.Middleware).Post("/panels/{name}/read", func(w http.ResponseWriter, req *http.Request) {
		res, err := read(req.Context(), chi.URLParam(req, "name"))
		if err != nil {
			writeReadError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.Get("/sessions", func(w http.ResponseWriter, req *http.Request) {
		list, err := r.Sessions(req.Context(), req.URL.Query().Get("panel"), queryInt(req, "limit", 50))
		if err != nil {
			writeHistoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	mux.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		d, err := r.Session(req.Context(), id)
		if err != nil {
			writeHistoryError(w, err)
			return
		}
		if d == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, d)
	})

	return mux
}

// readStatus maps a read error to an HTTP status.
func readStatus(err error) int {
	if errors.Is(err, ErrUnknownPanel) {
		return http.StatusNotFound
	}
	switch ErrorKindOf(err) {
	case readout.ErrRenderTimeout:
		return http.StatusGatewayTimeout
	case readout.ErrBufferParity:
		return http.StatusConflict
	case readout.ErrStructuralMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeReadError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	var re *ReadError
	if errors.As(err, &re) {
		body["session"] = re.Session
		body["error_kind"] = string(re.Kind)
	}
	writeJSON(w, readStatus(err), body)
}

func writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoHistory) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
