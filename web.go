package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/partybox-telephone/games/telephone"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

// snapshotter is the read-only view of a session the viewer serves.
type snapshotter interface {
	Snapshot() telephone.View
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func logServe(log zerolog.Logger, what string, r *http.Request, written int, start time.Time) {
	log.Debug().Msgf("SERVE: %s (%s) to %s in %s",
		what,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(start).Round(time.Microsecond),
	)
}

func serveVersion(cfg *Config, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("telephone v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logServe(log, "Version page", r, written, startTime)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveSummary(cfg *Config, s snapshotter, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := io.WriteString(w, summarize(s.Snapshot()))
		if err != nil {
			errs <- err

			return
		}

		logServe(log, "Summary", r, written, startTime)
	}
}

func serveState(cfg *Config, s snapshotter, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(s.Snapshot())
		if err != nil {
			errs <- err
			http.Error(w, "could not encode state", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logServe(log, "State", r, written, startTime)
	}
}

func serveDrawing(cfg *Config, s snapshotter, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		last := s.Snapshot().LastDrawing
		if last == "" {
			http.NotFound(w, r)

			return
		}

		data, err := telephone.DataURLBytes(last)
		if err != nil {
			errs <- err
			http.Error(w, "could not decode drawing", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logServe(log, "Drawing", r, written, startTime)
	}
}

func summarize(v telephone.View) string {
	var b strings.Builder

	state := "connected"
	if !v.Connected {
		state = "disconnected"
	}

	fmt.Fprintf(&b, "Room %s (%s)\n", v.RoomID, state)
	fmt.Fprintf(&b, "Phase: %s\n", v.Phase)
	fmt.Fprintf(&b, "Status: %s\n", v.Status)

	b.WriteString("\nPlayers:\n")
	if len(v.Roster) == 0 {
		b.WriteString("  (none yet)\n")
	}
	for _, e := range v.Roster {
		b.WriteString("  " + rosterLine(e) + "\n")
	}

	if v.Screen == telephone.ScreenReveal {
		fmt.Fprintf(&b, "\n%s\n", v.Replay.Progress)
		for _, s := range v.Replay.Steps {
			b.WriteString("  " + stepLine(s) + "\n")
		}
		if v.Replay.TallyText != "" {
			fmt.Fprintf(&b, "%s\n", v.Replay.TallyText)
		}
		if v.Replay.VerdictText != "" {
			fmt.Fprintf(&b, "%s\n", v.Replay.VerdictText)
		}
	} else {
		fmt.Fprintf(&b, "\n%s\n%s\n", v.Task.Title, v.Task.Description)
	}

	return b.String()
}

func newRouter(cfg *Config, s snapshotter, log zerolog.Logger, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	prefix := strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(prefix+"/", serveSummary(cfg, s, log, errs))

	mux.GET(prefix+"/state", serveState(cfg, s, log, errs))

	mux.GET(prefix+"/drawing.png", serveDrawing(cfg, s, log, errs))

	mux.GET(prefix+"/qr", serveQR(cfg, log, errs))

	mux.GET(prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(prefix+"/version", serveVersion(cfg, log, errs))

	if cfg.profile {
		registerProfileHandlers(prefix, mux)
	}

	return mux
}

// ServeViewer runs the read-only local viewer until ctx is done.
func ServeViewer(ctx context.Context, cfg *Config, s snapshotter, log zerolog.Logger) error {
	errs := make(chan error, 64)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, s, log, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		for {
			select {
			case err := <-errs:
				log.Debug().Err(err).Msg("viewer write failed")
			case <-ctx.Done():
				return
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		var err error
		log.Info().Msgf("SERVE: Viewer listening on %s://%s%s/", cfg.scheme(), srv.Addr, strings.TrimSuffix(cfg.prefix, "/"))
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
