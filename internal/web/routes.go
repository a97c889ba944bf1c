package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-kiosk/internal/web/handlers"
	"github.com/kozaktomas/attendance-kiosk/internal/web/static"
)

func (s *Server) setupRoutes() {
	displayHandler := handlers.NewDisplayHandler(s.hub)
	registrationHandler := handlers.NewRegistrationHandler(s.kiosk)
	navigationHandler := handlers.NewNavigationHandler(s.kiosk)
	attendanceHandler := handlers.NewAttendanceHandler(s.attendance, s.config.Recognition.Location)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Display
		r.Get("/display/state", displayHandler.State)
		r.Get("/display/frame.jpg", displayHandler.Frame)
		r.Get("/display/photo.jpg", displayHandler.Photo)
		r.Get("/display/events", displayHandler.Events)

		// Registration form
		r.Post("/registration", registrationHandler.Register)

		// Screens
		r.Get("/navigation", navigationHandler.Get)
		r.Post("/navigation", navigationHandler.Navigate)

		// Operator report
		r.Get("/attendance", attendanceHandler.List)
	})

	// Kiosk screen
	s.router.Get("/*", s.serveStatic)
}

// serveStatic serves the embedded kiosk page and its assets.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	f, err := fs.Open(path)
	if err != nil {
		// Unknown paths fall back to the kiosk page
		f, err = fs.Open("/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		path = "/index.html"
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(path, ".html"):
		contentType = "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		contentType = "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		contentType = "application/javascript; charset=utf-8"
	case strings.HasSuffix(path, ".svg"):
		contentType = "image/svg+xml"
	case strings.HasSuffix(path, ".png"):
		contentType = "image/png"
	case strings.HasSuffix(path, ".ico"):
		contentType = "image/x-icon"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
