package http

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ServeDashboard serves the dashboard single-page application
func ServeDashboard(webDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexPath := filepath.Join(webDir, "index.html")

		// Fall back to the built-in status page when no dashboard
		// bundle is installed next to the binary
		if _, err := os.Stat(indexPath); os.IsNotExist(err) {
			serveStatusPage(w, r)
			return
		}

		serveHTML(w, r, indexPath)
	}
}

// ServeStatic returns a file server for the dashboard's static assets
func ServeStatic(staticDir string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))
}

// serveHTML serves an HTML file with proper headers
func serveHTML(w http.ResponseWriter, r *http.Request, filePath string) {
	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-XSS-Protection", "1; mode=block")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Parse and execute template
	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, nil); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
}

// serveStatusPage renders a minimal page with links into the API
func serveStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>BRFSS Health Analytics</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .status { padding: 10px; margin: 10px 0; border-radius: 4px; }
        .info { background-color: #d1ecf1; color: #0c5460; }
    </style>
</head>
<body>
    <h1>BRFSS Health Analytics</h1>
    <div class="status info">
        <strong>Status:</strong> Service is running
        <br><strong>Time:</strong> %s
    </div>
    <h2>Quick Links</h2>
    <ul>
        <li><a href="/api/health">Health Check</a></li>
        <li><a href="/api/version">Version Info</a></li>
        <li><a href="/api/analytics/dashboard">Dashboard Payload</a></li>
        <li><a href="/api/analytics/states">State Summaries</a></li>
        <li><a href="/ws">WebSocket Endpoint</a></li>
    </ul>
</body>
</html>
`, time.Now().Format("2006-01-02 15:04:05"))
}
