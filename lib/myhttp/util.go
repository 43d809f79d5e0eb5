package myhttp

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// BearerToken extracts the credential of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// GuessHostnameWithScheme returns the public base url of this service, used to register push subscriptions.
func GuessHostnameWithScheme() string {
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		return fmt.Sprintf("https://%s.appspot.com", project)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s", port)
}
