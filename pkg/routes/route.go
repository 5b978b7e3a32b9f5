package routes

import "net/http"

// Route pairs an HTTP method and pattern with the handler that serves it.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
