package server

import (
	"net/http"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Routing is delegated to [http.ServeMux], so paths may carry wildcards ("/playlists/{id}").
// Requests no pattern accepts still pass through the middleware stack and receive the mux's 404
// or 405 decision as a JSON [services.ErrorResponse].
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

var _ Router = (*BasicRouter)(nil)

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first added runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle registers handler for "METHOD path", wrapped with the current middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(method+" "+path, r.Apply(handler))
}

// HandleFunc is [BasicRouter.Handle] for plain functions.
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.Handle(method, path, fn)
}

// Handler mounts a grouped handler on every pattern it reports from [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern != "" {
		r.mux.ServeHTTP(w, req)
		return
	}
	r.Apply(http.HandlerFunc(r.unmatched)).ServeHTTP(w, req)
}

// Apply wraps handler so that the first registered middleware sees the request first.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	return handler
}

// unmatched asks the mux what it would have answered and re-renders that as JSON.
func (r *BasicRouter) unmatched(w http.ResponseWriter, req *http.Request) {
	probe := &probeWriter{header: http.Header{}}
	r.mux.ServeHTTP(probe, req)

	status := probe.status
	if status == 0 {
		status = http.StatusNotFound
	}
	if allow := probe.header.Get("Allow"); allow != "" {
		w.Header().Set("Allow", allow)
	}
	writeError(w, status, http.StatusText(status))
}

// probeWriter records a status code and headers and discards the body.
type probeWriter struct {
	header http.Header
	status int
}

func (p *probeWriter) Header() http.Header { return p.header }

func (p *probeWriter) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	return len(b), nil
}

func (p *probeWriter) WriteHeader(status int) {
	if p.status == 0 {
		p.status = status
	}
}
