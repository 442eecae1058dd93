package http

// Route is an immutable (method, path, handler) triple. The route table is
// single-writer before the server starts and many-readers after, so lookups
// take no lock.
type Route struct {
	Method  string
	Path    string
	Handler Handler
}

type Router struct {
	routes []Route
}

func NewRouter() *Router {
	return &Router{
		routes: make([]Route, 0),
	}
}

// Add registers a route. Matching is an exact string comparison on both
// method and path; the first registered match wins.
func (router *Router) Add(method, path string, handler Handler) {
	router.routes = append(router.routes, Route{
		Method:  method,
		Path:    path,
		Handler: handler,
	})
}

func (router *Router) GET(path string, handler Handler) {
	router.Add("GET", path, handler)
}

func (router *Router) POST(path string, handler Handler) {
	router.Add("POST", path, handler)
}

func (router *Router) PUT(path string, handler Handler) {
	router.Add("PUT", path, handler)
}

func (router *Router) DELETE(path string, handler Handler) {
	router.Add("DELETE", path, handler)
}

// Lookup walks the table in registration order and returns the first
// handler whose method and path both match exactly.
func (router *Router) Lookup(method, path string) (Handler, bool) {
	for _, route := range router.routes {
		if route.Method == method && route.Path == path {
			return route.Handler, true
		}
	}
	return nil, false
}
