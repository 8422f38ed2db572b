package transport

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
)

// Gateway is the router's front door. Each backend handler lives under its
// own path prefix and sees requests with that prefix removed; the bare root
// answers "ok" for liveness checks without touching a backend.
type Gateway struct {
	router  *mux.Router
	mounted map[string]bool
}

// NewGateway returns a Gateway with only the liveness route installed.
func NewGateway() *Gateway {
	r := mux.NewRouter()
	r.Methods(http.MethodGet, http.MethodHead).Path("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return &Gateway{router: r, mounted: map[string]bool{}}
}

// Mount serves h under /prefix/. Surrounding slashes in prefix are ignored.
// Mounting the same prefix twice panics, as with http.ServeMux.
func (g *Gateway) Mount(prefix string, h http.Handler) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		panic("transport: empty mount prefix")
	}
	if g.mounted[prefix] {
		panic("transport: prefix " + prefix + " mounted twice")
	}
	g.mounted[prefix] = true

	base := "/" + prefix
	g.router.PathPrefix(base + "/").Handler(http.StripPrefix(base, h))
}

// Prefixes lists the mounted prefixes in lexical order.
func (g *Gateway) Prefixes() []string {
	out := make([]string, 0, len(g.mounted))
	for p := range g.mounted {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}
