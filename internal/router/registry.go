package router

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/pterm/pterm"

	"github.com/backendbuddy/backendbuddy/internal/logger"
)

type RouteInfo struct {
	Handler     http.HandlerFunc
	Description string
	Method      string
	Order       int
}

// RouteRegistry collects routes before wiring them onto a ServeMux so the
// full table can be logged at startup.
type RouteRegistry struct {
	routes   map[string]RouteInfo
	logger   *logger.StyledLogger
	orderSeq int
}

func NewRouteRegistry(logger *logger.StyledLogger) *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]RouteInfo),
		logger: logger,
	}
}

// Register adds a route for all methods.
func (r *RouteRegistry) Register(route string, handler http.HandlerFunc, description string) {
	r.register(route, handler, description, "*")
}

// RegisterWithMethod adds a route restricted to one HTTP method using the
// ServeMux "METHOD /path" pattern form.
func (r *RouteRegistry) RegisterWithMethod(route string, handler http.HandlerFunc, description, method string) {
	r.register(route, handler, description, method)
}

func (r *RouteRegistry) register(route string, handler http.HandlerFunc, description, method string) {
	key := route
	if method != "*" {
		key = method + " " + route
	}
	r.routes[key] = RouteInfo{
		Handler:     handler,
		Description: description,
		Method:      method,
		Order:       r.orderSeq,
	}
	r.orderSeq++
}

func (r *RouteRegistry) WireUp(mux *http.ServeMux) {
	for pattern, info := range r.routes {
		mux.HandleFunc(pattern, info.Handler)
	}
	r.logRoutesTable()
}

func (r *RouteRegistry) GetRoutes() map[string]RouteInfo {
	return r.routes
}

func (r *RouteRegistry) logRoutesTable() {
	if len(r.routes) == 0 {
		return
	}

	type routeEntry struct {
		pattern string
		method  string
		desc    string
		order   int
	}

	var entries []routeEntry
	for pattern, info := range r.routes {
		entries = append(entries, routeEntry{
			pattern: pattern,
			method:  info.Method,
			desc:    info.Description,
			order:   info.Order,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})

	tableData := [][]string{
		{"ROUTE", "METHOD", "DESCRIPTION"},
	}
	for _, entry := range entries {
		tableData = append(tableData, []string{
			entry.pattern,
			entry.method,
			entry.desc,
		})
	}

	r.logger.InfoWithCount("Registered web routes", len(entries))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}
