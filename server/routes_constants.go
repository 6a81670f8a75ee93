package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Screens
	RouteLogin     = "/"
	RouteDashboard = "/dashboard"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteCallback   = "/callback"

	// API Routes
	RouteAPIPages       = "/api/pages"
	RouteAPIPageMetrics = "/api/pages/{id}/metrics"

	// Operations
	RouteMetrics = "/metrics"
)
