package navigation

import "strings"

// Route paths.
const (
	RootPath      = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	VideosPath    = "/videos"
	AIPath        = "/ai"
	DouyinPath    = "/douyin"
)

// Route is one entry of the route table.
type Route struct {
	Path         string
	Name         string
	Redirect     string
	RequiresAuth bool
}

// Routes returns the route table in declaration order.
func Routes() []Route {
	return []Route{
		{Path: RootPath, Redirect: LoginPath},
		{Path: LoginPath, Name: "Login"},
		{Path: DashboardPath, Name: "Dashboard", RequiresAuth: true},
		{Path: VideosPath, Name: "VideoManagement", RequiresAuth: true},
		{Path: AIPath, Name: "AIGeneration", RequiresAuth: true},
		{Path: DouyinPath, Name: "DouyinPublish", RequiresAuth: true},
	}
}

// Lookup finds the route registered for path.
func Lookup(path string) (Route, bool) {
	path = normalizePath(path)
	for _, route := range Routes() {
		if route.Path == path {
			return route, true
		}
	}
	return Route{}, false
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return RootPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = RootPath
		}
	}
	return path
}
