package domain

// Route is a screen location the UI shell understands.
type Route string

const (
	RouteExplore Route = "/(tabs)/Explore"
	RouteLogin   Route = "/(tabs)/Login"
)

// Navigator receives fire-and-forget navigation signals.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(route Route) { f(route) }
