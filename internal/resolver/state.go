package resolver

// State is the coordinator's lifecycle position. Transitions only move
// forward, except the deep-link override which re-enters Racing from a
// server-resolved Loaded state.
type State int

const (
	StateInit State = iota
	StateLocalHit
	StateRacing
	StateResolved
	StateLoaded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLocalHit:
		return "local_hit"
	case StateRacing:
		return "racing"
	case StateResolved:
		return "resolved"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Source identifies which racing path committed the destination.
type Source string

const (
	SourceLocal    Source = "local"
	SourceServer   Source = "server"
	SourceDeepLink Source = "deeplink"
	SourceFallback Source = "fallback"
)
