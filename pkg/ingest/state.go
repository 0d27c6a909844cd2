package ingest

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateEnumeratingBeers
	StateEnumeratingCheckins
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateEnumeratingBeers:
		return "enumerating_beers"
	case StateEnumeratingCheckins:
		return "enumerating_checkins"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
