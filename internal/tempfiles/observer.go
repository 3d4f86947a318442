package tempfiles

// Reason records why an entry was removed
type Reason int

const (
	ReasonExpired   Reason = iota // older than the policy's AutoExpire
	ReasonEvicted                 // over the policy's MaxFiles cap
	ReasonExplicit                // caller asked for this path
	ReasonReclaimed               // marked earlier and unchanged since
	ReasonMarker                  // a consumed or orphaned .delete marker
)

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonEvicted:
		return "evicted"
	case ReasonExplicit:
		return "explicit"
	case ReasonReclaimed:
		return "reclaimed"
	case ReasonMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// Operations reported with suppressed failures
const (
	OpRemove      = "remove"
	OpReadMarker  = "read_marker"
	OpWriteMarker = "write_marker"
	OpStat        = "stat"
)

// Observer receives per-item events. Implementations must be safe for
// concurrent use when a Janitor is shared between goroutines.
type Observer interface {
	Removed(path string, reason Reason)
	Marked(path string)
	Failed(path, op string, err error)
}

type nopObserver struct{}

func (nopObserver) Removed(string, Reason)       {}
func (nopObserver) Marked(string)               {}
func (nopObserver) Failed(string, string, error) {}

// MultiObserver fans events out to every observer in order
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Removed(path string, reason Reason) {
	for _, o := range m {
		o.Removed(path, reason)
	}
}

func (m multiObserver) Marked(path string) {
	for _, o := range m {
		o.Marked(path)
	}
}

func (m multiObserver) Failed(path, op string, err error) {
	for _, o := range m {
		o.Failed(path, op, err)
	}
}
