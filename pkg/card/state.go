package card

// State tracks where a touch session stands. Any transport loss drops
// the session back to Disconnected.
type State int

const (
	Disconnected State = iota
	Connecting
	Authenticated
	DescriptorKnown
	Transferring
	Refreshing
	Idle
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case DescriptorKnown:
		return "descriptor-known"
	case Transferring:
		return "transferring"
	case Refreshing:
		return "refreshing"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}
