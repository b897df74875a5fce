package coordinator

// Mode is the backing store a handle currently uses.
type Mode int32

const (
	ModeUninitialized Mode = iota
	ModeProbing
	ModeRemote
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "uninitialized"
	case ModeProbing:
		return "probing"
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	default:
		return "unknown"
	}
}
