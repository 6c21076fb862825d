package serialization

// Format constants.
const (
	MagicBytes      = "VNET"
	FormatVersion   = 1
	FixedHeaderSize = 4 + 4 + 4 + 8 // magic + version + flags + body size
	ChecksumSize    = 32            // SHA-256
	MaxBodySize     = 1 << 32       // 4GiB
)

// Kind is stored in the flags word and names the top-level record type.
type Kind uint32

// Record kinds.
const (
	KindVolume Kind = iota + 1
	KindSession
	KindBrain
	KindRecurrent
	KindAgent
)

var kindNames = map[Kind]string{
	KindVolume:    "volume",
	KindSession:   "session",
	KindBrain:     "brain",
	KindRecurrent: "recurrent",
	KindAgent:     "agent",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
