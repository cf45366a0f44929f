package config

// SourceKind identifies where a configuration fragment came from
type SourceKind string

// Recognized source kinds, in ascending priority order
const (
	SourceDefaults    SourceKind = "defaults"
	SourceFile        SourceKind = "file"
	SourceEnvironment SourceKind = "environment"
	SourceCLI         SourceKind = "cli"
)

// Priority returns the fixed merge priority for the source kind.
// Sources are applied in ascending priority so higher-priority values
// win on conflict: defaults < file < environment < cli.
func (k SourceKind) Priority() int {
	switch k {
	case SourceDefaults:
		return 0
	case SourceFile:
		return 10
	case SourceEnvironment:
		return 20
	case SourceCLI:
		return 30
	default:
		return -1
	}
}

// Source is one contributor to the merged configuration tree. Sources are
// constructed fresh on every load cycle and never persisted.
type Source struct {
	Kind     SourceKind
	Priority int
	Origin   string // file path, "environment", or "cli"
	Payload  Tree
}

// NewSource creates a source tagged with its kind's fixed priority
func NewSource(kind SourceKind, origin string, payload Tree) Source {
	return Source{
		Kind:     kind,
		Priority: kind.Priority(),
		Origin:   origin,
		Payload:  payload,
	}
}
