package paktype

// Stage is the load state of an archive. Stages only move forward, and a
// failed load leaves the previous stage in place.
type Stage uint8

const (
	// StageUnopened means only the source is open; nothing has been read.
	StageUnopened Stage = iota

	// StageTrailerLoaded means the trailer has been read and deobfuscated.
	StageTrailerLoaded

	// StageEntriesLoaded means the index block and entry table are parsed.
	StageEntriesLoaded

	// StagePathsLoaded means the directory table is parsed (game paks only).
	StagePathsLoaded
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageUnopened:
		return "unopened"
	case StageTrailerLoaded:
		return "trailer loaded"
	case StageEntriesLoaded:
		return "entries loaded"
	case StagePathsLoaded:
		return "paths loaded"
	default:
		return "unknown"
	}
}
