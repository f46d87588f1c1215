package paktype

// ProgressEvent represents a progress update during batch extraction or listing.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Pak is the archive being processed, if known.
	Pak string

	// Path is the resolved path of the entry being processed, if applicable.
	Path string

	// EntryID is the id of the entry being processed.
	EntryID uint64

	// BytesDone is the number of decoded bytes written so far for this archive.
	BytesDone uint64

	// EntriesDone is the number of entries completed.
	EntriesDone uint64

	// EntriesTotal is the number of entries in the archive.
	// Zero indicates the total is not known yet.
	EntriesTotal uint64
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for batch operations.
const (
	// StageOpening indicates an archive is being opened.
	StageOpening ProgressStage = iota

	// StageIndexing indicates the trailer and index are being parsed.
	StageIndexing

	// StageExtracting indicates an entry is being extracted.
	StageExtracting

	// StageDone indicates the archive has been fully processed.
	StageDone
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageOpening:
		return "opening"
	case StageIndexing:
		return "indexing"
	case StageExtracting:
		return "extracting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
