package gfp

import pak "github.com/Benborbar/gfp/core"

// Re-export types from core package.
type (
	// Archive is an opened pak of either dialect.
	Archive = pak.Archive

	// Dialect selects one of the two known pak layouts.
	Dialect = pak.Dialect

	// ProgressEvent represents a progress update during batch operations.
	ProgressEvent = pak.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = pak.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// Implementations must be safe for concurrent calls.
	ProgressFunc = pak.ProgressFunc
)

// Re-export dialect tags.
const (
	// DialectAvatar is the tag 7 layout of avatarpaks.
	DialectAvatar = pak.DialectAvatar

	// DialectGame is the tag 10 layout of the main game paks.
	DialectGame = pak.DialectGame
)

// Re-export progress stage constants.
const (
	// StageOpening indicates a pak is being opened.
	StageOpening = pak.StageOpening

	// StageIndexing indicates the trailer and index are being parsed.
	StageIndexing = pak.StageIndexing

	// StageExtracting indicates an entry has been extracted.
	StageExtracting = pak.StageExtracting

	// StageDone indicates a pak has been fully processed.
	StageDone = pak.StageDone
)
