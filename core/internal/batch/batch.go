// Package batch extracts every entry of one archive into a Sink.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Benborbar/gfp/core/internal/file"
	"github.com/Benborbar/gfp/core/internal/paktype"
)

// Archive is the part of an opened pak the Processor needs.
type Archive interface {
	EntryCount() (uint64, error)
	EntryInfo(id uint64) (paktype.EntryInfo, error)
	ExtractEntry(id uint64, w io.Writer) error
}

// Processor walks an archive's entries in id order and writes each one to a
// Sink.
//
// Processing stops on the first error; the entry being written is discarded
// and entries already committed are left in place.
type Processor struct {
	name     string
	progress paktype.ProgressFunc
	logger   *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithName sets the archive name reported in progress events.
func WithName(name string) ProcessorOption {
	return func(p *Processor) {
		p.name = name
	}
}

// WithProgress sets a callback that receives an event after each entry.
func WithProgress(fn paktype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithProcessorLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process extracts every entry of a into sink.
//
// Entries are filtered through sink.ShouldProcess. The context is checked
// between entries; an extraction in progress runs to completion.
func (p *Processor) Process(ctx context.Context, a Archive, sink Sink) (ProcessStats, error) {
	var stats ProcessStats

	count, err := a.EntryCount()
	if err != nil {
		return stats, err
	}
	p.log().Debug("batch processing", "pak", p.name, "entries", count)

	for id := range count {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		info, err := a.EntryInfo(id)
		if err != nil {
			return stats, err
		}
		if !sink.ShouldProcess(info) {
			stats.Skipped++
			p.log().Debug("skipping entry", "id", id, "path", info.Path)
			continue
		}

		n, err := p.processEntry(a, info, sink)
		if err != nil {
			return stats, fmt.Errorf("batch: %s: %w", info.Path, err)
		}
		stats.Processed++
		stats.TotalBytes += n

		p.emit(paktype.ProgressEvent{
			Stage:        paktype.StageExtracting,
			Pak:          p.name,
			Path:         info.Path,
			EntryID:      id,
			BytesDone:    stats.TotalBytes,
			EntriesDone:  id + 1,
			EntriesTotal: count,
		})
	}
	return stats, nil
}

func (p *Processor) processEntry(a Archive, info EntryInfo, sink Sink) (uint64, error) {
	w, err := sink.Writer(info)
	if err != nil {
		return 0, err
	}

	cw := &file.CountingWriter{W: w}
	if err := a.ExtractEntry(info.ID, cw); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return 0, err
	}
	if err := w.Commit(); err != nil {
		return 0, err
	}
	return cw.N, nil
}

func (p *Processor) emit(event paktype.ProgressEvent) {
	if p.progress != nil {
		p.progress(event)
	}
}
