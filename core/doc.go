// Package pak reads the pak archives of a game client in both known
// dialects: tag 7 avatar paks and tag 10 game paks.
//
// A pak is a flat file with a 45-byte trailer at its end. The trailer locates
// an index block holding the mount point, the entry table and, for game paks,
// a directory table of entry paths. Trailer fields, the index block and
// entry payloads may be XOR-obfuscated; payloads are stored raw or as a
// sequence of zlib blocks.
//
// Open and OpenSource return an Archive. Archives load the trailer, the
// entries and the paths lazily on first use, and each stage is loaded at
// most once. An Archive is not safe for concurrent use; open one per
// goroutine to process archives in parallel.
//
// The format carries no magic identifying its dialect, so the caller must
// pass the right one.
package pak
