package gfp

import pak "github.com/Benborbar/gfp/core"

// layers maps each destination file to the index, in match order, of the
// last pak that writes it.
type layers map[string]int

func layerOwners(dests [][]string) layers {
	owners := make(layers)
	for i, ds := range dests {
		for _, d := range ds {
			if d != "" {
				owners[d] = i
			}
		}
	}
	return owners
}

// shadowed counts the destinations of pak i that a later pak overrides.
func (l layers) shadowed(i int, dests []string) int {
	n := 0
	for _, d := range dests {
		if owner, ok := l[d]; ok && owner != i {
			n++
		}
	}
	return n
}

// layerSink writes only the entries whose destination belongs to its pak.
type layerSink struct {
	*pak.FileSink
	owners layers
	layer  int
}

func (s *layerSink) ShouldProcess(info pak.EntryInfo) bool {
	if dest, err := s.DestPath(info.Path); err == nil {
		if owner, ok := s.owners[dest]; ok && owner != s.layer {
			return false
		}
	}
	return s.FileSink.ShouldProcess(info)
}
