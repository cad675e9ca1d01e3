// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"bytes"

	"github.com/opengraph-dev/compass/pkg/model"
)

// chunk is one slice of a large file, with enough bookkeeping to translate
// line numbers produced by parsing the slice back into whole-file line
// numbers and to deduplicate symbols that reappear in the overlap region.
type chunk struct {
	content     []byte
	startLine   int // 1-based line number of content[0] within the whole file
	overlapLine int // lines < overlapLine were already emitted by the previous chunk
}

// splitChunks splits content into overlapping chunks once its size exceeds
// threshold. overlapLines of context are carried from the tail of one
// chunk into the head of the next so that tree-sitter never has to parse
// a declaration that straddles a chunk boundary in isolation; the parser
// walking each chunk still produces symbols at their true whole-file line
// numbers because each extracted symbol's line is chunk.startLine-relative.
//
// When content fits under threshold, a single chunk covering the whole
// file is returned so chunked and non-chunked parsing share one code path.
func splitChunks(content []byte, threshold, overlapLines int) []chunk {
	if threshold <= 0 || len(content) <= threshold {
		return []chunk{{content: content, startLine: 1, overlapLine: 1}}
	}

	lines := bytes.Split(content, []byte("\n"))
	if overlapLines <= 0 {
		overlapLines = 20
	}

	// Choose a line-count-per-chunk that keeps each chunk's byte size near
	// threshold, approximated from the file's average line length.
	avgLineLen := len(content) / max(len(lines), 1)
	linesPerChunk := threshold / max(avgLineLen, 1)
	if linesPerChunk < overlapLines*2 {
		linesPerChunk = overlapLines * 2
	}

	var chunks []chunk
	start := 0
	for start < len(lines) {
		end := min(start+linesPerChunk, len(lines))
		overlapStart := start
		if start > 0 {
			overlapStart = max(0, start-overlapLines)
		}
		slice := bytes.Join(lines[overlapStart:end], []byte("\n"))
		chunks = append(chunks, chunk{
			content:     slice,
			startLine:   overlapStart + 1,
			overlapLine: start + 1,
		})
		if end == len(lines) {
			break
		}
		start = end
	}
	return chunks
}

// dedupeSymbols drops symbols whose (name, absolute start line) pair has
// already been seen, keeping the chunking path's output identical to a
// non-chunked parse of the same file (spec.md §4.2 "Chunking").
func dedupeSymbols(symbols []model.Symbol) []model.Symbol {
	seen := make(map[string]bool, len(symbols))
	out := symbols[:0]
	for _, s := range symbols {
		key := s.Name + "\x00" + itoa(s.StartLine)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
