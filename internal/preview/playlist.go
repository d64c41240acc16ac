// Package preview serializes the current segment selection as an HLS media
// playlist so external players can rehearse the cut before rendering.
package preview

import (
	"fmt"

	"github.com/grafov/m3u8"

	"github.com/letrongminh/vigenair/internal/timeline"
)

// SegmentURI returns the playlist URI for a segment, named by its 1-based id.
func SegmentURI(s timeline.Segment) string {
	return fmt.Sprintf("segments/segment_%d.ts", s.ID+1)
}

// Playlist encodes the selected segments, in timeline order, as a VOD media
// playlist. Segment durations come straight from the segment bounds.
func Playlist(segments []timeline.Segment) (string, error) {
	var selected []timeline.Segment
	for _, s := range segments {
		if s.Selected {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return "", fmt.Errorf("no segments selected")
	}

	p, err := m3u8.NewMediaPlaylist(0, uint(len(selected)))
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}
	p.MediaType = m3u8.VOD

	for _, s := range selected {
		if err := p.Append(SegmentURI(s), s.Duration(), ""); err != nil {
			return "", fmt.Errorf("failed to append segment %d: %w", s.ID, err)
		}
	}
	p.Close()

	return p.Encode().String(), nil
}
