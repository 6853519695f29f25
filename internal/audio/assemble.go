package audio

import (
	"sort"

	"github.com/podforge/podforge/internal/models"
)

// SegmentAudio pairs one script segment's synthesized audio with its
// playback position.
type SegmentAudio struct {
	Index   int
	Speaker string
	Data    []byte
}

// Assembler combines per-segment audio into the final episode artifact and
// reports its measured (or format-derived) duration in seconds.
type Assembler interface {
	Combine(segments []SegmentAudio) ([]byte, float64, error)
}

// MP3Concat concatenates MP3 segment streams in playback order. MP3 frames
// are self-delimiting, so byte concatenation yields a playable stream.
// Duration is derived from the configured bitrate.
type MP3Concat struct {
	BitrateKbps int // default 128
}

var _ Assembler = (*MP3Concat)(nil)

func NewMP3Concat() *MP3Concat {
	return &MP3Concat{BitrateKbps: 128}
}

func (c *MP3Concat) Combine(segments []SegmentAudio) ([]byte, float64, error) {
	if len(segments) == 0 {
		return nil, 0, models.NewError(models.ErrInvalidRequest, "no segments to assemble")
	}
	ordered := append([]SegmentAudio(nil), segments...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	total := 0
	for _, seg := range ordered {
		if len(seg.Data) == 0 {
			return nil, 0, models.NewError(models.ErrInvalidRequest,
				"segment %d (%s) has no audio", seg.Index, seg.Speaker)
		}
		total += len(seg.Data)
	}

	out := make([]byte, 0, total)
	for _, seg := range ordered {
		out = append(out, seg.Data...)
	}

	kbps := c.BitrateKbps
	if kbps <= 0 {
		kbps = 128
	}
	durationSec := float64(total) * 8 / float64(kbps*1000)
	return out, durationSec, nil
}
