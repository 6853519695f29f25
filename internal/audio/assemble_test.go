package audio

import (
	"bytes"
	"math"
	"testing"

	"github.com/podforge/podforge/internal/models"
)

func TestCombineOrdersByIndex(t *testing.T) {
	c := NewMP3Concat()
	out, _, err := c.Combine([]SegmentAudio{
		{Index: 2, Speaker: "B", Data: []byte("ccc")},
		{Index: 0, Speaker: "A", Data: []byte("aaa")},
		{Index: 1, Speaker: "B", Data: []byte("bbb")},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if !bytes.Equal(out, []byte("aaabbbccc")) {
		t.Errorf("segments out of order: %q", out)
	}
}

func TestCombineDuration(t *testing.T) {
	c := NewMP3Concat()
	// 16000 bytes at 128 kbps is one second.
	_, dur, err := c.Combine([]SegmentAudio{{Index: 0, Data: make([]byte, 16000)}})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if math.Abs(dur-1.0) > 1e-9 {
		t.Errorf("expected 1s, got %.4fs", dur)
	}
}

func TestCombineRejectsEmptyInput(t *testing.T) {
	c := NewMP3Concat()
	if _, _, err := c.Combine(nil); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

func TestCombineRejectsEmptySegment(t *testing.T) {
	c := NewMP3Concat()
	_, _, err := c.Combine([]SegmentAudio{
		{Index: 0, Speaker: "A", Data: []byte("aaa")},
		{Index: 1, Speaker: "B"},
	})
	if !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}
