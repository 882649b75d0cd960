package story

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func texts(scenes []Scene) []string {
	out := make([]string, len(scenes))
	for i, sc := range scenes {
		out[i] = sc.Text
	}
	return out
}

func TestSegmentDropsExtraFragments(t *testing.T) {
	scenes := Segment("A knight rode out. He met a dragon. They became friends.", 2)
	want := []string{"A knight rode out", "He met a dragon"}
	if diff := cmp.Diff(want, texts(scenes)); diff != "" {
		t.Fatalf("segment mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentSynthesizesFiller(t *testing.T) {
	scenes := Segment("Only one sentence", 3)
	want := []string{
		"Only one sentence",
		"(Scene 2 filler) Continue the story...",
		"(Scene 3 filler) Continue the story...",
	}
	if diff := cmp.Diff(want, texts(scenes)); diff != "" {
		t.Fatalf("segment mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentEmptyText(t *testing.T) {
	scenes := Segment("", 2)
	want := []string{"", FillerText(1)}
	if diff := cmp.Diff(want, texts(scenes)); diff != "" {
		t.Fatalf("segment mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentNonPositive(t *testing.T) {
	for _, n := range []int{0, -3} {
		if got := Segment("A. B. C", n); len(got) != 0 {
			t.Fatalf("Segment(_, %d) = %d scenes", n, len(got))
		}
	}
}

// TestSegmentProperties 对各种场景数验证长度、下标与"真实片段在前、补位在后"。
func TestSegmentProperties(t *testing.T) {
	text := "One. Two. Three. Four"
	fragments := strings.Split(text, ". ")
	for n := 0; n <= 8; n++ {
		scenes := Segment(text, n)
		if len(scenes) != n {
			t.Fatalf("n=%d: got %d scenes", n, len(scenes))
		}
		for i, sc := range scenes {
			if sc.Index != i || sc.Number() != i+1 {
				t.Fatalf("n=%d: scene %d has index %d", n, i, sc.Index)
			}
			if sc.Image != nil {
				t.Fatalf("segmenter must not attach images")
			}
			want := FillerText(i)
			if i < len(fragments) {
				want = fragments[i]
			}
			if sc.Text != want {
				t.Fatalf("n=%d: scene %d = %q want %q", n, i, sc.Text, want)
			}
		}
	}
}
