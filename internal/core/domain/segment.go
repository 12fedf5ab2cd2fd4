package domain

type SegmentKind string

const (
	SegmentParagraph SegmentKind = "paragraph"
	SegmentDivider   SegmentKind = "divider"
	SegmentBullet    SegmentKind = "bullet"
)

// RawSegment is one typed text block pulled from the notes source.
// A divider marks a recipe boundary.
type RawSegment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

func (k SegmentKind) Valid() bool {
	switch k {
	case SegmentParagraph, SegmentDivider, SegmentBullet:
		return true
	default:
		return false
	}
}
