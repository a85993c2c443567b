package domain

import (
	"strings"
)

// SegmentKind tags one piece of a query answer.
type SegmentKind string

const (
	SegmentText   SegmentKind = "text"
	SegmentCode   SegmentKind = "code"
	SegmentOutput SegmentKind = "output"
)

// Segment is one part of the extraction service's answer: prose, a generated
// snippet, or the captured output of running that snippet.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Content  string      `json:"content"`
	Language string      `json:"language,omitempty"` // code segments only
}

// Transcript is the answer in the order the service emitted it.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Render folds the segments into one Markdown document, in order.
func (t Transcript) Render() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		switch seg.Kind {
		case SegmentText:
			b.WriteString(seg.Content)
			b.WriteString("\n")
		case SegmentCode:
			lang := strings.ToLower(seg.Language)
			if lang == "" || lang == "language_unspecified" {
				lang = "python"
			}
			b.WriteString("\n```" + lang + "\n")
			b.WriteString(seg.Content)
			b.WriteString("\n```\n")
		case SegmentOutput:
			b.WriteString("\n")
			b.WriteString(seg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Code returns the generated snippets in emission order.
func (t Transcript) Code() []string {
	return t.contentOf(SegmentCode)
}

// Outputs returns the execution outputs in emission order.
func (t Transcript) Outputs() []string {
	return t.contentOf(SegmentOutput)
}

func (t Transcript) contentOf(kind SegmentKind) []string {
	out := []string{}
	for _, seg := range t.Segments {
		if seg.Kind == kind {
			out = append(out, seg.Content)
		}
	}
	return out
}
