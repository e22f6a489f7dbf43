package layout

import (
	"math"
	"regexp"
	"strconv"
)

// FontWeight is the weight attribute of a text run as reported by the
// layout converter. Anything other than bold is treated as normal.
type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

// Role is the structural classification of a phrase, derived purely from
// font metrics. The nomination form renders section banners above 15pt,
// question headings above 13pt, column labels bold, and values regular.
type Role int

const (
	RoleData Role = iota
	RoleLabel
	RoleQuestion
	RoleSection
)

// String returns a human-readable name for the role
func (r Role) String() string {
	switch r {
	case RoleLabel:
		return "label"
	case RoleQuestion:
		return "question"
	case RoleSection:
		return "section"
	default:
		return "data"
	}
}

const (
	// positionTolerance absorbs PDF layout rounding noise in top/left/size
	// comparisons
	positionTolerance = 0.001

	// maxWordGap is the widest horizontal gap (pt) still considered part of
	// the same phrase on one line
	maxWordGap = 10.0

	// wrappedLineMin/Max bound the vertical drop of a wrapped continuation
	// line; anything outside is a new phrase (including page breaks, which
	// show up as large or negative jumps)
	wrappedLineMin = 1.0
	wrappedLineMax = 20.0

	sectionFontSize  = 15.0
	questionFontSize = 13.0
)

// StyleDescriptor holds the numeric style attributes of one positioned text
// run. Construct it with NewStyle from already-parsed metrics or with
// ParseStyle from a raw style string.
type StyleDescriptor struct {
	FontSize   float64
	FontWeight FontWeight
	Top        float64
	Left       float64
	Width      float64

	// sizeDefaulted records that the font size attribute was missing or
	// unparseable. Such a run must never classify as a section, question or
	// label off the defaulted zero, so Role forces it to data.
	sizeDefaulted bool
}

// NewStyle builds a descriptor from numeric metrics.
func NewStyle(fontSize float64, bold bool, top, left, width float64) StyleDescriptor {
	weight := FontWeightNormal
	if bold {
		weight = FontWeightBold
	}
	return StyleDescriptor{
		FontSize:   fontSize,
		FontWeight: weight,
		Top:        top,
		Left:       left,
		Width:      width,
	}
}

var (
	fontSizePattern   = regexp.MustCompile(`font-size:([.0-9]+)pt`)
	fontWeightPattern = regexp.MustCompile(`font-weight:([^;]+)`)
	topPattern        = regexp.MustCompile(`top:([.0-9]+)pt`)
	leftPattern       = regexp.MustCompile(`left:([.0-9]+)pt`)
	widthPattern      = regexp.MustCompile(`width:([.0-9]+)pt`)
)

// ParseStyle extracts the style attributes from a raw style string such as
// "top:100.5pt;left:50pt;font-size:12pt;font-weight:bold;width:40pt".
// Missing or unparseable attributes degrade to 0/normal rather than failing;
// a defaulted font size additionally pins the role to data.
func ParseStyle(style string) StyleDescriptor {
	d := StyleDescriptor{FontWeight: FontWeightNormal}

	size, ok := findFloat(fontSizePattern, style)
	if ok {
		d.FontSize = size
	} else {
		d.sizeDefaulted = true
	}
	if m := fontWeightPattern.FindStringSubmatch(style); m != nil && FontWeight(m[1]) == FontWeightBold {
		d.FontWeight = FontWeightBold
	}
	d.Top, _ = findFloat(topPattern, style)
	d.Left, _ = findFloat(leftPattern, style)
	d.Width, _ = findFloat(widthPattern, style)

	return d
}

func findFloat(p *regexp.Regexp, style string) (float64, bool) {
	m := p.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Role classifies the run, first match wins: section above 15pt, question
// above 13pt, then bold means label and regular means data.
func (s StyleDescriptor) Role() Role {
	switch {
	case s.sizeDefaulted:
		return RoleData
	case s.FontSize > sectionFontSize:
		return RoleSection
	case s.FontSize > questionFontSize:
		return RoleQuestion
	case s.FontWeight != FontWeightBold:
		return RoleData
	default:
		return RoleLabel
	}
}

// ContinuesLine reports whether this run extends the phrase ended by prev:
// either the next word on the same line, or the first word of a wrapped
// line directly below it. Runs with a different size or weight never
// continue, and neither does anything across a page break.
func (s StyleDescriptor) ContinuesLine(prev *StyleDescriptor) bool {
	if prev == nil {
		return false
	}
	if !vaguelyEqual(s.FontSize, prev.FontSize) || s.FontWeight != prev.FontWeight {
		return false
	}
	if vaguelyEqual(s.Top, prev.Top) && s.Left-prev.Left-prev.Width < maxWordGap {
		return true
	}
	if s.Top > prev.Top+wrappedLineMin && s.Top < prev.Top+wrappedLineMax {
		return true
	}
	return false
}

// HorizontallyAlignedWith reports whether two runs start at the same left
// offset, which is how a table value is matched to the column label above it.
func (s StyleDescriptor) HorizontallyAlignedWith(other StyleDescriptor) bool {
	return vaguelyEqual(s.Left, other.Left)
}

func vaguelyEqual(a, b float64) bool {
	return math.Abs(a-b) < positionTolerance
}
