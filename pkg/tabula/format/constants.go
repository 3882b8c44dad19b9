// Package format turns syntax trees back into SQL text.
// Layout thresholds for the pretty printer are set here.
package format

// Line width - the target maximum line length
const MaxLineWidth = 92

// Threshold percentages (of MaxLineWidth) for switching from inline to multiline
const (
	ThresholdListPercent      = 60 // SELECT lists, CREATE column lists, SET clauses
	ThresholdConditionPercent = 70 // WHERE and ON predicates
)

var (
	ListThreshold      = MaxLineWidth * ThresholdListPercent / 100      // 55 chars
	ConditionThreshold = MaxLineWidth * ThresholdConditionPercent / 100 // 64 chars
)

// Indentation - tabs for indentation
const (
	TabWidth     = 4        // Display width of a tab character
	IndentWidth  = TabWidth // Each indent level is one tab = 4 display chars
	IndentString = "\t"
)

// FormatTextIndent is the indent FormatText uses inside parentheses.
const FormatTextIndent = "    "
