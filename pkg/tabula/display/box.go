// Package display renders results for terminals: row sets as box-drawn
// tables, acknowledgements and failures as short messages.
package display

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Style defines the characters used for box drawing
type Style struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Horizontal  string
	Vertical    string
	LeftT       string
	RightT      string
	TopT        string
	BottomT     string
	Cross       string
}

var (
	StyleSingle = Style{
		TopLeft: "┌", TopRight: "┐", BottomLeft: "└", BottomRight: "┘",
		Horizontal: "─", Vertical: "│",
		LeftT: "├", RightT: "┤", TopT: "┬", BottomT: "┴", Cross: "┼",
	}

	StyleRounded = Style{
		TopLeft: "╭", TopRight: "╮", BottomLeft: "╰", BottomRight: "╯",
		Horizontal: "─", Vertical: "│",
		LeftT: "├", RightT: "┤", TopT: "┬", BottomT: "┴", Cross: "┼",
	}

	StyleASCII = Style{
		TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
		Horizontal: "-", Vertical: "|",
		LeftT: "+", RightT: "+", TopT: "+", BottomT: "+", Cross: "+",
	}
)

// StyleByName returns the style called name ("single", "rounded" or
// "ascii"). Unknown names get StyleSingle.
func StyleByName(name string) Style {
	switch strings.ToLower(name) {
	case "rounded":
		return StyleRounded
	case "ascii":
		return StyleASCII
	}
	return StyleSingle
}

// Align is the alignment of text within a cell
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Box renders headers and rows as a grid.
type Box struct {
	Style    Style
	MaxWidth int // per cell, 0 for no limit
}

// NewBox creates a Box with single-line borders and no width limit.
func NewBox() *Box {
	return &Box{Style: StyleSingle}
}

// Render draws the table. aligns may be shorter than headers; missing
// entries are AlignLeft. Headers are always left-aligned.
func (b *Box) Render(headers []string, rows [][]string, aligns []Align) string {
	numCols := len(headers)
	if numCols == 0 {
		return ""
	}

	head := make([]string, numCols)
	widths := make([]int, numCols)
	for i, h := range headers {
		head[i] = b.cell(h)
		widths[i] = runewidth.StringWidth(head[i])
	}

	body := make([][]string, len(rows))
	for r, row := range rows {
		body[r] = make([]string, numCols)
		for i := range numCols {
			if i < len(row) {
				body[r][i] = b.cell(row[i])
			}
			if w := runewidth.StringWidth(body[r][i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	align := func(i int) Align {
		if i < len(aligns) {
			return aligns[i]
		}
		return AlignLeft
	}

	var sb strings.Builder
	s := b.Style

	b.rule(&sb, widths, s.TopLeft, s.TopT, s.TopRight)
	b.row(&sb, head, widths, func(int) Align { return AlignLeft })
	b.rule(&sb, widths, s.LeftT, s.Cross, s.RightT)
	for _, row := range body {
		b.row(&sb, row, widths, align)
	}
	b.rule(&sb, widths, s.BottomLeft, s.BottomT, s.BottomRight)

	return sb.String()
}

func (b *Box) rule(sb *strings.Builder, widths []int, left, mid, right string) {
	sb.WriteString(left)
	for i, w := range widths {
		sb.WriteString(strings.Repeat(b.Style.Horizontal, w+2))
		if i < len(widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}

func (b *Box) row(sb *strings.Builder, cells []string, widths []int, align func(int) Align) {
	sb.WriteString(b.Style.Vertical)
	for i, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(pad(cell, widths[i], align(i)))
		sb.WriteString(" ")
		sb.WriteString(b.Style.Vertical)
	}
	sb.WriteString("\n")
}

// cell flattens control whitespace and applies MaxWidth.
func (b *Box) cell(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	if b.MaxWidth > 3 && runewidth.StringWidth(s) > b.MaxWidth {
		s = runewidth.Truncate(s, b.MaxWidth, "...")
	}
	return s
}

func pad(s string, width int, align Align) string {
	if align == AlignRight {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}
