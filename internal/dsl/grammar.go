// Package dsl parses room constraint sentences such as
//
//	room kitchen is to the left of room living
//	room bath has area of at least 6
//	top of room kitchen aligns horizontally with top of room living
//
// into relations and room bound edits. Keywords are case-insensitive and
// "box" is accepted for "room". Sentences are separated by newlines or ';'.
package dsl

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][-+]?\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
		{Name: "Symbol", Pattern: `[(),=;\-]`},
	})

	scriptParser = participle.MustBuild[Script](
		participle.Lexer(ruleLexer),
		participle.Elide("Whitespace", "LineComment", "HashComment"),
		participle.CaseInsensitive("Ident"),
		participle.UseLookahead(2),
	)
)

// Script is a list of sentences.
type Script struct {
	Sentences []*Sentence `parser:"Newline* ( @@ ( ';' | Newline )* )*"`
}

// Sentence is one constraint.
type Sentence struct {
	Pos   lexer.Position `parser:""`
	Align *Alignment     `parser:"  @@"`
	About *RoomSentence  `parser:"| @@"`
}

// RoomRef names a room: room kitchen, room "Living Room", box 0.
type RoomRef struct {
	ID Name `parser:"('room' | 'box') @(Ident | String | Number)"`
}

// Name unquotes quoted identifiers on capture.
type Name string

// Capture implements participle.Capture.
func (n *Name) Capture(values []string) error {
	v := values[0]
	if len(v) > 1 && v[0] == '"' {
		u, err := strconv.Unquote(v)
		if err != nil {
			return err
		}
		v = u
	}
	*n = Name(v)
	return nil
}

// Alignment: <anchor> of room A aligns horizontally|vertically with
// <anchor> of room B.
type Alignment struct {
	Anchor      string  `parser:"@('top' | 'center' | 'middle' | 'bottom' | 'left' | 'right') 'of'"`
	Room        RoomRef `parser:"@@ 'aligns'"`
	Direction   string  `parser:"@('horizontally' | 'vertically') 'with'"`
	OtherAnchor string  `parser:"@('top' | 'center' | 'middle' | 'bottom' | 'left' | 'right') 'of'"`
	Other       RoomRef `parser:"@@"`
}

// RoomSentence starts with the room it constrains.
type RoomSentence struct {
	Room     RoomRef         `parser:"@@"`
	Pair     *PairClause     `parser:"(  'and' @@"`
	Has      *HasClause      `parser:" | 'has' @@"`
	Is       *IsClause       `parser:" | 'is' @@"`
	Contains *ContainsClause `parser:" | 'contains' @@ )"`
}

// PairClause: and room B are aligned at the top | are symmetric about x = 5.
type PairClause struct {
	Other     RoomRef   `parser:"@@ 'are'"`
	Aligned   *string   `parser:"(  'aligned' 'at' 'the' @('top' | 'center' | 'middle' | 'bottom' | 'left' | 'right')"`
	Symmetric *Symmetry `parser:" | 'symmetric' @@ )"`
}

// Symmetry: about x = 5, or through axis y = 2.
type Symmetry struct {
	Axis  string  `parser:"( 'about' | 'through' 'axis' ) @('x' | 'y') '='"`
	Value float64 `parser:"@Number"`
}

// HasClause sets a room bound.
type HasClause struct {
	Width  *float64     `parser:"  'width' 'of' @Number"`
	Height *float64     `parser:"| 'height' 'of' @Number"`
	Area   *float64     `parser:"| 'area' 'of' 'at' 'least' @Number"`
	Aspect *AspectBound `parser:"| 'aspect' 'ratio' 'of' @@"`
}

// AspectBound: at least 0.5, at most 2.
type AspectBound struct {
	Bound string  `parser:"'at' @('least' | 'most')"`
	Value float64 `parser:"@Number"`
}

// IsClause relates the room to another one.
type IsClause struct {
	Position *Position `parser:"  @@"`
	Similar  *Similar  `parser:"| @@"`
	Adjacent *Adjacent `parser:"| @@"`
	Scaled   *Scaled   `parser:"| @@"`
}

// Position: left of room B, below room B, to the bottom of room B.
type Position struct {
	Side  string  `parser:"( 'to' 'the' )? @('left' | 'bottom' | 'below') 'of'?"`
	Other RoomRef `parser:"@@"`
}

// Similar: similar to room B with scale 2.
type Similar struct {
	Other RoomRef `parser:"'similar' 'to' @@"`
	Scale float64 `parser:"'with' 'scale' @Number"`
}

// Scaled: 2-scaled translate of room B.
type Scaled struct {
	Scale float64 `parser:"@Number '-' 'scaled' 'translate' 'of'"`
	Other RoomRef `parser:"@@"`
}

// Adjacent: adjacent to room B, optionally with weight 2.
type Adjacent struct {
	Other  RoomRef  `parser:"'adjacent' 'to' @@"`
	Weight *float64 `parser:"( 'with' 'weight' @Number )?"`
}

// ContainsClause: contains point (3, 4), contains a point (3,4).
type ContainsClause struct {
	X float64 `parser:"'a'? 'point' '(' @Number ','"`
	Y float64 `parser:"@Number ')'"`
}

// ParseScript parses sentences separated by newlines or ';'.
func ParseScript(input string) (*Script, error) {
	return scriptParser.ParseString("", input)
}
