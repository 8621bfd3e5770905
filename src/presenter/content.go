package presenter

import (
	"fmt"
	"strings"

	"floating-dictionary/src/translate"
)

// MaxExamples caps the example sentence pairs shown.
const MaxExamples = 2

const noTextHeading = "No text recognized"

// Content is everything a result window displays.
type Content struct {
	SearchText  string
	SourceLang  string
	TargetLang  string
	Translation string
	Dictionary  *translate.DictionaryEntry
}

type BlockKind int

const (
	Heading BlockKind = iota
	Section
	Bullet
	Sense
	ExampleLine
)

// Block is one line of the rendered result.
type Block struct {
	Kind BlockKind
	Text string
	// Detail carries the secondary text of a Sense (part of speech).
	Detail string
}

// Blocks lays out c in display order.
func (c Content) Blocks() []Block {
	heading := c.SearchText
	if heading == "" {
		heading = noTextHeading
	}
	blocks := []Block{{Kind: Heading, Text: heading}}
	blocks = append(blocks,
		Block{Kind: Section, Text: fmt.Sprintf("Google (%s):", strings.ToUpper(c.TargetLang))},
		Block{Kind: Bullet, Text: c.Translation},
	)

	d := c.Dictionary
	if d.Empty() {
		return blocks
	}
	if len(d.Senses) > 0 {
		blocks = append(blocks, Block{Kind: Section, Text: "Longdo Dict:"})
		for _, s := range d.Senses {
			blocks = append(blocks, Block{
				Kind:   Sense,
				Text:   fmt.Sprintf("%s  %s (%s)", s.Word, s.Meaning, s.Dictionary),
				Detail: "[" + s.PartOfSpeech + "]",
			})
		}
	}
	if len(d.Examples) > 0 {
		blocks = append(blocks, Block{Kind: Section, Text: "Example Sentences (Longdo):"})
		src, dst := strings.ToUpper(c.SourceLang), strings.ToUpper(c.TargetLang)
		for i, ex := range d.Examples {
			if i == MaxExamples {
				break
			}
			blocks = append(blocks,
				Block{Kind: ExampleLine, Text: fmt.Sprintf("%s: %s", src, ex.Source)},
				Block{Kind: ExampleLine, Text: fmt.Sprintf("-> %s: %s", dst, ex.Target)},
			)
		}
	}
	return blocks
}

// PlainText is the copyable form of the result.
func (c Content) PlainText() string {
	var b strings.Builder
	for i, blk := range c.Blocks() {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch blk.Kind {
		case Bullet:
			b.WriteString("• " + blk.Text)
		case Sense:
			b.WriteString("• " + blk.Text + " " + blk.Detail)
		default:
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}
