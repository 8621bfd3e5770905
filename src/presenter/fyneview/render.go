package fyneview

import (
	"image"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"floating-dictionary/src/presenter"
)

const (
	headingScale = 1.6
	sectionScale = 1.2
)

// render builds the widgets for blocks and measures the size the window
// needs to show them without wrapping.
func render(blocks []presenter.Block) (fyne.CanvasObject, image.Point) {
	box := container.NewVBox()
	pad := theme.Padding()
	base := theme.TextSize()

	var width, height float32
	measure := func(text string, size float32, style fyne.TextStyle) {
		s := fyne.MeasureText(text, size, style)
		width = max(width, s.Width)
		height += s.Height + pad*2
	}

	for _, b := range blocks {
		switch b.Kind {
		case presenter.Heading:
			style := fyne.TextStyle{Bold: true}
			txt := widget.NewRichText(&widget.TextSegment{
				Text:  b.Text,
				Style: widget.RichTextStyle{SizeName: theme.SizeNameHeadingText, TextStyle: style},
			})
			txt.Wrapping = fyne.TextWrapWord
			box.Add(txt)
			box.Add(widget.NewSeparator())
			measure(b.Text, base*headingScale, style)
		case presenter.Section:
			style := fyne.TextStyle{Bold: true, Underline: true}
			box.Add(widget.NewLabelWithStyle(b.Text, fyne.TextAlignLeading, style))
			measure(b.Text, base*sectionScale, style)
		case presenter.Bullet:
			label := widget.NewLabel("• " + b.Text)
			label.Wrapping = fyne.TextWrapWord
			box.Add(label)
			measure("• "+b.Text, base, fyne.TextStyle{})
		case presenter.Sense:
			detail := widget.NewLabelWithStyle(b.Detail, fyne.TextAlignLeading, fyne.TextStyle{Italic: true})
			label := widget.NewLabel("• " + b.Text)
			label.Wrapping = fyne.TextWrapWord
			box.Add(container.NewBorder(nil, nil, nil, detail, label))
			measure("• "+b.Text+"  "+b.Detail, base, fyne.TextStyle{})
		case presenter.ExampleLine:
			label := widget.NewLabelWithStyle(b.Text, fyne.TextAlignLeading, fyne.TextStyle{Italic: true})
			label.Wrapping = fyne.TextWrapWord
			box.Add(label)
			measure(b.Text, base, fyne.TextStyle{Italic: true})
		}
	}

	natural := image.Pt(
		int(math.Ceil(float64(width+pad*6))),
		int(math.Ceil(float64(height+pad*4))),
	)
	return box, natural
}
