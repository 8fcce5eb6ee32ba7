// Package pdf renders a conversation transcript as a PDF document.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mindmate/server/internal/model"
)

// Transcript is everything needed to render one conversation.
type Transcript struct {
	Title     string
	CreatedAt time.Time
	Lines     []model.ChatLine
	// Location controls how timestamps are printed. Nil means UTC.
	Location *time.Location
	// FontPath is a UTF-8 TrueType font for the text. Without one the core
	// Helvetica font is used, which only covers cp1252: other scripts and
	// emoji do not survive.
	FontPath string
}

const (
	coreFont   = "Helvetica"
	customFont = "body"
	lineHeight = 5.5
	bubbleGap  = 3.0
)

// Bubble colours, as RGB.
var (
	background    = [3]int{229, 221, 213}
	userBubble    = [3]int{220, 248, 198}
	mindmateBlock = [3]int{255, 255, 255}
)

// SenderLabel is the name printed above a message.
func SenderLabel(s model.Sender) string {
	if s == model.SenderAssistant {
		return "MindMate"
	}
	return "You"
}

// Render writes the transcript to w.
func Render(w io.Writer, t Transcript) error {
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(t.Title, true)
	doc.SetCreator("MindMate", true)
	fontFamily := coreFont
	tr := doc.UnicodeTranslatorFromDescriptor("")
	if t.FontPath != "" {
		doc.AddUTF8Font(customFont, "", t.FontPath)
		doc.AddUTF8Font(customFont, "B", t.FontPath)
		fontFamily = customFont
		tr = func(s string) string { return s }
	}

	pageW, pageH := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	contentW := pageW - left - right
	bubbleW := contentW * 0.7

	doc.SetHeaderFunc(func() {
		doc.SetFillColor(background[0], background[1], background[2])
		doc.Rect(0, 0, pageW, pageH, "F")
	})
	doc.AddPage()

	doc.SetFont(fontFamily, "B", 16)
	doc.SetTextColor(51, 51, 51)
	doc.CellFormat(contentW, 10, tr(t.Title), "", 1, "C", false, 0, "")
	doc.SetFont(fontFamily, "", 9)
	doc.SetTextColor(102, 102, 102)
	doc.CellFormat(contentW, 6, t.CreatedAt.In(loc).Format("02 January 2006"), "", 1, "C", false, 0, "")
	doc.Ln(4)

	for _, line := range t.Lines {
		x := left
		fill := mindmateBlock
		if line.Sender == model.SenderUser {
			x = left + contentW - bubbleW
			fill = userBubble
		}
		doc.SetFillColor(fill[0], fill[1], fill[2])

		doc.SetX(x)
		doc.SetFont(fontFamily, "B", 9)
		doc.SetTextColor(17, 17, 17)
		label := fmt.Sprintf("%s  %s", SenderLabel(line.Sender), line.CreatedAt.In(loc).Format("03:04 PM"))
		doc.CellFormat(bubbleW, lineHeight, label, "", 1, "L", true, 0, "")

		doc.SetX(x)
		doc.SetFont(fontFamily, "", 10)
		doc.MultiCell(bubbleW, lineHeight, tr(line.Text), "", "L", true)
		doc.Ln(bubbleGap)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
