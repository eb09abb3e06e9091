package render

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/ifarias/examsched/internal/model"
)

// Block is one reservation drawn on the day grid.
type Block struct {
	StartOrder int
	Length     int
	Label      string
	Status     model.StatusCode
}

// Layout constants.
const (
	imageWidth   = 900
	headerHeight = 70
	rowHeight    = 56
	labelsWidth  = 170
	paddingX     = 10
	blockRadius  = 6.0
)

// Color scheme per confirmation status.
var (
	bgColor       = color.RGBA{245, 246, 248, 255}
	headerColor   = color.RGBA{60, 64, 70, 255}
	gridLineColor = color.NRGBA{200, 200, 200, 255}
	labelColor    = color.RGBA{90, 95, 100, 255}
	freeCellColor = color.NRGBA{235, 240, 235, 255}
	blockText     = color.RGBA{25, 28, 32, 240}

	statusColors = map[model.StatusCode]color.NRGBA{
		model.StatusProgramado:       {255, 214, 120, 255},
		model.StatusConfirmado:       {133, 193, 85, 230},
		model.StatusRechazado:        {240, 128, 128, 230},
		model.StatusRequiereRevision: {150, 180, 245, 230},
	}
	blockDefaultColor = color.NRGBA{210, 210, 210, 255}
)

// DayGrid draws one room's day as a module-per-row grid with the occupied
// spans rendered as labeled blocks.
func DayGrid(date, roomName string, modules []model.Module, blocks []Block) ([]byte, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("no modules to render")
	}

	height := headerHeight + rowHeight*len(modules)
	dc := gg.NewContext(imageWidth, height)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(bgColor)
	dc.Clear()

	// header
	dc.SetColor(headerColor)
	dc.DrawStringAnchored(
		fmt.Sprintf("%s / %s", roomName, date),
		float64(imageWidth)/2, float64(headerHeight)/2, 0.5, 0.5,
	)

	rowY := func(order int) float64 {
		// orders are dense starting at 1
		return float64(headerHeight + (order-modules[0].Order)*rowHeight)
	}

	// module rows with time labels
	for _, m := range modules {
		y := rowY(m.Order)

		dc.SetColor(freeCellColor)
		dc.DrawRectangle(labelsWidth, y, imageWidth-labelsWidth-paddingX, rowHeight-2)
		dc.Fill()

		dc.SetColor(labelColor)
		dc.DrawStringAnchored(
			fmt.Sprintf("%d  %s-%s", m.Order, m.StartTime, m.EndTime),
			labelsWidth/2, y+rowHeight/2, 0.5, 0.5,
		)

		dc.SetColor(gridLineColor)
		dc.DrawLine(paddingX, y, imageWidth-paddingX, y)
		dc.Stroke()
	}

	// occupied spans
	for _, b := range blocks {
		if b.Length < 1 {
			continue
		}
		y := rowY(b.StartOrder)
		h := float64(b.Length*rowHeight) - 4

		fill, ok := statusColors[b.Status]
		if !ok {
			fill = blockDefaultColor
		}
		dc.SetColor(fill)
		dc.DrawRoundedRectangle(labelsWidth+4, y+2, imageWidth-labelsWidth-paddingX-8, h, blockRadius)
		dc.Fill()

		dc.SetColor(blockText)
		dc.DrawStringAnchored(
			fmt.Sprintf("%s (%s)", b.Label, b.Status),
			labelsWidth+4+(imageWidth-labelsWidth-paddingX-8)/2, y+2+h/2, 0.5, 0.5,
		)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode day grid: %w", err)
	}

	return buf.Bytes(), nil
}
