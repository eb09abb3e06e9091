package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/render"
)

// Renders a sample day grid to day.png for eyeballing layout changes
// without a database.
func main() {
	now := time.Now()
	date := now.Format("2006-01-02")

	modules := make([]model.Module, 0, 8)
	for i := 0; i < 8; i++ {
		start := 8*60 + i*45
		end := start + 45
		modules = append(modules, model.Module{
			ID:        int64(i + 1),
			Order:     i + 1,
			StartTime: fmt.Sprintf("%02d:%02d", start/60, start%60),
			EndTime:   fmt.Sprintf("%02d:%02d", end/60, end%60),
		})
	}

	blocks := []render.Block{
		{StartOrder: 1, Length: 3, Label: "Cálculo I sec. 01", Status: model.StatusConfirmado},
		{StartOrder: 4, Length: 2, Label: "Física II sec. 03", Status: model.StatusProgramado},
		{StartOrder: 7, Length: 2, Label: "Química sec. 02", Status: model.StatusRequiereRevision},
	}

	png, err := render.DayGrid(date, "Sala 301", modules, blocks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("day.png", png, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("wrote day.png")
}
