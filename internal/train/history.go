package train

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// EpochStats are the figures reported after one epoch.
type EpochStats struct {
	Epoch     int
	LR        float32
	TrainLoss float64
	ValidLoss float64
	TrainF1   float64
	ValidF1   float64
	Elapsed   time.Duration
}

// History records every completed epoch of a run.
type History struct {
	Epochs []EpochStats
}

// Last returns the most recent epoch, or false if none completed.
func (h *History) Last() (EpochStats, bool) {
	if len(h.Epochs) == 0 {
		return EpochStats{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// String renders the history as a table.
func (h *History) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s %10s %10s %10s %8s %8s %10s\n", "epoch", "lr", "train", "valid", "f1", "vf1", "time")
	for _, e := range h.Epochs {
		fmt.Fprintf(&sb, "%5d %10.4g %10.4f %10.4f %8.4f %8.4f %10s\n",
			e.Epoch, e.LR, e.TrainLoss, e.ValidLoss, e.TrainF1, e.ValidF1, e.Elapsed.Round(time.Millisecond))
	}
	return sb.String()
}

func (h *History) series(value func(EpochStats) float64) plotter.XYs {
	pts := make(plotter.XYs, len(h.Epochs))
	for i, e := range h.Epochs {
		pts[i].X = float64(e.Epoch)
		pts[i].Y = value(e)
	}
	return pts
}

func newPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// Plots returns the loss and F1 curves.
func (h *History) Plots() (loss, f1 *plot.Plot, err error) {
	loss = newPlot("Loss", "cross-entropy")
	err = plotutil.AddLinePoints(loss,
		"train", h.series(func(e EpochStats) float64 { return e.TrainLoss }),
		"valid", h.series(func(e EpochStats) float64 { return e.ValidLoss }))
	if err != nil {
		return nil, nil, errors.Wrap(err, "loss plot")
	}

	f1 = newPlot("F1 score", "F1")
	f1.Y.Min, f1.Y.Max = 0, 1
	err = plotutil.AddLinePoints(f1,
		"train", h.series(func(e EpochStats) float64 { return e.TrainF1 }),
		"valid", h.series(func(e EpochStats) float64 { return e.ValidF1 }))
	if err != nil {
		return nil, nil, errors.Wrap(err, "f1 plot")
	}
	return loss, f1, nil
}

// SavePlot draws the loss and F1 curves side by side into an image file.
// The format follows the extension: .png, .jpg or .tif.
func (h *History) SavePlot(path string) error {
	if len(h.Epochs) == 0 {
		return errors.New("no epochs to plot")
	}
	loss, f1, err := h.Plots()
	if err != nil {
		return err
	}

	const width, height = 12 * vg.Inch, 4 * vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter * 4, PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2}
	plots := [][]*plot.Plot{{loss, f1}}
	canvases := plot.Align(plots, tiles, dc)
	for j, p := range plots[0] {
		p.Draw(canvases[0][j])
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff":
	default:
		return errors.Errorf("unsupported plot format %q", format)
	}
	return errors.Wrap(saveCanvas(img, format, path), "saving plot")
}

func saveCanvas(img *vgimg.Canvas, format, path string) error {
	var w io.WriterTo
	switch format {
	case "png":
		w = vgimg.PngCanvas{Canvas: img}
	case "jpg", "jpeg":
		w = vgimg.JpegCanvas{Canvas: img}
	default:
		w = vgimg.TiffCanvas{Canvas: img}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
