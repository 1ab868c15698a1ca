package resnet

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/resnet/internal/tensor"
)

// LayerSummary describes one top-level layer of a network for a given input
// resolution.
type LayerSummary struct {
	Name       string
	Output     tensor.Shape // per-sample output shape, without the batch axis
	Parameters int
}

// Summary computes the per-sample output shape of every top-level layer for
// h x w inputs by shape arithmetic alone. An input too small to survive
// the downsampling is reported as an error.
func (n *Network[B]) Summary(h, w int) ([]LayerSummary, error) {
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("resnet: invalid input size %dx%d", h, w)
	}
	var rows []LayerSummary
	add := func(name string, c, h, w, params int) error {
		if h <= 0 || w <= 0 {
			return fmt.Errorf("resnet: input too small, %s output would be %dx%d", name, h, w)
		}
		rows = append(rows, LayerSummary{Name: name, Output: tensor.Shape{c, h, w}, Parameters: params})
		return nil
	}

	h, w = n.conv1.OutputSize(h, w)
	if err := add("conv1", n.conv1.OutChannels(), h, w, countParams(n.conv1.Parameters())+countParams(n.bn1.Parameters())); err != nil {
		return nil, err
	}
	h, w = n.maxpool.OutputSize(h, w)
	if err := add("maxpool", n.conv1.OutChannels(), h, w, 0); err != nil {
		return nil, err
	}
	for i, s := range n.stages {
		// Only the first block's 3x3 convolution (kernel 3, padding 1) strides.
		h, w = (h-1)/s.Stride()+1, (w-1)/s.Stride()+1
		if err := add(fmt.Sprintf("layer%d", i+1), s.OutChannels(), h, w, countParams(s.Parameters())); err != nil {
			return nil, err
		}
	}
	rows = append(rows,
		LayerSummary{Name: "avgpool", Output: tensor.Shape{n.fc.InFeatures(), 1, 1}},
		LayerSummary{Name: "fc", Output: tensor.Shape{n.fc.OutFeatures()}, Parameters: countParams(n.fc.Parameters())},
	)
	return rows, nil
}

// FormatSummary renders rows as an aligned table with a parameter total.
func FormatSummary(rows []LayerSummary) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "layer\toutput\tparams")
	total := 0
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\t%d\n", r.Name, r.Output, r.Parameters)
		total += r.Parameters
	}
	fmt.Fprintf(tw, "total\t\t%d\n", total)
	_ = tw.Flush()
	return sb.String()
}

func countParams[P interface{ NumElements() int }](params []P) int {
	total := 0
	for _, p := range params {
		total += p.NumElements()
	}
	return total
}
