package resnet

// Stage strides of the four stages. The first stage keeps the resolution
// left by the stem; each later one halves it.
var stageStrides = [4]int{1, 2, 2, 2}

// DefaultWidths are the stage widths of every standard ResNet.
var DefaultWidths = [4]int{64, 128, 256, 512}

// DefaultStemChannels is the output channel count of the 7x7 stem.
const DefaultStemChannels = 64

// Config describes a residual network.
type Config struct {
	// InChannels is the channel count of input images (3 for RGB).
	InChannels int `json:"in_channels" yaml:"in_channels"`
	// NumClasses is the width of the output score vector.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// Blocks holds the number of blocks in each of the four stages.
	Blocks []int `json:"blocks" yaml:"blocks"`
	// Variant selects basic or deep (bottleneck) blocks.
	Variant Variant `json:"variant" yaml:"variant"`

	// StageInChannels optionally pins the channel count entering each
	// stage. Each entry must equal what the previous stage produces (the
	// stem output for the first stage). Empty means derived.
	StageInChannels []int `json:"stage_in_channels,omitempty" yaml:"stage_in_channels,omitempty"`
	// Widths overrides DefaultWidths.
	Widths []int `json:"widths,omitempty" yaml:"widths,omitempty"`
	// StemChannels overrides DefaultStemChannels when positive.
	StemChannels int `json:"stem_channels,omitempty" yaml:"stem_channels,omitempty"`
}

// plan is a validated Config with every default filled in.
type plan struct {
	blocks     [4]int
	widths     [4]int
	stageIn    [4]int
	stem       int
	classifier int
}

// Validate checks cfg without building anything.
func (cfg Config) Validate() error {
	_, err := cfg.plan()
	return err
}

// ClassifierInFeatures is the input width of the final linear layer: the
// last stage width times the variant's expansion.
func (cfg Config) ClassifierInFeatures() int {
	widths := DefaultWidths
	if len(cfg.Widths) == 4 {
		copy(widths[:], cfg.Widths)
	}
	return widths[3] * cfg.Variant.Expansion()
}

func (cfg Config) plan() (plan, error) {
	var p plan
	switch {
	case cfg.InChannels <= 0:
		return p, configErr("in_channels", "must be positive, got %d", cfg.InChannels)
	case cfg.NumClasses <= 0:
		return p, configErr("num_classes", "must be positive, got %d", cfg.NumClasses)
	case !cfg.Variant.Valid():
		return p, configErr("variant", "unknown variant %d", int(cfg.Variant))
	case len(cfg.Blocks) != 4:
		return p, configErr("blocks", "need exactly 4 stage counts, got %d", len(cfg.Blocks))
	case cfg.StemChannels < 0:
		return p, configErr("stem_channels", "must not be negative, got %d", cfg.StemChannels)
	}
	for i, n := range cfg.Blocks {
		if n < 1 {
			return p, configErr("blocks", "stage %d has %d blocks, need at least 1", i+1, n)
		}
		p.blocks[i] = n
	}

	p.widths = DefaultWidths
	if cfg.Widths != nil {
		if len(cfg.Widths) != 4 {
			return p, configErr("widths", "need exactly 4 widths, got %d", len(cfg.Widths))
		}
		for i, w := range cfg.Widths {
			if w <= 0 {
				return p, configErr("widths", "stage %d width must be positive, got %d", i+1, w)
			}
			p.widths[i] = w
		}
	}

	p.stem = DefaultStemChannels
	if cfg.StemChannels > 0 {
		p.stem = cfg.StemChannels
	}

	if cfg.StageInChannels != nil && len(cfg.StageInChannels) != 4 {
		return p, configErr("stage_in_channels", "need exactly 4 entries, got %d", len(cfg.StageInChannels))
	}
	ch := p.stem
	for i := range p.stageIn {
		if cfg.StageInChannels != nil && cfg.StageInChannels[i] != ch {
			return p, configErr("stage_in_channels",
				"stage %d receives %d channels, but %d were supplied", i+1, ch, cfg.StageInChannels[i])
		}
		p.stageIn[i] = ch
		ch = p.widths[i] * cfg.Variant.Expansion()
	}
	p.classifier = ch
	return p, nil
}
