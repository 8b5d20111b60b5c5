package detector

import (
	"fmt"

	"github.com/nao1215/picdedup/internal/config"
)

// New builds the detector described by spec. Parameters left at zero take
// their defaults.
func New(spec config.DetectorSpec, opts ...Option) (Detector, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %q detector: %w", spec.Kind, err)
	}

	switch spec.Kind {
	case config.KindHash:
		return NewHashDetector(spec.Precision, opts...), nil
	case config.KindORB:
		return NewORBDetector(spec.Features, spec.Threshold,
			append([]Option{WithMaxDistance(spec.MaxDistance)}, opts...)...), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDetector, spec.Kind)
	}
}

// NewChain builds one detector per spec, in order.
func NewChain(specs []config.DetectorSpec, opts ...Option) ([]Detector, error) {
	if len(specs) == 0 {
		return nil, config.ErrNoDetectors
	}
	chain := make([]Detector, 0, len(specs))
	for i, spec := range specs {
		d, err := New(spec, opts...)
		if err != nil {
			return nil, fmt.Errorf("detector %d: %w", i, err)
		}
		chain = append(chain, d)
	}
	return chain, nil
}
