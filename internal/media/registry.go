package media

import "fmt"

// NewProber creates a prober based on the specified variant
func NewProber(variant string) (Prober, error) {
	switch variant {
	case "ffprobe", "":
		return &FFprobe{}, nil
	case "none":
		// Every clip is treated as instantly finished
		return Fixed(0), nil
	default:
		return nil, fmt.Errorf("unknown prober variant: %s", variant)
	}
}
