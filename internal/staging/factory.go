package staging

import (
	"fmt"
	"os"

	"shopkeep-go/internal/config"
)

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
func NewStagingAreaFromConfig(cfg config.StagingConfig) (*Area, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem staging area requires dir to be set")
		}
		return NewArea(cfg.Dir)
	case "temp":
		dir, err := os.MkdirTemp("", "shopkeep-staging-*")
		if err != nil {
			return nil, fmt.Errorf("creating temp staging directory: %w", err)
		}
		return NewArea(dir)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}
