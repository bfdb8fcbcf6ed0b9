package testutil

import (
	"testing"

	"shopkeep-go/internal/archive"
	"shopkeep-go/internal/sk"
	"shopkeep-go/internal/staging"
)

// NewTestStagingArea creates a staging area rooted in a per-test temp dir.
func NewTestStagingArea(t *testing.T) *staging.Area {
	t.Helper()
	area, err := staging.NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create staging area: %v", err)
	}
	return area
}

// NewTestArchiver returns the zip codec used in production.
func NewTestArchiver() sk.Archiver {
	return archive.NewZipCodec(nil)
}

// PanickingArchiver panics on every call.
type PanickingArchiver struct{}

func (PanickingArchiver) Pack([]string, string) error { panic("pack exploded") }
func (PanickingArchiver) Unpack(string, string) error { panic("unpack exploded") }
