package diffjob

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"docchain/internal/model"
)

const contextLines = 3

// Unified returns the unified diff turning from into to, with headers "Version <n>".
// Identical contents produce an empty patch.
func Unified(from, to model.Version) (string, error) {
	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from.Content),
		B:        difflib.SplitLines(to.Content),
		FromFile: fmt.Sprintf("Version %d", from.VersionNumber),
		ToFile:   fmt.Sprintf("Version %d", to.VersionNumber),
		Context:  contextLines,
	})
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return patch, nil
}
