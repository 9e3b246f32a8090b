// Package formatter renders scan results for terminals and files.
package formatter

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/storage-analysis/internal/statistics"
)

// byteColumn is the width sizes are padded to in tree output.
const byteColumn = 7

var unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

// FormatBytes renders n with SI units. pad right-aligns the result so the
// names that follow line up.
func FormatBytes(n uint64, pad bool) string {
	s := humanize.Bytes(n)
	if pad {
		return fmt.Sprintf("%*s", byteColumn, s)
	}
	return s
}

// DisplayName returns name, highlighted when it is the unknown bucket.
// Identities stay plain; only rendered output is styled.
func DisplayName(name string) string {
	if name == statistics.UnknownName {
		return unknownStyle.Render(name)
	}
	return name
}
