package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/storage-analysis/internal/statistics"
)

// TreeFormatter prints a network, its categories and their items as a tree.
type TreeFormatter struct {
	// Verbose appends key, value and compressed sizes to every node.
	Verbose bool
	// Focus restricts the output to one category, compared case-insensitively.
	Focus string

	enumStyle lipgloss.Style
}

// NewTreeFormatter creates a tree formatter.
func NewTreeFormatter(verbose bool, focus string) *TreeFormatter {
	return &TreeFormatter{
		Verbose:   verbose,
		Focus:     focus,
		enumStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1),
	}
}

// Render returns the tree for result. Network totals always cover every
// category, even when Focus hides some of them.
func (f *TreeFormatter) Render(network string, result statistics.Result) string {
	totals := result.Totals()
	root := tree.Root(fmt.Sprintf("%s %s%s", FormatBytes(totals.Size, true), network, f.totalsSuffix(totals))).
		EnumeratorStyle(f.enumStyle)

	for _, cat := range result.Sorted() {
		if f.Focus != "" && !strings.EqualFold(f.Focus, cat.Name) {
			continue
		}
		node := tree.Root(fmt.Sprintf("%s %s%s", FormatBytes(cat.RawSize, true), DisplayName(cat.Name), f.totalsSuffix(cat.Totals())))
		for _, item := range cat.SortedItems() {
			node.Child(fmt.Sprintf("%s %s%s", FormatBytes(item.Size(), true), DisplayName(item.Name), f.itemSuffix(item)))
		}
		root.Child(node)
	}
	return root.String()
}

// Format writes the tree followed by a newline.
func (f *TreeFormatter) Format(w io.Writer, network string, result statistics.Result) error {
	_, err := fmt.Fprintln(w, f.Render(network, result))
	return err
}

func (f *TreeFormatter) totalsSuffix(t statistics.Totals) string {
	if !f.Verbose {
		return ""
	}
	return fmt.Sprintf(" (%d keys, key: %s, value: %s, compressed: %s)",
		t.NumKeys, FormatBytes(t.KeySize, false), FormatBytes(t.ValueSize, false), FormatBytes(t.CompressedSize, false))
}

func (f *TreeFormatter) itemSuffix(it *statistics.ItemStat) string {
	if !f.Verbose {
		return ""
	}
	return fmt.Sprintf(" (%d keys, key: %s, compressed_key: %s, value: %s, compressed_value: %s)",
		it.NumEntries,
		FormatBytes(it.KeyLen, false), FormatBytes(it.CompressedKeyLen, false),
		FormatBytes(it.ValueLen, false), FormatBytes(it.CompressedValueLen, false))
}
