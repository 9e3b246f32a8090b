package formatter

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/storage-analysis/internal/search"
)

// MatchPrinter writes one line per search match.
type MatchPrinter struct {
	w io.Writer
}

// NewMatchPrinter creates a printer writing to w.
func NewMatchPrinter(w io.Writer) *MatchPrinter {
	return &MatchPrinter{w: w}
}

// Print writes m. It has the signature search.Engine.Run expects of its
// report callback.
func (p *MatchPrinter) Print(m search.Match) error {
	label := m.Category.Label()
	var err error
	switch m.Fields() {
	case search.Both:
		_, err = fmt.Fprintf(p.w, "KEY-VALUE MATCH '%s' %s => %s\n", label, hexutil.Encode(m.Key), hexutil.Encode(m.Value))
	case search.FieldKey:
		_, err = fmt.Fprintf(p.w, "KEY MATCH '%s' %s\n", label, hexutil.Encode(m.Key))
	case search.FieldValue:
		_, err = fmt.Fprintf(p.w, "VALUE MATCH '%s' %s => %s\n", label, hexutil.Encode(m.Key), hexutil.Encode(m.Value))
	}
	return err
}

// Summary writes the closing count line.
func (p *MatchPrinter) Summary(c search.Counters) error {
	_, err := fmt.Fprintf(p.w, "Matched %d times in %d entries\n", c.Matched, c.Scanned)
	return err
}
