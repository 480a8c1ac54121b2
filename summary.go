package treescan

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jward/treescan/internal/runtime"
)

// Summary counts what a scan did.
type Summary struct {
	Files      int // regular files seen
	Analyzed   int
	Skipped    int // unknown extension or filtered language
	Failed     int
	Bytes      int64
	ByLanguage map[runtime.Language]int
	Elapsed    time.Duration
}

func newSummary() *Summary {
	return &Summary{ByLanguage: make(map[runtime.Language]int)}
}

// Table renders the per-language breakdown. Languages are listed in
// registry order; languages with no files are omitted.
func (s *Summary) Table(langs []runtime.Language) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Language", "Files"})
	for _, lang := range langs {
		if n := s.ByLanguage[lang]; n > 0 {
			tbl.AppendRow(table.Row{lang.String(), n})
		}
	}
	tbl.AppendFooter(table.Row{"Total", s.Analyzed})
	return tbl.Render()
}

// Print writes the language table followed by one line of totals.
func (s *Summary) Print(w io.Writer, langs []runtime.Language) error {
	_, err := fmt.Fprintf(w, "%s\n%d seen, %d analyzed, %d skipped, %d failed, %s read\n",
		s.Table(langs), s.Files, s.Analyzed, s.Skipped, s.Failed,
		humanize.Bytes(uint64(s.Bytes)))
	return err
}
