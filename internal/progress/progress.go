// Package progress decorates byte streams with upload progress reporting.
package progress

import "io"

// Reporter receives the cumulative byte count while a stream is consumed.
// *progressbar.ProgressBar satisfies it directly.
type Reporter interface {
	Set64(n int64) error
	Finish() error
}

// Discard is a Reporter that drops all updates.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Set64(int64) error { return nil }
func (discard) Finish() error     { return nil }

// Reader forwards reads from the underlying stream and reports the cumulative
// count after each chunk. The count is monotone, clamped to the declared
// total, and Finish fires exactly once when the total is reached. Chunks flow
// through as they are read; nothing is buffered.
type Reader struct {
	r        io.Reader
	total    int64
	read     int64
	reporter Reporter
	finished bool
}

func NewReader(r io.Reader, total int64, reporter Reporter) *Reader {
	if reporter == nil {
		reporter = Discard
	}
	return &Reader{r: r, total: total, reporter: reporter}
}

// Count returns the cumulative number of bytes observed so far.
func (p *Reader) Count() int64 { return p.read }

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		next := p.read + int64(n)
		if next > p.total {
			next = p.total
		}
		p.read = next
		_ = p.reporter.Set64(p.read)
		if p.read >= p.total && !p.finished {
			p.finished = true
			_ = p.reporter.Finish()
		}
	}
	return n, err
}
