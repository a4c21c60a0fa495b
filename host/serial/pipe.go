package serial

import (
	"io"
)

// PipePort is one end of an in-memory duplex link. It satisfies Port
// so the frame codec and host tools can be exercised without a real
// device attached.
type PipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewPipe returns two connected ports. Writes on one side become
// reads on the other.
func NewPipe() (*PipePort, *PipePort) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	return &PipePort{r: ar, w: bw}, &PipePort{r: br, w: aw}
}

func (p *PipePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *PipePort) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// Close shuts down both directions. A blocked Read on the peer
// returns io.EOF.
func (p *PipePort) Close() error {
	p.w.Close()
	return p.r.Close()
}

// Flush is a no-op; pipe writes are never buffered.
func (p *PipePort) Flush() error {
	return nil
}
