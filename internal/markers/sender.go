package markers

import (
	"fmt"
	"io"
	"sync"

	"github.com/Veraticus/p300-cit/internal/common"
)

// Outlet delivers a formatted marker to the recording side.
type Outlet interface {
	Send(marker string) error
}

// WriterOutlet writes one marker per line.
type WriterOutlet struct {
	W io.Writer
}

// Send implements Outlet.
func (o WriterOutlet) Send(marker string) error {
	_, err := fmt.Fprintln(o.W, marker)
	return err
}

// Sender numbers markers and forwards them to an outlet. The number returned
// for each marker lets a behavioral log reference the event it belongs to.
type Sender struct {
	outlet Outlet
	mu     sync.Mutex
	count  int
}

// NewSender creates a sender for outlet.
func NewSender(outlet Outlet) *Sender {
	return &Sender{outlet: outlet}
}

// Send formats and forwards a marker, returning its sequence number. A failed
// delivery returns 0 and does not consume a number.
func (s *Sender) Send(name string, fields ...Field) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marker := Format(name, fields...)
	if err := s.outlet.Send(marker); err != nil {
		return 0, fmt.Errorf("failed to send marker %s: %w", name, err)
	}
	s.count++
	common.LogDebug("Sent marker", common.Fields{"marker": marker, "seq": s.count})
	return s.count, nil
}

// Count is the number of markers delivered.
func (s *Sender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
