package profiler

import (
	"log"
	"time"

	"github.com/D13ya/devtimer/pkg/timer"
)

// Section is a named host-clock measurement for instrumentation.
type Section struct {
	name string
	t    *timer.Timer
}

// Start begins timing the named section.
func Start(name string) *Section {
	t := timer.NewHost()
	t.Start()
	return &Section{name: name, t: t}
}

// Elapsed stops the section and returns its duration.
func (s *Section) Elapsed() time.Duration {
	return time.Duration(s.t.MicroSeconds() * float64(time.Microsecond))
}

// Stop stops the section and logs its duration in milliseconds.
func (s *Section) Stop(l *log.Logger) time.Duration {
	d := s.Elapsed()
	l.Printf("%s took %.3f ms", s.name, s.t.MilliSeconds())
	return d
}
