package workload

import (
	"bufio"
	"fmt"
	"io"
)

// Loop prints a counter line by line, the classic console-bound workload.
type Loop struct {
	out   io.Writer
	count int
}

func NewLoop(cfg Config) *Loop {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	count := cfg.LoopCount
	if count <= 0 {
		count = DefaultConfig().LoopCount
	}
	return &Loop{out: out, count: count}
}

func (l *Loop) Name() string { return "loop" }

func (l *Loop) Run() error {
	w := bufio.NewWriter(l.out)
	for i := 0; i < l.count; i++ {
		if _, err := fmt.Fprintln(w, i); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (l *Loop) Close() error { return nil }
