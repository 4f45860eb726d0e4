package main

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"direct2url/internal/batch"
)

// progressPrinter writes one line per status change and per quarter of
// upload progress.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	seen map[string]batch.Item
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, seen: make(map[string]batch.Item)}
}

func (p *progressPrinter) observe(s batch.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, it := range s.Items {
		prev, ok := p.seen[it.ID]
		p.seen[it.ID] = it
		if ok && prev.Status == it.Status && prev.Progress/25 == it.Progress/25 {
			continue
		}
		if !ok && it.Status == batch.StatusPending {
			continue
		}
		fmt.Fprintf(p.out, "[%d/%d] %-9s %3d%% %s%s\n", i+1, len(s.Items), it.Status, it.Progress, label(it), suffix(it))
	}
}

func label(it batch.Item) string {
	if it.FileName != "" {
		return it.FileName
	}
	return it.URL
}

func suffix(it batch.Item) string {
	if it.Error != "" {
		return ": " + it.Error
	}
	return ""
}

func printSummary(out io.Writer, s batch.Snapshot) {
	ok, failed := s.Counts()
	fmt.Fprintf(out, "\n%d uploaded, %d failed, overall %.0f%%\n", ok, failed, s.Progress)
	for _, it := range s.Items {
		if it.Status == batch.StatusError {
			fmt.Fprintf(out, "  ✗ %s: %s\n", it.URL, it.Error)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
