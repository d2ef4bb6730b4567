package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"trustframe/internal/workflow"
)

// progressReporter renders workflow progress as terminal bars, one per task.
type progressReporter struct {
	out  io.Writer
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{
		out:  out,
		bars: make(map[string]*progressbar.ProgressBar),
	}
}

func (p *progressReporter) Start(task string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bars[task]; ok {
		return
	}
	if total <= 0 {
		total = -1
	}
	p.bars[task] = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fmt.Sprintf("%-24s", progressLabel(task))),
		progressbar.OptionShowBytes(strings.HasPrefix(task, workflow.StageDigest)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressReporter) Update(task string, done int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bar, ok := p.bars[task]; ok {
		_ = bar.Set64(done)
	}
}

func (p *progressReporter) Finish(task string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bar, ok := p.bars[task]
	if !ok {
		return
	}
	_ = bar.Finish()
	delete(p.bars, task)
}

// close finishes any bars left open by a failed run.
func (p *progressReporter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for task, bar := range p.bars {
		_ = bar.Exit()
		delete(p.bars, task)
	}
}

func progressLabel(task string) string {
	stage, side, _ := strings.Cut(task, " ")
	label := map[string]string{
		workflow.StageDigest:      "Hashing",
		workflow.StageFingerprint: "Fingerprinting",
		workflow.StageAlign:       "Aligning sequences",
	}[stage]
	if label == "" {
		label = stage
	}
	if side != "" {
		label += " " + side
	}
	return label
}
