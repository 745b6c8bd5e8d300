package scheduler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/pipeline"
)

// BuildFunc rebuilds a pipeline from the artifacts currently on disk.
type BuildFunc func() (*pipeline.Pipeline, error)

// Reloader periodically fingerprints the artifact files and swaps a rebuilt
// pipeline into the registry when they change on disk.
type Reloader struct {
	scheduler *gocron.Scheduler
	registry  *pipeline.Registry
	build     BuildFunc

	modelsDir string
	paths     []string // scaler, feature names, lookups
	interval  time.Duration

	lastStamp string
}

// New creates a Reloader watching modelsDir (for best_model_*.json) plus the
// given fixed artifact paths.
func New(registry *pipeline.Registry, build BuildFunc, modelsDir string, paths []string, interval time.Duration) *Reloader {
	return &Reloader{
		scheduler: gocron.NewScheduler(time.UTC),
		registry:  registry,
		build:     build,
		modelsDir: modelsDir,
		paths:     paths,
		interval:  interval,
	}
}

// Start records the current artifact fingerprint and schedules the periodic
// check. A non-positive interval disables reloading.
func (r *Reloader) Start() error {
	if r.interval <= 0 {
		log.Println("reloader: disabled (no interval configured)")
		return nil
	}

	r.lastStamp = r.fingerprint()

	seconds := int(r.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := r.scheduler.Every(seconds).Seconds().Do(r.checkAndReload)
	if err != nil {
		return fmt.Errorf("reloader: schedule job: %w", err)
	}

	r.scheduler.StartAsync()
	log.Printf("reloader: watching artifacts every %s", r.interval)
	return nil
}

// Stop stops the underlying scheduler.
func (r *Reloader) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Reloader) checkAndReload() {
	stamp := r.fingerprint()
	if stamp == r.lastStamp {
		return
	}

	log.Println("reloader: artifact change detected, rebuilding pipeline")

	p, err := r.build()
	if err != nil {
		// Keep serving with the last good pipeline.
		log.Printf("reloader: rebuild failed, keeping current pipeline: %v", err)
		return
	}

	r.registry.Swap(p)
	r.lastStamp = stamp
	log.Println("reloader: pipeline swapped")
}

// fingerprint summarizes mtime and size of every watched artifact file.
func (r *Reloader) fingerprint() string {
	var files []string
	if matches, err := filepath.Glob(filepath.Join(r.modelsDir, "best_model_*.json")); err == nil {
		files = append(files, matches...)
	}
	files = append(files, r.paths...)
	sort.Strings(files)

	var b strings.Builder
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			fmt.Fprintf(&b, "%s:absent;", f)
			continue
		}
		fmt.Fprintf(&b, "%s:%d:%d;", f, info.ModTime().UnixNano(), info.Size())
	}
	return b.String()
}
