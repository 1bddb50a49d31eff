package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// tempPrefixes are the names our helpers create in the OS temp
// directory: fetched sources, decoded payloads and fitted images.
var tempPrefixes = []string{"printsrc-", "printjob-", "printfit-", "printagent-pages-"}

// CleanupTemps removes leftovers from crashed or interrupted jobs
// older than maxAge. Healthy jobs remove their own files; this sweep
// only catches what they left behind.
func CleanupTemps(maxAge time.Duration) {
	dir := os.TempDir()
	now := time.Now()
	removed := 0

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("temp sweep failed")
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !hasTempPrefix(name) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.RemoveAll(path); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("swept stale temp files")
	}
}

func hasTempPrefix(name string) bool {
	for _, p := range tempPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// StartCleanupLoop sweeps on an interval until stop is closed.
func StartCleanupLoop(interval, maxAge time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				CleanupTemps(maxAge)
			case <-stop:
				return
			}
		}
	}()
}
