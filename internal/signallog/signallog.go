// Package signallog appends every composer evaluation, HOLD included, to a
// daily JSONL file. HOLD results are not persisted to the signal store, so
// this log is the only place they remain visible for diagnostics.
package signallog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"signal-advisor/internal/types"
)

var mu sync.Mutex

func logDir() string {
	if v := os.Getenv("ADVISOR_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.In(time.FixedZone("IST", 19800)).Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".jsonl")
}

// Append writes one evaluation to today's decision log.
func Append(ev types.Evaluation) error {
	mu.Lock()
	defer mu.Unlock()

	p := dailyFilepath(time.Now())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, _ := json.Marshal(ev)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips decision logs older than retentionDays and removes the
// originals. A zero or negative retention disables compression.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e := os.Stat(gz); e == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e := os.Open(p)
		if e != nil {
			return nil
		}
		defer in.Close()

		out, e := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e := io.Copy(gw, in); e == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
