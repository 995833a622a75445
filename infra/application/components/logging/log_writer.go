package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// intervalRotatingWriter 按固定时间间隔轮转日志文件.
// 文件名: <base>.log.YYYYMMDD (间隔 >= 24h) 或 <base>.log.YYYYMMDDHHmmss.
type intervalRotatingWriter struct {
	mu       sync.Mutex
	dir      string
	base     string
	cfg      *RotateConfig
	file     *os.File
	openedAt time.Time
	now      func() time.Time
}

func newIntervalRotatingWriter(dir, base string, rc *RotateConfig) (*intervalRotatingWriter, error) {
	if rc == nil || rc.RotateInterval <= 0 {
		return nil, fmt.Errorf("invalid rotate interval")
	}
	w := &intervalRotatingWriter{dir: dir, base: base, cfg: rc, now: time.Now}
	if err := w.rotateLocked(w.now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *intervalRotatingWriter) layout() string {
	if w.cfg.RotateInterval >= 24*time.Hour {
		return "20060102"
	}
	return "20060102150405"
}

func (w *intervalRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if now := w.now(); now.Sub(w.openedAt) >= w.cfg.RotateInterval {
		if err := w.rotateLocked(now); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *intervalRotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *intervalRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *intervalRotatingWriter) rotateLocked(now time.Time) error {
	if w.file != nil {
		_ = w.file.Sync()
		_ = w.file.Close()
	}
	name := filepath.Join(w.dir, fmt.Sprintf("%s.log.%s", w.base, now.Format(w.layout())))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open rotated log file: %w", err)
	}
	w.file, w.openedAt = f, now
	if w.cfg.CleanupEnabled && w.cfg.MaxAge > 0 {
		w.cleanupLocked(now.Add(-w.cfg.MaxAge))
	}
	return nil
}

// cleanupLocked 删除时间戳早于 cutoff 的轮转文件
func (w *intervalRotatingWriter) cleanupLocked(cutoff time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	prefix := w.base + ".log."
	for _, e := range entries {
		stamp, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		var layout string
		switch len(stamp) {
		case 8:
			layout = "20060102"
		case 14:
			layout = "20060102150405"
		default:
			continue
		}
		ts, err := time.ParseInLocation(layout, stamp, time.Local)
		if err == nil && ts.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, e.Name()))
		}
	}
}
