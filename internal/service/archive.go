package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
)

// ArchiveThreshold is how long a link may go unopened before auto-archive
// moves it to the archive.
type ArchiveThreshold string

const (
	Threshold1Month  ArchiveThreshold = "1m"
	Threshold6Months ArchiveThreshold = "6m"
	Threshold1Year   ArchiveThreshold = "1y"
	Threshold5Years  ArchiveThreshold = "5y"
	Threshold10Years ArchiveThreshold = "10y"

	DefaultArchiveThreshold = Threshold6Months
)

const month = 30 * 24 * time.Hour

var thresholds = map[ArchiveThreshold]time.Duration{
	Threshold1Month:  month,
	Threshold6Months: 6 * month,
	Threshold1Year:   12 * month,
	Threshold5Years:  5 * 12 * month,
	Threshold10Years: 10 * 12 * month,
}

// ParseArchiveThreshold validates a threshold key.
func ParseArchiveThreshold(s string) (ArchiveThreshold, error) {
	if s == "" {
		return DefaultArchiveThreshold, nil
	}
	t := ArchiveThreshold(s)
	if _, ok := thresholds[t]; !ok {
		return "", fmt.Errorf("unknown archive threshold %q", s)
	}
	return t, nil
}

// Duration returns the age limit of t.
func (t ArchiveThreshold) Duration() time.Duration {
	if d, ok := thresholds[t]; ok {
		return d
	}
	return thresholds[DefaultArchiveThreshold]
}

// AutoArchive archives every active link last opened longer ago than t.
// Links that were never opened are left alone.
func (s *Service) AutoArchive(ctx context.Context, t ArchiveThreshold) model.BulkResult {
	cutoff := s.now().Add(-t.Duration())

	var res model.BulkResult
	for _, b := range s.repo.All() {
		if !b.IsLink() || b.Archived || b.Pending || b.LastClickDate == nil || !b.LastClickDate.Before(cutoff) {
			continue
		}
		b.Archived = true
		res.Record(s.repo.Update(ctx, b))
	}

	if res.Failed > 0 {
		s.reconcile(ctx, "auto-archive")
	}
	if res.Done > 0 {
		s.log.Info("links auto-archived", logger.Int("count", res.Done), logger.String("threshold", string(t)))
	}
	return res
}
