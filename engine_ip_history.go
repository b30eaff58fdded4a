package authd

import (
	"context"
	"strconv"
	"time"
)

// TrackIP records ip as the most recent address of userID. Blank addresses
// are ignored. Concurrent calls for the same user are last-write-wins.
func (e *Engine) TrackIP(ctx context.Context, userID, ip string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if ip == "" {
		return nil
	}

	if _, err := e.flows.TrackIP(ctx, userID, ip); err != nil {
		return e.userLookupError(err)
	}
	e.metricInc(MetricIPTracked)
	return nil
}

// CleanupIPHistory trims every user's IP history to
// IPHistory.RetentionLimit. Write failures for single users are logged and
// skipped; a failed scan aborts the pass and is returned together with the
// partial report.
func (e *Engine) CleanupIPHistory(ctx context.Context) (CleanupReport, error) {
	if err := e.ready(); err != nil {
		return CleanupReport{}, err
	}

	start := time.Now()
	res := e.flows.CleanupIPHistory(ctx)
	report := CleanupReport{
		UsersScanned:   res.UsersScanned,
		UsersUpdated:   res.UsersUpdated,
		EntriesRemoved: res.EntriesRemoved,
		Duration:       time.Since(start),
	}

	e.metricInc(MetricIPCleanupRun)
	e.metricAdd(MetricIPCleanupUsersUpdated, report.UsersUpdated)
	e.metricAdd(MetricIPCleanupEntriesRemoved, report.EntriesRemoved)

	var err error
	if res.Err != nil {
		err = internalError(res.Err)
	}
	e.emitAudit(ctx, auditEventIPHistoryCleanup, err == nil, "", "", err, func() map[string]string {
		return map[string]string{
			"users_scanned":   strconv.Itoa(report.UsersScanned),
			"users_updated":   strconv.Itoa(report.UsersUpdated),
			"entries_removed": strconv.Itoa(report.EntriesRemoved),
		}
	})
	e.logger.InfoContext(ctx, "ip history cleanup finished",
		"users_scanned", report.UsersScanned,
		"users_updated", report.UsersUpdated,
		"entries_removed", report.EntriesRemoved,
		"duration", report.Duration,
	)
	return report, err
}
