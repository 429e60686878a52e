package ctr

import (
	"context"
	"fmt"
	"time"

	"campusBooks/pkg/logger"

	"github.com/robfig/cron/v3"
)

const defaultReportSpec = "5 0 * * *"

// ReportJob logs the previous day's metrics on a cron schedule.
type ReportJob struct {
	svc      *Service
	cron     *cron.Cron
	spec     string
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

func NewReportJob(svc *Service, spec string, location *time.Location) *ReportJob {
	if spec == "" {
		spec = defaultReportSpec
	}
	if location == nil {
		location = time.UTC
	}
	return &ReportJob{
		svc:      svc,
		cron:     cron.New(cron.WithLocation(location)),
		spec:     spec,
		location: location,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start schedules the job. It returns an error for an invalid cron spec.
func (j *ReportJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
		return fmt.Errorf("failed to schedule ctr report %q: %w", j.spec, err)
	}
	j.cron.Start()
	logger.Info("ctr_report_scheduled", "spec", j.spec, "location", j.location.String())
	return nil
}

// Stop waits for a running report until ctx is done.
func (j *ReportJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (j *ReportJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Report(ctx); err != nil {
		logger.Error("ctr_report_failed", "error", err)
	}
}

// Report computes and logs metrics for the calendar day before now.
func (j *ReportJob) Report(ctx context.Context) (MetricsWindow, error) {
	end := startOfDay(j.now(), j.location)
	start := end.AddDate(0, 0, -1)

	report, err := j.svc.GetMetrics(ctx, start, end)
	if err != nil {
		return MetricsWindow{}, err
	}

	args := []any{
		"date", start.Format("2006-01-02"),
		"impressions", report.TotalImpressions,
		"clicks", report.TotalClicks,
		"ctr_percent", report.CTRPercent,
		"unique_sessions", report.UniqueSessions,
	}
	for _, st := range report.PerType {
		args = append(args, "ctr_"+string(st.Type), st.CTR)
	}
	logger.Info("ctr_daily_report", args...)

	return MetricsWindow{Start: start, End: end}, nil
}

// MetricsWindow is the [Start, End) range a report covered.
type MetricsWindow struct {
	Start time.Time
	End   time.Time
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
