// Package billing decides who may run an analysis and applies subscription
// changes reported by the payments provider.
package billing

import "errors"

// ErrFreeReportUsed blocks an unsubscribed user who already has a report.
var ErrFreeReportUsed = errors.New("your free report has been used, subscribe to run more analyses")

// Usage is what the gate needs to know about a user.
type Usage struct {
	ReportsUsed int
	// ReportLoaded is set when the request re-runs a report the user
	// already owns.
	ReportLoaded bool
	Subscribed   bool
}

// Allow returns nil if the user may run an analysis.
func Allow(u Usage) error {
	if u.Subscribed {
		return nil
	}
	if u.ReportsUsed >= 1 && !u.ReportLoaded {
		return ErrFreeReportUsed
	}
	return nil
}
