// Package reporter lets an application be told about unexpected behaviour of the mail client,
// such as a server listing folders the client cannot place in the tree.
package reporter

import "context"

type Context = map[string]any

// Reporter represents an external reporting tool (crash reporter, telemetry, ...).
type Reporter interface {
	ReportMessage(string) error
	ReportMessageWithContext(string, Context) error
	ReportException(any) error
}

// NullReporter discards everything.
type NullReporter struct{}

func (NullReporter) ReportMessage(string) error {
	return nil
}

func (NullReporter) ReportMessageWithContext(string, Context) error {
	return nil
}

func (NullReporter) ReportException(any) error {
	return nil
}

type reporterKey struct{}

func NewContextWithReporter(ctx context.Context, reporter Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, reporter)
}

func GetReporterFromContext(ctx context.Context) (Reporter, bool) {
	reporter, ok := ctx.Value(reporterKey{}).(Reporter)

	return reporter, ok
}
