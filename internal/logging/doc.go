// Package logging builds the slog loggers used by tonearm.
//
// Two formats are supported. The console format prints one line per record
// with the component, job and stage lifted into a short header, which keeps
// `tonearm logs --grep` useful. The JSON format is meant for log shippers.
// Scanner and resolver code attach job IDs, stages and scan run IDs through
// WithContext.
package logging
