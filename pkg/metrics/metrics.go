// Package metrics holds the Prometheus recorders for the API, cron worker and outbox
// publisher. Every recorder is nil-safe and built from a Registerer; a nil Registerer yields
// a recorder that drops observations.
package metrics

const namespace = "agro"

const unknownLabel = "unknown"

func normalizeLabel(value string) string {
	if value == "" {
		return unknownLabel
	}
	return value
}
