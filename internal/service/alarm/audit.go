package alarm

import (
	"fmt"
	"strings"
)

// Audit message suffixes, in the language of the household.
const (
	auditNotified    = "pranešta"
	auditActive      = "aktyvūs"
	auditStopped     = "sustabdyta"
	auditQuotaLimit  = "SMS limitas išnaudotas, sustabdyta"
	auditDeliveryErr = "SMS nepavyko"
	auditQueueFull   = "eilė pilna"
	auditAbandoned   = "nutraukta išjungiant"
)

// readingLine renders "<caller> temp <T>C: <suffix>".
func readingLine(caller string, tempC float64, suffix string) string {
	return fmt.Sprintf("%s temp %.1fC: %s", caller, tempC, suffix)
}

// oneLine flattens text so it fits a single audit record.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
