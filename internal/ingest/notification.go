package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/darshan-rambhia/tempdb/internal/model"
)

// NotificationKind is the kind stamped on run report notifications.
const NotificationKind = "ingest_run"

// Notification builds a run report. A run with failed files, or one that
// was stopped by runErr, is reported as a warning or as critical.
func (s *Summary) Notification(runErr error) model.Notification {
	n := model.Notification{
		Kind:      NotificationKind,
		Severity:  "info",
		RunID:     s.RunID,
		Timestamp: s.Finished,
		Metadata: map[string]string{
			"files":      strconv.Itoa(s.Files),
			"ingested":   strconv.Itoa(s.Ingested),
			"duplicates": strconv.Itoa(s.Duplicates),
			"failed":     strconv.Itoa(s.Failed),
			"readings":   strconv.Itoa(s.Readings),
			"row_errors": strconv.Itoa(s.RowErrors),
		},
	}
	if s.Deployment != nil {
		n.Subject = s.Deployment.Name
		n.Metadata["site"] = s.Deployment.Site
	}

	n.Title = fmt.Sprintf("Ingested %d of %d files into %s", s.Ingested, s.Files, n.Subject)
	n.Message = fmt.Sprintf("%d readings stored, %d duplicates skipped, %d files failed, %d rows dropped.",
		s.Readings, s.Duplicates, s.Failed, s.RowErrors)

	switch {
	case runErr != nil:
		n.Severity = "critical"
		n.Title = "Ingestion stopped for " + n.Subject
		n.Message += "\n" + runErr.Error()
	case s.Failed > 0:
		n.Severity = "warning"
		for _, r := range s.Results {
			if r.Err != nil && !errors.Is(r.Err, ErrDuplicateFile) {
				n.Message += fmt.Sprintf("\n%s: %v", filepath.Base(r.Path), r.Err)
			}
		}
	}
	return n
}
