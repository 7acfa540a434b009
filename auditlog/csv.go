package auditlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader is the column layout for audit exports.
var csvHeader = []string{
	"id", "user_id", "action", "resource", "resource_id",
	"success", "ip_address", "user_agent", "details", "created_at",
}

// WriteCSV streams entries to w as RFC 4180 CSV with a header row.
// Details maps are serialized as compact JSON in a single column.
func WriteCSV(w io.Writer, entries []*Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("auditlog: write csv header: %w", err)
	}

	for _, e := range entries {
		details := ""
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("auditlog: marshal details for %s: %w", e.ID, err)
			}
			details = string(raw)
		}

		record := []string{
			e.ID.String(),
			e.UserID,
			e.Action,
			e.Resource,
			e.ResourceID,
			strconv.FormatBool(e.Success),
			e.IPAddress,
			e.UserAgent,
			details,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("auditlog: write csv record: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("auditlog: flush csv: %w", err)
	}

	return nil
}
