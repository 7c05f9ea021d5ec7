package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/djsadd/inventory-audit-service/pkg/audit/model"
	"github.com/djsadd/inventory-audit-service/pkg/auditerr"
	"github.com/lib/pq"
)

// ReportService implements C8: a single read-only aggregate over every
// session belonging to a plan.
type ReportService struct {
	db *sql.DB
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

// DiscrepancyTotals is the open/resolved/ignored/total breakdown reported
// per session and summed across a plan.
type DiscrepancyTotals struct {
	Total    int
	Open     int
	Resolved int
	Ignored  int
}

// SessionReportRow is one plan report's per-session figures.
type SessionReportRow struct {
	SessionID           int64
	LocationID          int64
	Status              model.SessionStatus
	ExpectedTotal        int
	ScanCount            int
	FoundTotal           int
	FoundInPlace         int
	FoundWrongLocation   int
	Missing              int
	FoundRate            float64
	InPlaceRate          float64
	Unexpected           int
	Duplicate            int
	UnknownBarcode       int
	Discrepancies        DiscrepancyTotals
}

// PlanReport is the get_plan_report response: a plan-wide summary plus the
// per-session rows it was built from. Totals are sums of the per-session
// figures; ratios are recomputed from the summed totals, not averaged.
type PlanReport struct {
	PlanID        int64
	GeneratedAt   time.Time
	RoomsTotal    int
	RoomsDone     int
	ExpectedTotal int
	ScanCount     int
	FoundTotal    int
	FoundInPlace  int
	FoundWrongLocation int
	Missing       int
	FoundRate     float64
	InPlaceRate   float64
	Unexpected    int
	Duplicate     int
	UnknownBarcode int
	Discrepancies DiscrepancyTotals
	Sessions      []SessionReportRow
}

func safeRate(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// GetPlanReport loads every session for planID (404 if none exist) and three
// grouped aggregate queries, then derives the per-session and plan-wide
// figures described for C8.
func (r *ReportService) GetPlanReport(ctx context.Context, planID int64) (*PlanReport, error) {
	sessionRows, err := r.db.QueryContext(ctx, `
		SELECT id, location_id, status FROM audit_sessions WHERE plan_id = $1 ORDER BY location_id ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("query audit_sessions for report: %w", err)
	}
	defer sessionRows.Close()

	type sessionInfo struct {
		id         int64
		locationID int64
		status     model.SessionStatus
	}
	var sessions []sessionInfo
	for sessionRows.Next() {
		var s sessionInfo
		if err := sessionRows.Scan(&s.id, &s.locationID, &s.status); err != nil {
			return nil, fmt.Errorf("scan session report row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := sessionRows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, auditerr.NotFoundf("plan_not_found_or_empty", "plan %d has no sessions", planID)
	}

	sessionIDs := make([]int64, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.id
	}

	resultCounts, err := r.resultCountsBySession(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	scanCounts, err := r.scanCountsBySession(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	discrepancyCounts, err := r.discrepancyCountsBySession(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	report := &PlanReport{PlanID: planID, GeneratedAt: time.Now().UTC(), RoomsTotal: len(sessions)}

	for _, s := range sessions {
		if s.status == model.SessionApplied || s.status == model.SessionClosed {
			report.RoomsDone++
		}

		counts := resultCounts[s.id]
		missing := counts[model.ResultMissing]
		foundInPlace := counts[model.ResultFoundInPlace]
		foundWrongLocation := counts[model.ResultFound]
		expectedTotal := missing + foundInPlace + foundWrongLocation
		foundTotal := foundInPlace + foundWrongLocation

		dc := discrepancyCounts[s.id]
		var unexpected, duplicate, unknownBarcode, discTotal, discOpen, discResolved, discIgnored int
		for key, c := range dc {
			discTotal += c
			switch key.dtype {
			case model.DiscrepancyUnexpected:
				unexpected += c
			case model.DiscrepancyDuplicate:
				duplicate += c
			case model.DiscrepancyUnknownBarcode:
				unknownBarcode += c
			}
			switch key.resolution {
			case model.ResolutionOpen:
				discOpen += c
			case model.ResolutionResolved:
				discResolved += c
			case model.ResolutionIgnored:
				discIgnored += c
			}
		}

		row := SessionReportRow{
			SessionID: s.id, LocationID: s.locationID, Status: s.status,
			ExpectedTotal: expectedTotal, ScanCount: scanCounts[s.id],
			FoundTotal: foundTotal, FoundInPlace: foundInPlace, FoundWrongLocation: foundWrongLocation,
			Missing: missing, FoundRate: safeRate(foundTotal, expectedTotal), InPlaceRate: safeRate(foundInPlace, expectedTotal),
			Unexpected: unexpected, Duplicate: duplicate, UnknownBarcode: unknownBarcode,
			Discrepancies: DiscrepancyTotals{Total: discTotal, Open: discOpen, Resolved: discResolved, Ignored: discIgnored},
		}
		report.Sessions = append(report.Sessions, row)

		report.ExpectedTotal += expectedTotal
		report.ScanCount += row.ScanCount
		report.FoundTotal += foundTotal
		report.FoundInPlace += foundInPlace
		report.FoundWrongLocation += foundWrongLocation
		report.Missing += missing
		report.Unexpected += unexpected
		report.Duplicate += duplicate
		report.UnknownBarcode += unknownBarcode
		report.Discrepancies.Total += discTotal
		report.Discrepancies.Open += discOpen
		report.Discrepancies.Resolved += discResolved
		report.Discrepancies.Ignored += discIgnored
	}

	report.FoundRate = safeRate(report.FoundTotal, report.ExpectedTotal)
	report.InPlaceRate = safeRate(report.FoundInPlace, report.ExpectedTotal)

	return report, nil
}

func (r *ReportService) resultCountsBySession(ctx context.Context, sessionIDs []int64) (map[int64]map[model.ItemResultStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, status, COUNT(*) FROM audit_item_results
		WHERE session_id = ANY($1) GROUP BY session_id, status`, pq.Array(sessionIDs))
	if err != nil {
		return nil, fmt.Errorf("query item result counts: %w", err)
	}
	defer rows.Close()

	out := map[int64]map[model.ItemResultStatus]int{}
	for rows.Next() {
		var sessionID int64
		var status model.ItemResultStatus
		var count int
		if err := rows.Scan(&sessionID, &status, &count); err != nil {
			return nil, err
		}
		if out[sessionID] == nil {
			out[sessionID] = map[model.ItemResultStatus]int{}
		}
		out[sessionID][status] = count
	}
	return out, rows.Err()
}

func (r *ReportService) scanCountsBySession(ctx context.Context, sessionIDs []int64) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) FROM audit_scans WHERE session_id = ANY($1) GROUP BY session_id`, pq.Array(sessionIDs))
	if err != nil {
		return nil, fmt.Errorf("query scan counts: %w", err)
	}
	defer rows.Close()

	out := map[int64]int{}
	for rows.Next() {
		var sessionID int64
		var count int
		if err := rows.Scan(&sessionID, &count); err != nil {
			return nil, err
		}
		out[sessionID] = count
	}
	return out, rows.Err()
}

type discrepancyKey struct {
	dtype      model.DiscrepancyType
	resolution model.ResolutionStatus
}

func (r *ReportService) discrepancyCountsBySession(ctx context.Context, sessionIDs []int64) (map[int64]map[discrepancyKey]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, type, resolution_status, COUNT(*) FROM audit_discrepancies
		WHERE session_id = ANY($1) GROUP BY session_id, type, resolution_status`, pq.Array(sessionIDs))
	if err != nil {
		return nil, fmt.Errorf("query discrepancy counts: %w", err)
	}
	defer rows.Close()

	out := map[int64]map[discrepancyKey]int{}
	for rows.Next() {
		var sessionID int64
		var key discrepancyKey
		var count int
		if err := rows.Scan(&sessionID, &key.dtype, &key.resolution, &count); err != nil {
			return nil, err
		}
		if out[sessionID] == nil {
			out[sessionID] = map[discrepancyKey]int{}
		}
		out[sessionID][key] = count
	}
	return out, rows.Err()
}
