// Package export renders standings as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/okian/podium/internal/domain/types"
)

// ContentTypeXLSX is the MIME type of the files written here.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const leaderboardSheet = "Leaderboard"

var leaderboardHeader = []interface{}{"Rank", "Participant", "Name", "Points", "Perfect", "Events"} //nolint:gochecknoglobals // fixed header

// WriteLeaderboard streams ranked entries to w as an XLSX workbook with a
// single sheet. Rows follow the order of entries.
func WriteLeaderboard(w io.Writer, entries []types.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(leaderboardSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetRow("A1", leaderboardHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.Rank,
			sanitize(e.ParticipantID),
			sanitize(e.DisplayName),
			e.TotalPoints,
			e.PerfectMatches,
			e.EventsScored,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sanitize stops spreadsheet apps from treating user text as a formula.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
