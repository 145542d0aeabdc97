// Package scorecardexport renders event scorecards as a spreadsheet.
package scorecardexport

import (
	"fmt"
	"io"
	"time"

	scorecardservice "github.com/Black-And-White-Club/ringside/app/modules/scorecard/application"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet     = "Scorecards"
	SubmissionsSheet = "Submissions"
)

var (
	summaryHeader     = []any{"Bout", "Red", "Blue", "Round", "Submissions", "Mean Red", "Mean Blue", "Winner"}
	submissionsHeader = []any{"Bout", "Round", "User", "Red", "Blue", "Updated At"}
)

// WriteEventSheet writes a workbook with one summary row per round, a
// total row per bout and every raw submission on a second sheet.
func WriteEventSheet(w io.Writer, sheet *scorecardservice.EventSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(SubmissionsSheet); err != nil {
		return fmt.Errorf("failed to create submissions sheet: %w", err)
	}

	fighters := make(map[sharedtypes.BoutID][2]string, len(sheet.Card.Bouts))
	for _, bc := range sheet.Card.Bouts {
		fighters[bc.Bout.ID] = [2]string{bc.Bout.RedFighter, bc.Bout.BlueFighter}
	}

	row := 1
	if err := setRow(f, SummarySheet, row, summaryHeader); err != nil {
		return err
	}
	for _, card := range sheet.Scorecards {
		names := fighters[card.BoutID]
		for _, r := range card.Rounds {
			row++
			if err := setRow(f, SummarySheet, row, []any{
				string(card.BoutID), names[0], names[1], r.Round, r.SubmissionCount, r.MeanRed, r.MeanBlue, string(r.Winner),
			}); err != nil {
				return err
			}
		}
		row++
		if err := setRow(f, SummarySheet, row, []any{
			string(card.BoutID), names[0], names[1], "Total", card.SubmissionCount, card.TotalRed, card.TotalBlue, "",
		}); err != nil {
			return err
		}
	}

	if err := setRow(f, SubmissionsSheet, 1, submissionsHeader); err != nil {
		return err
	}
	for i, s := range sheet.Submissions {
		if err := setRow(f, SubmissionsSheet, i+2, []any{
			string(s.BoutID), s.Round, string(s.UserID), s.RedScore, s.BlueScore, s.UpdatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
