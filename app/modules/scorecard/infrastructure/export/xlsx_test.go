package scorecardexport

import (
	"bytes"
	"testing"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	scorecardservice "github.com/Black-And-White-Club/ringside/app/modules/scorecard/application"
	scorecarddomain "github.com/Black-And-White-Club/ringside/app/modules/scorecard/domain"
	scorecarddb "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteEventSheet(t *testing.T) {
	round := scorecarddomain.Summarize(1, []scorecarddomain.Submission{{Red: 10, Blue: 9}, {Red: 9, Blue: 9}})
	sheet := &scorecardservice.EventSheet{
		Card: eventservice.EventCard{
			Event: eventdb.Event{ID: "ufc-300", Name: "UFC 300"},
			Bouts: []eventservice.BoutContext{{Bout: eventdb.Bout{ID: "main", RedFighter: "Pereira", BlueFighter: "Hill"}}},
		},
		Scorecards: []scorecarddomain.BoutScorecard{scorecarddomain.Cumulative("main", []scorecarddomain.RoundSummary{round})},
		Submissions: []scorecarddb.RoundScore{
			{UserID: "u1", BoutID: "main", Round: 1, RedScore: 10, BlueScore: 9, UpdatedAt: time.Date(2024, 4, 14, 4, 0, 0, 0, time.UTC)},
			{UserID: "u2", BoutID: "main", Round: 1, RedScore: 9, BlueScore: 9, UpdatedAt: time.Date(2024, 4, 14, 4, 0, 5, 0, time.UTC)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEventSheet(&buf, sheet))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, SubmissionsSheet}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Bout", "Red", "Blue", "Round", "Submissions", "Mean Red", "Mean Blue", "Winner"}, rows[0])
	assert.Equal(t, []string{"main", "Pereira", "Hill", "1", "2", "9.5", "9", "red"}, rows[1])
	assert.Equal(t, []string{"main", "Pereira", "Hill", "Total", "2", "9.5", "9"}, rows[2])

	subs, err := f.GetRows(SubmissionsSheet)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, []string{"main", "1", "u2", "9", "9", "2024-04-14T04:00:05Z"}, subs[2])
}
