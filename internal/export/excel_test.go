package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadion/internal/models"
)

func TestDayReport(t *testing.T) {
	created := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	bookings := []models.Booking{
		{ID: 1, Hour: "09:00", FullName: "Ali Valiyev", Phone: "+998901112233",
			Status: models.StatusConfirmed, CreatedAt: created},
		{ID: 2, Hour: "10:00", FullName: "Olim Karimov", Phone: "+998907778899",
			Status: models.StatusCanceled, CanceledBy: models.CanceledByAdmin, CreatedAt: created},
	}

	f, err := DayReport("2026-09-10", bookings)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"2026-09-10"}, f.GetSheetList())

	rows, err := f.GetRows("2026-09-10")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per booking")

	assert.Equal(t, reportColumns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Ali Valiyev", rows[1][2])
	assert.Equal(t, "confirmed", rows[1][4])
	assert.Equal(t, "canceled", rows[2][4])
	assert.Equal(t, "admin", rows[2][5])
}

func TestDayReportBytes(t *testing.T) {
	data, err := DayReportBytes("2026-09-10", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}
