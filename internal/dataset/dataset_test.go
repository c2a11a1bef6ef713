package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/seatrace/trackdash/internal/geo"
	"github.com/seatrace/trackdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const movementCSV = `MMSI,Timestamp,Latitude,Longitude,SOG
219000001,2024-03-01 08:00:00,55.10,12.50,10.2
219000001,2024-03-01T08:05:00Z,55.12,12.52,10.4
219000002,2024-03-01 08:02:00,56.00,11.00,0
`

func TestReadMovement(t *testing.T) {
	samples, err := ReadMovement(strings.NewReader(movementCSV), DefaultMovementColumns)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, core.VesselID("219000001"), samples[0].VesselID)
	assert.True(t, samples[0].Timestamp.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.True(t, samples[1].Timestamp.Equal(time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)))
	assert.Equal(t, 55.10, samples[0].Latitude)
	assert.Equal(t, 12.50, samples[0].Longitude)
}

func TestReadMovement_HeaderMatchingIsLoose(t *testing.T) {
	in := "\uFEFF mmsi ,\"TIMESTAMP\",latitude,LONGITUDE\n1,2024-03-01 08:00:00,1,2\n"
	samples, err := ReadMovement(strings.NewReader(in), DefaultMovementColumns)
	require.NoError(t, err)
	require.Len(t, samples, 1)
}

func TestReadMovement_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing column", "MMSI,Timestamp,Latitude\n1,2024-03-01,1\n", ErrMissingColumn},
		{"bad timestamp", "MMSI,Timestamp,Latitude,Longitude\n1,yesterday-ish,1,2\n", ErrParse},
		{"empty timestamp", "MMSI,Timestamp,Latitude,Longitude\n1,,1,2\n", ErrParse},
		{"bad latitude", "MMSI,Timestamp,Latitude,Longitude\n1,2024-03-01 08:00:00,north,2\n", ErrParse},
		{"empty vessel", "MMSI,Timestamp,Latitude,Longitude\n ,2024-03-01 08:00:00,1,2\n", ErrParse},
		{"out of range", "MMSI,Timestamp,Latitude,Longitude\n1,2024-03-01 08:00:00,91,2\n", geo.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMovement(strings.NewReader(tt.input), DefaultMovementColumns)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadMovement_ErrorNamesLine(t *testing.T) {
	in := "MMSI,Timestamp,Latitude,Longitude\n1,2024-03-01 08:00:00,1,2\n1,nope,1,2\n"
	_, err := ReadMovement(strings.NewReader(in), DefaultMovementColumns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadMovement_EmptyInput(t *testing.T) {
	_, err := ReadMovement(strings.NewReader(""), DefaultMovementColumns)
	require.Error(t, err)
}

const attributeCSV = `Ship type,Navigational status,MMSI,Name
Cargo,Under way using engine,219000001,ALPHA
 Tanker ,Moored,219000002,BRAVO
Cargo,,219000003,CHARLIE
`

func TestReadAttributes(t *testing.T) {
	records, err := ReadAttributes(strings.NewReader(attributeCSV), DefaultAttributeColumns)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, core.AttributeRecord{
		VesselID:  "219000001",
		ShipType:  "Cargo",
		NavStatus: "Under way using engine",
		Extra:     map[string]string{"Name": "ALPHA"},
	}, records[0])
	assert.Equal(t, "Tanker", records[1].ShipType, "labels are trimmed")
	assert.Equal(t, "", records[2].NavStatus)
}

func TestReadAttributes_Latin1Labels(t *testing.T) {
	in := "MMSI,Ship type,Navigational status,Havn\n" +
		"219000001,Fiske\xf8r,Fort\xf8jet,\xc5r\xf8sk\xf8bing\n"
	records, err := ReadAttributes(strings.NewReader(in), DefaultAttributeColumns)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Fiskeør", records[0].ShipType)
	assert.Equal(t, "Fortøjet", records[0].NavStatus)
	assert.Equal(t, map[string]string{"Havn": "Ærøskøbing"}, records[0].Extra)
	for _, v := range []string{records[0].ShipType, records[0].NavStatus} {
		assert.True(t, utf8.ValidString(v))
	}
}

func TestReadMovement_Latin1VesselID(t *testing.T) {
	in := "MMSI,Timestamp,Latitude,Longitude\nM\xe5ge,2024-03-01 08:00:00,55,12\n"
	samples, err := ReadMovement(strings.NewReader(in), DefaultMovementColumns)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, core.VesselID("Måge"), samples[0].VesselID)
}

func TestReadAttributes_VesselIDOptional(t *testing.T) {
	in := "Ship type,Navigational status\nCargo,Moored\n"
	records, err := ReadAttributes(strings.NewReader(in), DefaultAttributeColumns)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.VesselID(""), records[0].VesselID)
	assert.Nil(t, records[0].Extra)
}

func TestReadAttributes_MissingColumn(t *testing.T) {
	in := "Ship type,MMSI\nCargo,1\n"
	_, err := ReadAttributes(strings.NewReader(in), DefaultAttributeColumns)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	mPath := filepath.Join(dir, "merged_data.csv")
	aPath := filepath.Join(dir, "newship.csv")
	require.NoError(t, os.WriteFile(mPath, []byte(movementCSV), 0644))
	require.NoError(t, os.WriteFile(aPath, []byte(attributeCSV), 0644))

	samples, err := LoadMovementFile(mPath, DefaultMovementColumns)
	require.NoError(t, err)
	assert.Len(t, samples, 3)

	records, err := LoadAttributeFile(aPath, DefaultAttributeColumns)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = LoadMovementFile(filepath.Join(dir, "missing.csv"), DefaultMovementColumns)
	require.Error(t, err)
}
