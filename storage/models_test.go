package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramDocument_ClaimedAtForms(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		claimedAt string
	}{
		{"rfc3339 string", `"2026-01-02T03:04:05Z"`},
		{"relaxed extended json", `{"$date":"2026-01-02T03:04:05Z"}`},
		{"millis", `{"$date":1767323045000}`},
		{"canonical extended json", `{"$date":{"$numberLong":"1767323045000"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc ProgramDocument
			raw := `{"_id":"P1","programId":"P1","status":"claimed","validator":"V1","claimedAt":` + tt.claimedAt + `}`
			require.NoError(t, json.Unmarshal([]byte(raw), &doc))
			require.NotNil(t, doc.ClaimedAt)
			assert.True(t, want.Equal(*doc.ClaimedAt), "got %s", doc.ClaimedAt)
			assert.Equal(t, "V1", doc.Validator)
		})
	}
}

func TestProgramDocument_NoClaimedAt(t *testing.T) {
	var doc ProgramDocument
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"P1","status":"available","claimedAt":null}`), &doc))
	assert.Nil(t, doc.ClaimedAt)
	assert.Equal(t, "P1", doc.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"_id":"P1","claimedAt":{"when":1}}`), &doc))
}
