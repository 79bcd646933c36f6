package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rosec/backend/internal/grading"
)

func TestToRecord_Flattens(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	rec := ToRecord(bson.M{
		"_id":       oid,
		"studentId": "S-1",
		"answers":   bson.A{"A", bson.D{{Key: "q", Value: 2}}},
		"meta":      bson.M{"device": "scanner-1"},
		"createdAt": primitive.NewDateTimeFromTime(when),
		"score":     int32(81),
	})

	answers, ok := rec["answers"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"q": 2}, answers[1])
	assert.Equal(t, map[string]any{"device": "scanner-1"}, rec["meta"])

	result := grading.Normalize(ScanCollection, rec)
	assert.Equal(t, "S-1", result.StudentID)
	assert.Equal(t, 81.0, result.Score)
	assert.True(t, result.Timestamp.Equal(when))
}

func TestStudentFilter(t *testing.T) {
	tests := []struct {
		name      string
		studentID string
		values    bson.A
	}{
		{"text id", "S-9", bson.A{"S-9"}},
		{"digit grid id", "20240017", bson.A{"20240017", int64(20240017), float64(20240017)}},
		{"leading zeros stay text", "00123", bson.A{"00123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, ok := StudentFilter(tt.studentID)["$or"].(bson.A)
			require.True(t, ok)
			require.Len(t, clauses, len(grading.StudentIDFields)*len(tt.values))
			for i, v := range tt.values {
				assert.Equal(t, bson.M{grading.StudentIDFields[0]: v}, clauses[i])
			}
		})
	}
}

func TestNumericStudentIDNormalizesToFilterValue(t *testing.T) {
	rec := ToRecord(bson.M{"studentId": float64(20240017), "score": 60})
	assert.Equal(t, "20240017", grading.Normalize(ScanCollection, rec).StudentID)
}
