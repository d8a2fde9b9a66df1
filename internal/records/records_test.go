package records

import (
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		d, ok := ParseDate("20240229")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), d)
	})

	malformed := []string{
		"",
		"2024010",
		"202401011",
		"2024-1-01",
		"2024O101",
		"20241301",
		"20240230",
		"20230229",
		"20240100",
		"        ",
		"+2024010",
	}
	for _, s := range malformed {
		t.Run("Malformed_"+s, func(t *testing.T) {
			assert.NotPanics(t, func() {
				d, ok := ParseDate(s)
				assert.False(t, ok)
				assert.True(t, d.IsZero())
			})
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		code any
		want domain.RecordKind
	}{
		{"99", domain.KindVisit},
		{99, domain.KindVisit},
		{99.0, domain.KindVisit},
		{int64(99), domain.KindVisit},
		{" 99 ", domain.KindVisit},
		{"0", domain.KindControl},
		{"00", domain.KindControl},
		{0, domain.KindControl},
		{0.0, domain.KindControl},
		{"12", domain.KindRealFault},
		{42, domain.KindRealFault},
		{"099", domain.KindRealFault},
		{"", domain.KindRealFault},
		{nil, domain.KindRealFault},
		{map[string]any{"x": 1}, domain.KindRealFault},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.code), "code %#v", tc.code)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("StringFields", func(t *testing.T) {
		rec, err := Normalize(&domain.RawFaultRecord{
			ID:      "r1",
			AssetID: "a1",
			Data: map[string]any{
				"date":  "20250310",
				"cause": "12",
				"type":  "Door",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "a1", rec.AssetID)
		assert.True(t, rec.HasDate)
		assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), rec.Date)
		assert.Equal(t, "12", rec.Cause)
		assert.Equal(t, domain.KindRealFault, rec.Kind)
		assert.Equal(t, "Door", rec.Label)
	})

	t.Run("NumericFieldsFromJSON", func(t *testing.T) {
		rec, err := Normalize(&domain.RawFaultRecord{
			ID:   "r2",
			Data: map[string]any{"date": float64(20250310), "cause": float64(99)},
		})
		require.NoError(t, err)
		assert.True(t, rec.HasDate)
		assert.Equal(t, domain.KindVisit, rec.Kind)
		assert.Equal(t, UnknownLabel, rec.Label)
	})

	t.Run("LabelFallback", func(t *testing.T) {
		rec, err := Normalize(&domain.RawFaultRecord{
			ID:   "r3",
			Data: map[string]any{"type": "  ", "label": "Motor"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Motor", rec.Label)
	})

	t.Run("MalformedDateKeepsRecord", func(t *testing.T) {
		rec, err := Normalize(&domain.RawFaultRecord{
			ID:   "r4",
			Data: map[string]any{"date": "2025-03-10", "cause": "5"},
		})
		require.NoError(t, err)
		assert.False(t, rec.HasDate)
		assert.Equal(t, domain.KindRealFault, rec.Kind)
	})

	t.Run("MissingCauseIsRealFault", func(t *testing.T) {
		rec, err := Normalize(&domain.RawFaultRecord{
			ID:   "r5",
			Data: map[string]any{"date": "20250310"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.KindRealFault, rec.Kind)
	})

	t.Run("QuarantineMissingPayload", func(t *testing.T) {
		_, err := Normalize(&domain.RawFaultRecord{ID: "r6"})
		var qe *QuarantineError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, "r6", qe.RecordID)
	})

	t.Run("QuarantineUnusableCause", func(t *testing.T) {
		_, err := Normalize(&domain.RawFaultRecord{
			ID:   "r7",
			Data: map[string]any{"cause": []any{"99"}},
		})
		var qe *QuarantineError
		require.ErrorAs(t, err, &qe)
	})
}

func TestNormalizeAll(t *testing.T) {
	raws := []*domain.RawFaultRecord{
		{ID: "ok", Data: map[string]any{"cause": "1"}},
		{ID: "bad"},
		nil,
		{ID: "ok2", Data: map[string]any{"cause": 0}},
	}

	recs, quarantined := NormalizeAll(raws)
	assert.Len(t, recs, 2)
	assert.Equal(t, 2, quarantined)
	assert.Equal(t, domain.KindControl, recs[1].Kind)
}
