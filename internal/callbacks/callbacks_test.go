package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"bare action", New(RegConfirm)},
		{"with target", New(AdminGroup).WithTarget("IU7-25B")},
		{"with course and target", New(Lab).WithCourse("12").WithTarget("lab-01")},
		{"with index", New(AdminStudent).WithTarget("IU7-25B").WithIndex(3)},
		{"index zero", New(AdminDelStudentYes).WithTarget("g").WithIndex(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.payload.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
		})
	}
}

func TestDecodeDelimiterSafety(t *testing.T) {
	// Identifiers carrying the characters a naive split would trip on.
	tests := []string{
		"group?one",
		"lab&x=1",
		"a=b",
		"кафедра ИУ7",
		"id:with?every&bad=char",
	}

	for _, target := range tests {
		p := New(AdminGroup).WithTarget(target)
		got, err := Decode(p.Encode())
		require.NoError(t, err)
		assert.Equal(t, target, got.Target)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, data := range []string{"", "action?%zz", "?t=x"} {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrBadPayload, "data=%q", data)
	}
}

func TestIndexAbsentIsMinusOne(t *testing.T) {
	got, err := Decode(New(AdminGroup).WithTarget("g").Encode())
	require.NoError(t, err)
	assert.Equal(t, -1, got.Index)
}
