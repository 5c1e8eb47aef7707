package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearing_WithDisplayDefaults(t *testing.T) {
	tests := []struct {
		name         string
		in           Bearing
		wantName     string
		wantLocation string
	}{
		{
			name:         "derived from location type",
			in:           Bearing{ID: "b1", BearingLocationType: "NDE"},
			wantName:     "Sensor NDE",
			wantLocation: "NDE",
		},
		{
			name:         "no location type",
			in:           Bearing{ID: "b2"},
			wantName:     "Sensor Unknown",
			wantLocation: "Location Unknown",
		},
		{
			name:         "explicit values kept",
			in:           Bearing{ID: "b3", BearingLocationType: "DE", Name: "Fan end", Location: "Motor housing"},
			wantName:     "Fan end",
			wantLocation: "Motor housing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.WithDisplayDefaults()
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantLocation, got.Location)
			assert.Equal(t, tt.in.ID, got.ID)
		})
	}
}

func TestStatusCategory_Valid(t *testing.T) {
	for _, c := range StatusCategories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, StatusCategory("All").Valid())
	assert.False(t, StatusCategory("normal").Valid())
}
