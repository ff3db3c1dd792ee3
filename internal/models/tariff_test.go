package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTariffRecord_IsPageBased(t *testing.T) {
	tests := []struct {
		name        string
		tariffName  string
		serviceType string
		want        bool
	}{
		{
			name:        "service type correction",
			tariffName:  "Standard",
			serviceType: "correction",
			want:        true,
		},
		{
			name:        "name mentions pages",
			tariffName:  "Prix par PAGE",
			serviceType: "other",
			want:        true,
		},
		{
			name:        "mixed case correction in name",
			tariffName:  "Correction Premium",
			serviceType: "",
			want:        true,
		},
		{
			name:        "unrelated service",
			tariffName:  "Mise en forme",
			serviceType: "layout",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &TariffRecord{Name: tt.tariffName, ServiceType: tt.serviceType}
			assert.Equal(t, tt.want, rec.IsPageBased())
		})
	}
}

func TestTariffRecord_HasValidPrice(t *testing.T) {
	assert.False(t, (&TariffRecord{}).HasValidPrice())
	assert.False(t, (&TariffRecord{UnitPriceMinorUnits: PriceMinor(-1)}).HasValidPrice())
	assert.True(t, (&TariffRecord{UnitPriceMinorUnits: PriceMinor(0)}).HasValidPrice())
	assert.True(t, (&TariffRecord{UnitPriceMinorUnits: PriceMinor(150)}).HasValidPrice())
}

func TestCloneTariffs(t *testing.T) {
	assert.Nil(t, CloneTariffs(nil))

	empty := CloneTariffs([]TariffRecord{})
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)

	original := []TariffRecord{{ID: uuid.New(), Name: "Correction", UnitPriceMinorUnits: PriceMinor(200)}}
	clone := CloneTariffs(original)
	*clone[0].UnitPriceMinorUnits = 999
	clone[0].Name = "changed"

	assert.Equal(t, int64(200), *original[0].UnitPriceMinorUnits)
	assert.Equal(t, "Correction", original[0].Name)
}
