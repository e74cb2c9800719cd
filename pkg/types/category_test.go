// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestCategoriesOrder(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, NumCategories)
	for i, c := range cats {
		assert.Equal(t, i, c.Index(), c)
		assert.NotEmpty(t, c.ShortName(), c)
	}
	assert.Equal(t, CategoryMaterials, cats[0])
	assert.Equal(t, CategoryDeliverables, cats[NumCategories-1])

	// The returned slice is a copy.
	cats[0] = "changed"
	assert.Equal(t, CategoryMaterials, Categories()[0])
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"processes", CategoryProcesses, false},
		{"industry_specific_kpi", CategoryKPI, false},
		{"kpi", "", true},
		{"Processes", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCategory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, -1, Category("bogus").Index())
}

func TestCategoryKeysRejectUnknown(t *testing.T) {
	var ok map[Category]int
	require.NoError(t, yaml.Unmarshal([]byte("processes: 3\n"), &ok))
	assert.Equal(t, map[Category]int{CategoryProcesses: 3}, ok)

	var bad map[Category]int
	err := json.Unmarshal([]byte(`{"proceses": 3}`), &bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
