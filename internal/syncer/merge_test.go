package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFields(t *testing.T) {
	type testCase struct {
		name   string
		local  map[string]any
		remote map[string]any
		want   map[string]any
	}

	tests := []testCase{
		{
			name:   "LocalWinsUserAuthoredFields",
			local:  map[string]any{"amount": float64(50), "description": "Dinner"},
			remote: map[string]any{"amount": float64(40), "description": "Dinner", "category": "food"},
			want:   map[string]any{"amount": float64(50), "description": "Dinner", "category": "food"},
		},
		{
			name:   "RemoteKeepsFieldsLocalOmits",
			local:  map[string]any{"amount": float64(50)},
			remote: map[string]any{"amount": float64(40), "notes": "split the bill", "date": "2024-05-01"},
			want:   map[string]any{"amount": float64(50), "notes": "split the bill", "date": "2024-05-01"},
		},
		{
			name:   "TagsUnion",
			local:  map[string]any{"tags": []any{"a", "b"}},
			remote: map[string]any{"tags": []any{"b", "c"}},
			want:   map[string]any{"tags": []any{"a", "b", "c"}},
		},
		{
			name:   "KeywordsUnionIsDuplicateFree",
			local:  map[string]any{"keywords": []any{"uber", "taxi", "uber"}},
			remote: map[string]any{"keywords": []any{"taxi", "ride"}},
			want:   map[string]any{"keywords": []any{"uber", "taxi", "ride"}},
		},
		{
			name:   "LocalTagsWinWhenRemoteOmitsThem",
			local:  map[string]any{"tags": []any{"a"}},
			remote: map[string]any{"amount": float64(1)},
			want:   map[string]any{"amount": float64(1), "tags": []any{"a"}},
		},
		{
			name:   "NonArrayTagsFallBackToLocal",
			local:  map[string]any{"tags": "a,b"},
			remote: map[string]any{"tags": []any{"c"}},
			want:   map[string]any{"tags": "a,b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeFields(tt.local, tt.remote))
		})
	}
}
