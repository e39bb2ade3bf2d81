package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "scl_S0032-281X2002000300001_20230115",
		DocumentKey("scl", "S0032-281X2002000300001", "2023-01-15"))
	assert.Equal(t, "scl_0032-281X20020003_20230115",
		IssueKey("scl", "0032-281X20020003", "20230115"))
	assert.Equal(t, "scl_0032-281X", JournalKey("scl", "0032-281X"))
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key            string
		wantCollection string
		wantCode       string
		wantErr        bool
	}{
		{"scl_S0032-281X2002000300001_20230115", "scl", "S0032-281X2002000300001", false},
		{"scl_0032-281X", "scl", "0032-281X", false},
		{"scl", "", "", true},
		{"_0032-281X", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			collection, code, err := SplitKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCollection, collection)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestDiff(t *testing.T) {
	local := NewKeySet("a", "b", "c")
	remote := NewKeySet("b", "c", "d", "e")

	toAdd, toRemove := Diff(local, remote)
	assert.ElementsMatch(t, []string{"a"}, toAdd)
	assert.ElementsMatch(t, []string{"d", "e"}, toRemove)
}

func TestDiff_Identical(t *testing.T) {
	set := NewKeySet("a", "b")
	toAdd, toRemove := Diff(set, NewKeySet("b", "a"))
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}

func TestBuildPlan_OrderAndDates(t *testing.T) {
	local := NewKeySets()
	remote := NewKeySets()

	local[Documents].Add(DocumentKey("scl", "S0032-281X2002000300001", "2024-01-01"))
	remote[Documents].Add(DocumentKey("scl", "S0032-281X2002000300001", "2023-01-01"))
	remote[Documents].Add(DocumentKey("scl", "S0032-281X2002000300002", "2023-01-01"))
	local[Journals].Add(JournalKey("scl", "0032-281X"))

	plan := BuildPlan("scl", local, remote)

	var order []Entity
	for _, ph := range plan.Phases {
		order = append(order, ph.Entity)
	}
	assert.Equal(t, []Entity{Documents, Journals, Issues}, order)

	docs := plan.Phase(Documents)
	assert.Equal(t, []string{"scl_S0032-281X2002000300001_20240101"}, docs.Add)
	assert.ElementsMatch(t, []string{
		"scl_S0032-281X2002000300001_20230101",
		"scl_S0032-281X2002000300002_20230101",
	}, docs.Remove)

	assert.Equal(t, []string{"scl_0032-281X"}, plan.Phase(Journals).Add)
	assert.False(t, plan.Empty())
}

func TestPlan_Empty(t *testing.T) {
	sets := NewKeySets()
	sets[Journals].Add("scl_0032-281X")
	assert.True(t, BuildPlan("scl", sets, sets).Empty())
}
