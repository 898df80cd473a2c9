package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCategorySet_DedupesAndKeepsOrder(t *testing.T) {
	t.Parallel()

	s := NewCategorySet([]Category{
		{Key: "robbery", Title: "Robbery"},
		{Key: "burglary", Title: "Burglary"},
		{Key: "robbery", Title: "Duplicate"},
		{Key: "", Title: "Blank"},
	})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"robbery", "burglary"}, s.Keys())

	c, ok := s.Get("robbery")
	assert.True(t, ok)
	assert.Equal(t, "Robbery", c.Title)
	assert.False(t, s.Has("arson"))
}

func TestCategorySet_AllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewCategorySet([]Category{{Key: "arson", Title: "Arson"}})
	all := s.All()
	all[0].Title = "changed"

	c, _ := s.Get("arson")
	assert.Equal(t, "Arson", c.Title)
}

func TestCategorySet_ZeroValue(t *testing.T) {
	t.Parallel()

	var s CategorySet
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("x"))
	assert.Empty(t, s.Keys())
}

func TestPoints(t *testing.T) {
	t.Parallel()

	p := NewPoint("Jan", 4)
	if assert.NotNil(t, p.Value) {
		assert.InDelta(t, 4.0, *p.Value, 1e-9)
	}
	assert.Nil(t, MissingPoint("Feb").Value)
}

func TestSyncStatusValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", string(SyncStatusRunning))
	assert.Equal(t, "complete", string(SyncStatusComplete))
	assert.Equal(t, "failed", string(SyncStatusFailed))
}
