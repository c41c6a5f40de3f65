package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

func TestConfirmAbsentListsAbsentees(t *testing.T) {
	c, err := Confirm(roster, []string{"3", "2"}, model.ModeAbsent)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count)
	require.Len(t, c.Absentees, 2)
	assert.Equal(t, "02 - Brook", c.Absentees[0].Label())
	assert.Equal(t, "03 - Cyd", c.Absentees[1].Label())
}

func TestConfirmPresentCounts(t *testing.T) {
	c, err := Confirm(roster, []string{"1"}, model.ModePresent)
	require.NoError(t, err)
	assert.Equal(t, "Mark 1 student as present?", c.Message)
	assert.Empty(t, c.Absentees)

	c, err = Confirm(roster, []string{"1", "2"}, model.ModePresent)
	require.NoError(t, err)
	assert.Equal(t, "Mark 2 students as present?", c.Message)
}

func TestConfirmEmptySelection(t *testing.T) {
	_, err := Confirm(roster, nil, model.ModeAbsent)
	assert.True(t, apperr.IsValidation(err))
}
