package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", Position: "2024-12-09T08:30:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2024-12-09T08:30:00Z", cursor.Position)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	require.True(t, errors.Is(err, ErrInvalidToken))

	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestBuildCursorPageInfoTrimsExtraRow(t *testing.T) {
	rows := []int{5, 4, 3}
	page, info, err := BuildCursorPageInfo(rows, 2, func(v int) Cursor {
		return Cursor{ID: "id", Position: "p"}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, page)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	page, info, err = BuildCursorPageInfo(rows, 3, func(v int) Cursor { return Cursor{} })
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

func TestPaginationSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Size())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Size())
}
