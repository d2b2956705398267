package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/xerrors"
)

func TestParseSeasonType(t *testing.T) {
	tests := []struct {
		in   string
		want SeasonType
		code int
	}{
		{"", SeasonRegular, 2},
		{"regular", SeasonRegular, 2},
		{"Preseason", SeasonPreseason, 1},
		{"3", SeasonPostseason, 3},
		{"post", SeasonPostseason, 3},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeasonType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.code, got.Code())
			assert.Equal(t, tt.want, SeasonTypeFromCode(tt.code))
		})
	}

	t.Run("无效值", func(t *testing.T) {
		_, err := ParseSeasonType("offseason")
		assert.ErrorIs(t, err, ErrInvalidSeasonType)
		assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
	})
}

func TestQuery(t *testing.T) {
	t.Run("WeekKey", func(t *testing.T) {
		assert.Equal(t, "10", Query{Week: 10}.WeekKey())
		assert.Equal(t, "all", Query{}.WeekKey())
	})

	t.Run("校验", func(t *testing.T) {
		assert.NoError(t, Query{Season: 2025, SeasonType: SeasonRegular, Week: 10}.Validate())
		assert.True(t, xerrors.Is(Query{Season: 1800, SeasonType: SeasonRegular}.Validate(), xerrors.ErrInvalidInput))
		assert.True(t, xerrors.Is(Query{Season: 2025, SeasonType: SeasonRegular, Week: 30}.Validate(), xerrors.ErrInvalidInput))
		assert.True(t, xerrors.Is(Query{Season: 2025, SeasonType: "bogus"}.Validate(), xerrors.ErrInvalidInput))
	})
}

func TestCount(t *testing.T) {
	games := []Game{
		{ID: "1", Status: StatusLive},
		{ID: "2", Status: StatusFinal},
		{ID: "3", Status: StatusFinal},
		{ID: "4", Status: StatusScheduled},
		{ID: "5", Status: StatusPostponed},
	}
	assert.Equal(t, Counts{Total: 5, Live: 1, Completed: 2, Scheduled: 1}, Count(games))
	assert.Equal(t, Counts{}, Count(nil))
}
