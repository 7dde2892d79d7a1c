package srs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingString(t *testing.T) {
	assert.Equal(t, "Again", Again.String())
	assert.Equal(t, "Hard", Hard.String())
	assert.Equal(t, "Good", Good.String())
	assert.Equal(t, "Easy", Easy.String())
	assert.Equal(t, "Rating(0)", Rating(0).String())
	assert.Equal(t, "Rating(9)", Rating(9).String())
}

func TestRatingIsValid(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		assert.True(t, r.IsValid())
	}
	assert.False(t, Rating(0).IsValid())
	assert.False(t, Rating(5).IsValid())
}

func TestRatingSuccess(t *testing.T) {
	assert.False(t, Again.Success())
	for _, r := range []Rating{Hard, Good, Easy} {
		assert.True(t, r.Success())
	}
}

func TestRatingJSONRoundTrip(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		data, err := json.Marshal(r)
		require.NoError(t, err)

		var back Rating
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, r, back)
	}
}

func TestRatingJSONInvalid(t *testing.T) {
	_, err := json.Marshal(Rating(7))
	require.ErrorIs(t, err, ErrInvalidRating)

	var r Rating
	require.ErrorIs(t, json.Unmarshal([]byte(`"Meh"`), &r), ErrInvalidRating)
	require.ErrorIs(t, json.Unmarshal([]byte(`3`), &r), ErrInvalidRating)
}
