package srs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "New", New.String())
	assert.Equal(t, "Learning", Learning.String())
	assert.Equal(t, "Review", Review.String())
	assert.Equal(t, "Relearning", Relearning.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestStateJSONRoundTrip(t *testing.T) {
	for _, s := range []State{New, Learning, Review, Relearning} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var back State
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, s, back)
	}
}

func TestStateJSONInvalid(t *testing.T) {
	_, err := json.Marshal(State(9))
	require.ErrorIs(t, err, ErrInvalidState)

	var s State
	require.ErrorIs(t, json.Unmarshal([]byte(`"Cramming"`), &s), ErrInvalidState)
}
