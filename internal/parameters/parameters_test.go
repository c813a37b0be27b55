package parameters_test

import (
	"testing"

	"github.com/janpfeifer/stackGo/internal/parameters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfigString(t *testing.T) {
	params := parameters.NewFromConfigString("style=sampled,verbose,load_factor=6")
	assert.Equal(t, "sampled", params["style"])
	assert.Equal(t, "", params["verbose"])
	assert.Len(t, params, 3)
}

func TestGetParamOr(t *testing.T) {
	params := parameters.NewFromConfigString("a=3,b=0.5,c,d=false,e=text")

	i, err := parameters.GetParamOr(params, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	f, err := parameters.GetParamOr(params, "b", float32(0))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), f)

	b, err := parameters.GetParamOr(params, "c", false)
	require.NoError(t, err)
	assert.True(t, b, "a key without value parses as true")

	b, err = parameters.GetParamOr(params, "d", true)
	require.NoError(t, err)
	assert.False(t, b)

	s, err := parameters.GetParamOr(params, "e", "")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	i, err = parameters.GetParamOr(params, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	_, err = parameters.GetParamOr(params, "e", 0)
	assert.Error(t, err, "non-numeric value requested as int")
}

func TestPopParamOr(t *testing.T) {
	params := parameters.NewFromConfigString("a=1,b=2")
	v, err := parameters.PopParamOr(params, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.NotContains(t, params, "a")
	assert.Contains(t, params, "b")
}
