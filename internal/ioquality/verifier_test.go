package ioquality_test

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/openherbaria/herbdb/internal/ioquality"
	"github.com/openherbaria/herbdb/pkg/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchURL = "https://verifier.test/v1/species/match"

func TestVerifyMatched(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	assert := assert.New(t)

	httpmock.RegisterResponder("GET", matchURL,
		httpmock.NewStringResponder(200,
			`{"matchType":"EXACT","canonicalName":"Quercus alba","confidence":99}`))

	v := ioquality.NewGBIFVerifier(quality.VerifierConfig{
		URL: matchURL, TimeoutSec: 5,
	})

	match, err := v.Verify(context.Background(), "Quercus alba L.")
	require.NoError(t, err)
	assert.True(match.Matched)
	assert.Equal("Quercus alba", match.CanonicalForm)
	assert.InDelta(0.99, match.Confidence, 0.001)
}

func TestVerifyNoMatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", matchURL,
		httpmock.NewStringResponder(200,
			`{"matchType":"NONE","confidence":0}`))

	v := ioquality.NewGBIFVerifier(quality.VerifierConfig{
		URL: matchURL, TimeoutSec: 5,
	})

	match, err := v.Verify(context.Background(), "Notaplantia fakeus")
	require.NoError(t, err)
	assert.False(t, match.Matched)
}

func TestVerifyServerError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", matchURL,
		httpmock.NewStringResponder(503, "unavailable"))

	v := ioquality.NewGBIFVerifier(quality.VerifierConfig{
		URL: matchURL, TimeoutSec: 5,
	})

	_, err := v.Verify(context.Background(), "Quercus alba L.")
	assert.Error(t, err)
}

func TestVerifyCaches(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	assert := assert.New(t)

	httpmock.RegisterResponder("GET", matchURL,
		httpmock.NewStringResponder(200,
			`{"matchType":"EXACT","canonicalName":"Quercus alba","confidence":99}`))

	v := ioquality.NewGBIFVerifier(quality.VerifierConfig{
		URL: matchURL, TimeoutSec: 5,
	})
	ctx := context.Background()

	_, err := v.Verify(ctx, "Quercus alba L.")
	require.NoError(t, err)
	_, err = v.Verify(ctx, "Quercus alba L.")
	require.NoError(t, err)

	assert.Equal(1, httpmock.GetTotalCallCount())
}
