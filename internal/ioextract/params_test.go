package ioextract_test

import (
	"testing"

	"github.com/openherbaria/herbdb/internal/ioextract"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/stretchr/testify/assert"
)

func TestParamsHashStable(t *testing.T) {
	assert := assert.New(t)

	p1 := herbdb.ExtractionParams{
		Engine:    "tesseract",
		Languages: "eng",
		Extra:     map[string]string{"psm": "3", "oem": "1"},
	}
	p2 := herbdb.ExtractionParams{
		Engine:    "tesseract",
		Languages: "eng",
		Extra:     map[string]string{"oem": "1", "psm": "3"},
	}

	h1, err := ioextract.ParamsHash(p1)
	assert.NoError(err)
	h2, err := ioextract.ParamsHash(p2)
	assert.NoError(err)

	// Extra key order must not matter.
	assert.Equal(h1, h2)
	assert.Len(h1, 64)
}

func TestParamsHashDistinguishes(t *testing.T) {
	assert := assert.New(t)

	base := herbdb.ExtractionParams{Engine: "tesseract", Languages: "eng"}

	tests := []struct {
		msg    string
		change herbdb.ExtractionParams
	}{
		{"engine", herbdb.ExtractionParams{Engine: "gpt4o", Languages: "eng"}},
		{"languages", herbdb.ExtractionParams{Engine: "tesseract", Languages: "deu"}},
		{"model", herbdb.ExtractionParams{
			Engine: "tesseract", Languages: "eng", Model: "fast"}},
		{"prompt", herbdb.ExtractionParams{
			Engine: "tesseract", Languages: "eng", PromptVersion: "v2"}},
		{"extra", herbdb.ExtractionParams{
			Engine: "tesseract", Languages: "eng",
			Extra: map[string]string{"psm": "6"}}},
	}

	baseHash, err := ioextract.ParamsHash(base)
	assert.NoError(err)

	for _, v := range tests {
		h, err := ioextract.ParamsHash(v.change)
		assert.NoError(err, v.msg)
		assert.NotEqual(baseHash, h, v.msg)
	}
}

func TestCanonicalParamsOmitsEmpty(t *testing.T) {
	assert := assert.New(t)
	data, err := ioextract.CanonicalParams(
		herbdb.ExtractionParams{Engine: "tesseract"},
	)
	assert.NoError(err)
	assert.Equal(`{"engine":"tesseract"}`, string(data))
}
