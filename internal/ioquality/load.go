package ioquality

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
)

// LoadRules reads a rules.yaml file. A missing file yields the
// defaults; a present but broken file is an error.
func LoadRules(path string) (*quality.RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return quality.Defaults(), nil
		}
		return nil, RulesConfigError(err)
	}
	res, err := quality.Parse(data)
	if err != nil {
		return nil, RulesConfigError(err)
	}
	return res, nil
}

// LoadSimilarities reads an externally computed similarity-pair file:
// a JSON array of {specimenId, otherSpecimenId, score}. Perceptual
// hashing runs outside this system; only its output enters the rules.
func LoadSimilarities(path string) ([]herbdb.SimilarityPair, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, SimilarityInputError(path, err)
	}
	var res []herbdb.SimilarityPair
	if err = json.Unmarshal(data, &res); err != nil {
		return nil, SimilarityInputError(path, err)
	}
	for _, p := range res {
		if p.Score < 0 || p.Score > 1 {
			return nil, SimilarityInputError(path,
				fmt.Errorf("score %v outside [0,1]", p.Score))
		}
	}
	return res, nil
}
