package ioquality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/quality"
)

// gbifVerifier checks scientific names against a GBIF-style
// species/match endpoint. Results are cached in memory so one check
// pass never asks the same name twice.
type gbifVerifier struct {
	url    string
	client *http.Client
	cache  *cache.Cache
}

// NewGBIFVerifier creates a NameVerifier for cfg.Verifier.
func NewGBIFVerifier(cfg quality.VerifierConfig) herbdb.NameVerifier {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &gbifVerifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		cache:  cache.New(time.Hour, 10*time.Minute),
	}
}

// matchResponse is the subset of the species/match payload we use.
type matchResponse struct {
	MatchType     string  `json:"matchType"`
	CanonicalName string  `json:"canonicalName"`
	Confidence    float64 `json:"confidence"`
}

func (v *gbifVerifier) Verify(
	ctx context.Context,
	scientificName string,
) (*herbdb.NameMatch, error) {
	if hit, ok := v.cache.Get(scientificName); ok {
		res := hit.(herbdb.NameMatch)
		return &res, nil
	}

	reqURL := v.url + "?name=" + url.QueryEscape(scientificName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("name verifier returned HTTP %d",
			resp.StatusCode)
	}

	var payload matchResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	match := herbdb.NameMatch{
		Matched: payload.MatchType != "" &&
			payload.MatchType != "NONE",
		CanonicalForm: payload.CanonicalName,
		Confidence:    payload.Confidence / 100,
	}
	v.cache.Set(scientificName, match, cache.DefaultExpiration)
	return &match, nil
}
