package ioextract

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gnames/gnfmt"
	"github.com/openherbaria/herbdb/pkg/herbdb"
)

// CanonicalParams serializes extraction parameters to their canonical
// JSON form: fixed field order, sorted Extra keys, no indentation.
// Equal parameters always produce equal bytes, so the hash below is a
// stable identity for "the same work".
func CanonicalParams(p herbdb.ExtractionParams) ([]byte, error) {
	enc := gnfmt.GNjson{}
	res, err := enc.Encode(p)
	if err != nil {
		return nil, EngineError(p.Engine, err)
	}
	return res, nil
}

// ParamsHash returns the lowercase hex SHA-256 of the canonical
// parameter serialization.
func ParamsHash(p herbdb.ExtractionParams) (string, error) {
	data, err := CanonicalParams(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
