package ioextract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/gnames/gnfmt"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
)

// script wraps an external executable as an extraction engine. The
// image arrives on stdin; the script prints a JSON object mapping
// Darwin Core terms to {value, confidence} on stdout. This is how
// vision-model extractors plug in without linking their SDKs.
type script struct {
	name string
	path string
	enc  gnfmt.Encoder
}

// NewScript creates an extractor backed by an external executable.
// The name becomes the engine recorded in extraction params, so two
// different scripts never share deduplication state.
func NewScript(name, path string) herbdb.Extractor {
	return &script{name: name, path: path, enc: gnfmt.GNjson{}}
}

func (s *script) Name() string { return s.name }

func (s *script) Extract(
	ctx context.Context,
	image []byte,
	params herbdb.ExtractionParams,
) (*herbdb.ExtractionResult, error) {
	cmd := exec.CommandContext(ctx, s.path)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Env = append(cmd.Environ(),
		"HERBDB_ENGINE="+s.name,
		"HERBDB_LANGUAGES="+params.Languages,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, EngineError(s.name,
				fmt.Errorf("%w: %s", err, msg))
		}
		return nil, EngineError(s.name, err)
	}

	fields := make(dwc.FieldMap)
	if err := s.enc.Decode(stdout.Bytes(), &fields); err != nil {
		return nil, EngineError(s.name,
			fmt.Errorf("cannot parse script output: %w", err))
	}
	for term := range fields {
		if !term.IsValid() {
			return nil, EngineError(s.name,
				fmt.Errorf("script returned unknown term %q", term))
		}
	}

	return &herbdb.ExtractionResult{Fields: fields}, nil
}
