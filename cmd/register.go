package cmd

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioimage"
	"github.com/openherbaria/herbdb/internal/ioquality"
	"github.com/openherbaria/herbdb/internal/ioregistry"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/spf13/cobra"
)

// imageExtensions are the file types the register command picks up
// while walking a directory.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true,
	".tiff": true, ".nef": true, ".cr2": true, ".dng": true,
}

func getRegisterCmd() *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register <directory>",
		Short: "Registers camera files as specimens",
		Long: `Walks a directory of camera files, ingests each image into the
content-addressed store and registers one specimen per camera filename.
Files sharing a filename stem (IMG_1234.NEF, IMG_1234.jpg) belong to
the same specimen.

When a filename stem matches the catalog number pattern from
rules.yaml, it is recorded as the specimen's expected catalog number.

Re-running over the same directory is a no-op for already-registered
specimens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), args[0])
		},
	}

	return registerCmd
}

func runRegister(ctx context.Context, dir string) error {
	groups, err := collectFiles(dir)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	if len(groups) == 0 {
		gn.Info("No image files found in <em>%s</em>", dir)
		return nil
	}

	rules, err := ioquality.LoadRules(config.RulesFilePath(homeDir))
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	catalogRe, err := regexp.Compile(rules.CatalogNumberPattern)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	store, err := ioimage.New(cfg.Images.Dir)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	reg := ioregistry.New(op, store)

	stems := make([]string, 0, len(groups))
	for stem := range groups {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	gn.Info("Registering <em>%d</em> specimens from <em>%s</em>",
		len(stems), dir)
	bar := pb.StartNew(len(stems))
	defer bar.Finish()

	var totalBytes int64
	for _, stem := range stems {
		descs, size, err := ingestGroup(ctx, store, groups[stem])
		if err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
		totalBytes += size

		catalog, confidence := "", 0.0
		if catalogRe.MatchString(stem) {
			catalog, confidence = stem, 0.9
		}

		_, err = reg.RegisterSpecimen(ctx, stem, catalog, confidence, descs)
		if err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
		bar.Increment()
	}

	gn.Info("Registered <em>%d</em> specimens, ingested <em>%s</em>",
		len(stems), humanize.Bytes(uint64(totalBytes)))
	return nil
}

// collectFiles groups image paths by filename stem.
func collectFiles(dir string) (map[string][]string, error) {
	groups := make(map[string][]string)
	err := filepath.WalkDir(dir, func(
		path string, d os.DirEntry, err error,
	) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !imageExtensions[ext] {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		groups[stem] = append(groups[stem], path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ingestGroup puts each file of one specimen into the image store and
// builds its descriptors.
func ingestGroup(
	ctx context.Context,
	store herbdb.ImageStore,
	paths []string,
) ([]herbdb.FileDescriptor, int64, error) {
	var total int64
	descs := make([]herbdb.FileDescriptor, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, err
		}
		sum, err := store.Put(ctx, data)
		if err != nil {
			return nil, 0, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, 0, err
		}
		captured := info.ModTime().UTC()
		total += info.Size()

		descs = append(descs, herbdb.FileDescriptor{
			SHA256:     sum,
			Path:       path,
			Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			SizeBytes:  info.Size(),
			Role:       fileRole(path),
			CapturedAt: &captured,
		})
	}
	return descs, total, nil
}

func fileRole(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nef", ".cr2", ".dng":
		return "raw"
	default:
		return "preview"
	}
}
