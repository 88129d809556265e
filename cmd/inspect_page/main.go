// Inspect the pages of a heap (.heap) or index (.idx) file.
// Usage: go run ./cmd/inspect_page -kind heap|index [-page N] [-schema file.json] [-log debug] <file>
// Example: go run ./cmd/inspect_page -kind index databases/demo/indexes/students_primary.idx
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"SlotDB/logging"
	"SlotDB/storage_engine/config"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/inspect"
	"SlotDB/types"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
)

func main() {
	cfg := config.Default()
	kind := flag.String("kind", "", "page kind: heap or index (default: from the file extension)")
	pageNum := flag.Int64("page", inspect.AllPages, "page number to dump, -1 for all")
	schemaPath := flag.String("schema", "", "<table>_schema.json used to decode heap records")
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.heap|file.idx>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)
	cfg.DataDir = filepath.Dir(path)

	if err := run(cfg, path, *kind, *pageNum, *schemaPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, path, kind string, pageNum int64, schemaPath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if kind == "" {
		kind = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	pageType, err := inspect.ParseKind(kind)
	if err != nil {
		return err
	}

	var schema []types.Attribute
	if schemaPath != "" {
		if schema, err = inspect.LoadSchema(schemaPath); err != nil {
			return err
		}
	}

	sum, size, err := fingerprint(path)
	if err != nil {
		return err
	}
	fmt.Printf("xxhash64=%016x size=%s\n", sum, humanize.IBytes(uint64(size)))

	logger := logging.CreateLogger(cfg.LogLevel, os.Stderr)
	dm := diskmanager.NewDiskManager(logger)
	defer dm.CloseAll()

	return inspect.FileTo(os.Stdout, dm, path, pageType, pageNum, schema)
}

// fingerprint hashes the whole file so two dumps can be told apart quickly.
func fingerprint(path string) (uint64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum64(), n, nil
}
