package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
	"github.com/mannyrivera2010/go-quadmem/pkg/quadstore"
)

// maxDecoders bounds how many data files are decoded at once.
const maxDecoders = 4

// decodeFile reads one JSON object per line. Blank lines and lines starting
// with # are skipped; a missing "graph" puts the quad in the default graph.
func decodeFile(path string) ([]quad.Quad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []quad.Quad
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var q quad.Quad
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// loadFiles decodes files in parallel and adds every quad to ds in a single
// WRITE transaction. Nothing is stored if any file fails to decode or any
// quad is rejected.
func loadFiles(ctx context.Context, ds quadstore.Dataset, logger *slog.Logger, files []string) (int, error) {
	decoded := make([][]quad.Quad, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDecoders)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			qs, err := decodeFile(path)
			if err != nil {
				return err
			}
			decoded[i] = qs
			logger.DebugContext(gctx, "decoded data file", "path", path, "quads", len(qs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	wctx, err := ds.Begin(ctx, quadstore.Write)
	if err != nil {
		return 0, err
	}
	defer ds.End(wctx)
	n := 0
	for _, qs := range decoded {
		for _, q := range qs {
			if err := ds.Add(wctx, q); err != nil {
				return 0, fmt.Errorf("load %s: %w", q, err)
			}
			n++
		}
	}
	if err := ds.Commit(wctx); err != nil {
		return 0, err
	}
	return n, nil
}
