package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	recordsuc "github.com/kailas-cloud/facetdex/internal/usecase/records"
)

const maxLineSize = 4 << 20

func newLoadCmd(root *rootOptions) *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "load INDEX FILE",
		Short: "Load newline-delimited JSON records into an index (FILE - reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("open records: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			if batchSize <= 0 {
				batchSize = a.cfg.Records.MaxBatchSize
			}
			stats, err := loadRecords(cmd.Context(), a.records, args[0], in, batchSize, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records into %q, %d failed\n", stats.ok, args[0], stats.failed)
			if stats.failed > 0 {
				return fmt.Errorf("%d records failed", stats.failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per write (defaults to records.max_batch_size)")
	return cmd
}

type batchWriter interface {
	UpsertBatch(ctx context.Context, index string, items []map[string]any) ([]recordsuc.ItemResult, error)
}

type loadStats struct {
	ok     int
	failed int
}

// loadRecords streams NDJSON records from in and writes them in batches.
// Lines that are not JSON objects count as failures and are skipped.
func loadRecords(
	ctx context.Context, w batchWriter, index string, in io.Reader, batchSize int, logger *zap.Logger,
) (loadStats, error) {
	var stats loadStats
	batch := make([]map[string]any, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := w.UpsertBatch(ctx, index, batch)
		if err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		for _, r := range res {
			if r.OK() {
				stats.ok++
				continue
			}
			stats.failed++
			logger.Warn("record rejected", zap.String("objectID", r.ID), zap.Error(r.Err))
		}
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var attrs map[string]any
		if err := json.Unmarshal(raw, &attrs); err != nil || attrs == nil {
			stats.failed++
			logger.Warn("skipping malformed line", zap.Int("line", line), zap.Error(err))
			continue
		}
		batch = append(batch, attrs)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read records: %w", err)
	}
	return stats, flush()
}
