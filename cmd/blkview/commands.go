package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/KevoDB/blkview/pkg/chain"
	"github.com/KevoDB/blkview/pkg/display"
	"github.com/KevoDB/blkview/pkg/export"
	"github.com/KevoDB/blkview/pkg/source"
)

// blockReader is the part of the index the printing helpers need
type blockReader interface {
	Lookup(height uint64) (*block.Block, error)
	Offset(height uint64) (int64, bool)
}

// openIndex indexes a block file. Compressed exports are recognized by
// their extension and decompressed into memory first.
func (a *app) openIndex(path string) (*chain.Index, error) {
	opts := []chain.Option{
		chain.WithLogger(a.logger),
		chain.WithTelemetry(a.tel),
	}

	codec := export.CodecForPath(path)
	if codec == export.CodecNone {
		return chain.Open(path, a.cfg, opts...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chain.ErrFileUnopenable, err)
	}
	defer f.Close()

	data, err := export.Decompress(f, codec)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(map[string]interface{}{
		"path":  path,
		"codec": string(codec),
		"bytes": len(data),
	}).Debug("decompressed export")

	return chain.New(source.FromBytes(data), a.cfg, opts...)
}

func newShowCommand(a *app) *cobra.Command {
	var (
		height uint64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the block at a height",
		Long:  "Print the block at a height. Height 0 is the first record in the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			return showBlock(cmd.OutOrStdout(), idx, height, asJSON)
		},
	}

	cmd.Flags().Uint64Var(&height, "height", 0, "Block height")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the block as JSON")
	return cmd
}

func showBlock(w io.Writer, r blockReader, height uint64, asJSON bool) error {
	b, err := r.Lookup(height)
	if err != nil {
		return err
	}
	offset, _ := r.Offset(height)

	if asJSON {
		data, err := display.JSON(height, offset, b)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	_, err = io.WriteString(w, display.FormatBlock(height, offset, b))
	return err
}

func newScanCommand(a *app) *cobra.Command {
	var from, to uint64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan FILE",
		Short: "Print one summary line per block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("to") {
				to = chain.RangeToEnd
			}

			idx, err := a.openIndex(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			return scanBlocks(cmd.OutOrStdout(), idx, from, to, asJSON)
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "First height")
	cmd.Flags().Uint64Var(&to, "to", 0, "Last height (default: end of chain)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per line")
	return cmd
}

func scanBlocks(w io.Writer, idx *chain.Index, from, to uint64, asJSON bool) error {
	enc := json.NewEncoder(w)
	return idx.Range(from, to, func(h uint64, b *block.Block) error {
		offset, _ := idx.Offset(h)
		if asJSON {
			return enc.Encode(display.NewView(h, offset, b))
		}
		_, err := fmt.Fprintln(w, display.Summary(h, offset, b))
		return err
	})
}

func newExportCommand(a *app) *cobra.Command {
	var from, to uint64
	var codecName string

	cmd := &cobra.Command{
		Use:   "export FILE OUT",
		Short: "Write a range of blocks to a compressed file",
		Long: `Write a range of blocks to a compressed file. The decompressed output is a
block file in the same layout, starting with the first exported record.
The codec defaults to the one implied by OUT's extension (.zst, .sz).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("to") {
				to = chain.RangeToEnd
			}

			codec := export.CodecForPath(args[1])
			if codecName != "" {
				var err error
				if codec, err = export.CodecFromName(codecName); err != nil {
					return err
				}
			}

			idx, err := a.openIndex(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			n, err := exportBlocks(args[1], idx, from, to, codec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d blocks to %s (%s)\n", n, args[1], codec)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "First height")
	cmd.Flags().Uint64Var(&to, "to", 0, "Last height (default: end of chain)")
	cmd.Flags().StringVar(&codecName, "codec", "", "Compression codec (zstd, snappy, none)")
	return cmd
}

func exportBlocks(path string, idx *chain.Index, from, to uint64, codec export.Codec) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w, err := export.NewWriter(f, codec)
	if err != nil {
		return 0, err
	}
	if err := idx.Range(from, to, func(_ uint64, b *block.Block) error {
		return w.Write(b)
	}); err != nil {
		w.Close()
		return w.Count(), err
	}
	if err := w.Close(); err != nil {
		return w.Count(), err
	}
	return w.Count(), f.Sync()
}
