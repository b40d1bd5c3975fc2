package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brewlab/brewlog-cli/internal/csvio"
)

var exportCmd = &cobra.Command{
	Use:   "export <output.xlsx> [input.csv]",
	Short: "Export the brew log to an XLSX spreadsheet",
	Long:  "Reads the brew log CSV and writes it as a spreadsheet with the same columns, numeric cells typed for charting.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath := args[0]
		if !strings.HasSuffix(outputPath, ".xlsx") {
			return eris.Errorf("export: output must be an .xlsx path, got %s", outputPath)
		}

		inputPath := defaultInputPath
		if len(args) > 1 {
			inputPath = args[1]
		}

		table, extraCols, err := csvio.Load(inputPath)
		if err != nil {
			return eris.Wrapf(err, "load %s", inputPath)
		}

		if err := csvio.WriteXLSX(outputPath, table, extraCols); err != nil {
			return err
		}

		zap.L().Info("exported brew log",
			zap.String("input", inputPath),
			zap.String("output", outputPath),
			zap.Int("entries", len(table)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
