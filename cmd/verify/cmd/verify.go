package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

var (
	verifyBarcode string
	verifyBrand   string
	verifyName    string
	verifyQuiet   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the ingredients of one product",
	Long: `Verify the ingredient list of one packaged food product.

Progress is printed to stderr as it happens; the final result is printed to
stdout as JSON. A result that needs manual review still exits 0.

Examples:
  allergyaware verify --brand "Acme" --name "Honey Oat Granola"

  allergyaware verify --barcode 012345678905 --brand Acme --name "Honey Oat Granola" -q`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyBarcode, "barcode", "", "UPC/EAN barcode")
	verifyCmd.Flags().StringVar(&verifyBrand, "brand", "", "brand name")
	verifyCmd.Flags().StringVar(&verifyName, "name", "", "product name (required)")
	verifyCmd.Flags().BoolVarP(&verifyQuiet, "quiet", "q", false, "do not print progress")
	_ = verifyCmd.MarkFlagRequired("name")
}

func runVerify(cmd *cobra.Command, args []string) error {
	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var sink domain.EventSink = domain.DiscardEvents
	if !verifyQuiet {
		sink = progressPrinter(cmd.ErrOrStderr())
	}

	query := domain.ProductQuery{Barcode: verifyBarcode, Brand: verifyBrand, Name: verifyName}
	result, err := a.Verifier.Verify(ctx, query, sink)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}

// progressPrinter renders progress events as plain lines
func progressPrinter(w io.Writer) domain.EventSink {
	return domain.EventSinkFunc(func(e domain.ProgressEvent) {
		switch e.Type {
		case domain.EventLog:
			fmt.Fprintf(w, "  %s\n", e.Message)
		case domain.EventProgress:
			fmt.Fprintf(w, "  [%d/%d sources]\n", e.Found, e.Required)
		case domain.EventResult:
			if e.Result != nil && e.Result.RequiresManualEntry {
				fmt.Fprintf(w, "Manual entry required: %s\n", e.Result.TerminationReason)
			} else if e.Result != nil {
				fmt.Fprintf(w, "Verified by %d sources (%.0f%% consistent)\n", e.Result.SourcesFound, e.Result.ConsistencyScore)
			}
		case domain.EventError:
			fmt.Fprintf(w, "Error: %s\n", e.Error)
		}
	})
}
