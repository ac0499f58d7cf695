package commands

import (
	"io"

	"ticket-marketplace/internal/services"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect event catalog files",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a catalog file and print its events",
	Long: `Validate a YAML or JSON catalog file the same way the server does on
start, print every accepted event with its ticket types, and list rejected
records. Exits non-zero when any record is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogCheck,
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogCheck(cmd *cobra.Command, args []string) error {
	p := newPrinter(cmd)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	catalog := services.NewCatalogService(services.NewFileCatalogProvider(args[0]), logrus.NewEntry(quiet))
	result, err := catalog.Load(cmd.Context())
	if err != nil {
		return p.Error("Failed to read catalog", err.Error())
	}

	for _, event := range catalog.List() {
		p.Success("%s  %s (%s)", event.ID, event.Title, event.Date.Format("2006-01-02 15:04"))
		for _, tt := range event.TicketTypes {
			p.Info("    %-12s %-20s price=%d available=%d max=%d", tt.ID, tt.Name, tt.Price, tt.Available, tt.MaxPerPerson)
		}
	}

	for _, rejected := range result.Rejected {
		p.Warning("record %d rejected: %v", rejected.Index, rejected.Err)
	}

	if len(result.Rejected) > 0 {
		return p.Error("Catalog has invalid records", "Fix the records listed above and run the check again.")
	}

	p.Info("%d events loaded", result.Loaded)
	return nil
}
