package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/smallbiznis/disputeops/internal/audit"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	auditcontext "github.com/smallbiznis/disputeops/internal/auditcontext"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/dispute"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/ingest"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const cliActor = "disputectl"

func newImportCmd() *cobra.Command {
	var rawCategory string

	cmd := &cobra.Command{
		Use:   "import --category <category> <file.csv>...",
		Short: "Import CSV batch files into a dispute category",
		Long: "Import CSV batch files into a dispute category. Each file is imported once:\n" +
			"a file whose content is already in the ingest ledger is reported as skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			category, err := disputedomain.ParseCategory(rawCategory)
			if err != nil {
				return fmt.Errorf("unknown category %q", rawCategory)
			}

			var (
				importer *ingest.Importer
				authzSvc authorization.Service
				auditSvc auditdomain.Service
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeSystem, cliActor)
				if err := authzSvc.Authorize(ctx, authorization.RoleSystem, authorization.RoleSystem,
					authorization.ObjectDisputeRecord, authorization.ActionDisputeRecordLoad); err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "FILE\tSTATUS\tRECORDS\tBATCH")
				for _, path := range files {
					res, err := importer.ImportFile(ctx, category, path)
					if err != nil {
						return err
					}
					status := "imported"
					if res.Skipped {
						status = "skipped"
					} else {
						auditBatch(ctx, auditSvc, category, res.Entry)
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", path, status, res.Entry.Records, res.Entry.BatchID)
				}
				return nil
			},
				authorization.Module,
				audit.Module,
				dispute.Module,
				ingest.Module,
				fx.Populate(&importer, &authzSvc, &auditSvc),
			)
		},
	}
	cmd.Flags().StringVarP(&rawCategory, "category", "c", "", "target category (e.g. received-chargebacks)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func auditBatch(ctx context.Context, auditSvc auditdomain.Service, category disputedomain.Category, entry ingest.Entry) {
	actorID := cliActor
	batchID := entry.BatchID
	_ = auditSvc.AuditLog(ctx, auditcontext.ActorTypeSystem, &actorID, "IMPORT_BATCH", string(category), &batchID, map[string]any{
		"file":    entry.File,
		"records": entry.Records,
		"sha256":  entry.SHA256,
	})
}
