package cli

import (
	"context"

	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
)

func (a *App) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Balances, trial balance and template reports",
	}

	var period string
	periodFlag := func(c *cobra.Command) {
		c.Flags().StringVar(&period, "period", "", "accounting period YYYY-MM")
	}

	trial := &cobra.Command{
		Use:   "trial-balance",
		Short: "Trial balance of a period",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			if err := a.periodArg(period); err != nil {
				return nil, err
			}
			return svc.Reports.TrialBalance(ctx, period)
		}),
	}
	periodFlag(trial)

	balances := &cobra.Command{
		Use:   "balances",
		Short: "Account balances of a period",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			if err := a.periodArg(period); err != nil {
				return nil, err
			}
			rows, err := svc.Reports.Balances(ctx, period)
			if err != nil {
				return nil, err
			}
			return map[string]any{"period": period, "balances": rows}, nil
		}),
	}
	periodFlag(balances)

	var name, file string
	template := &cobra.Command{
		Use:   "template",
		Short: "Evaluate a stored or inline report template",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			body, err := a.readRaw(file)
			if err != nil {
				return nil, err
			}
			req := ledgerapp.TemplateRequest{Period: period, TemplateName: name, Template: body}
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Reports.EvaluateTemplate(ctx, req)
		}),
	}
	periodFlag(template)
	template.Flags().StringVar(&name, "name", "", "stored template name")
	template.Flags().StringVarP(&file, "file", "f", "", "inline template JSON, - for stdin")

	var saveName, saveFile string
	save := &cobra.Command{
		Use:   "save-template",
		Short: "Store a report template under a name",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			body, err := a.readRaw(saveFile)
			if err != nil {
				return nil, err
			}
			req := ledgerapp.SaveDocumentRequest{Name: saveName, Body: body}
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Registry.SaveReportTemplate(ctx, req)
		}),
	}
	save.Flags().StringVar(&saveName, "name", "", "template name")
	save.Flags().StringVarP(&saveFile, "file", "f", "", "template JSON, - for stdin")

	cmd.AddCommand(trial, balances, template, save)
	return cmd
}
