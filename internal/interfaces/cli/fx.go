package cli

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

// parseAmount reads a decimal flag value
func parseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidAmount, field+" must be a decimal number").
			WithDetails(map[string]any{"field": field, "value": value})
	}
	return d, nil
}

func (a *App) fxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fx",
		Short: "Exchange rates and revaluation",
	}

	var base, quote, rateType, date, rate string
	addRate := &cobra.Command{
		Use:   "add-rate",
		Short: "Publish an exchange rate",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			req := dto.AddRateRequest{
				BaseCurrency:  base,
				QuoteCurrency: quote,
				RateType:      ledger.RateType(rateType),
				RateDate:      date,
			}
			if err := a.check(req); err != nil {
				return nil, err
			}
			amount, err := parseAmount("rate", rate)
			if err != nil {
				return nil, err
			}
			req.Rate = amount
			command, err := req.ToCommand()
			if err != nil {
				return nil, err
			}
			return svc.Fx.AddRate(ctx, command)
		}),
	}
	addRate.Flags().StringVar(&base, "base", "", "currency being priced")
	addRate.Flags().StringVar(&quote, "quote", "", "currency the price is expressed in")
	addRate.Flags().StringVar(&rateType, "type", "", "spot, closing, average or historical")
	addRate.Flags().StringVar(&date, "date", "", "rate date YYYY-MM-DD")
	addRate.Flags().StringVar(&rate, "rate", "", "units of quote per unit of base")

	revalue := &cobra.Command{
		Use:   "revalue <period>",
		Short: "Revalue foreign currency balances at the period closing rate",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, args []string) (any, error) {
			if err := a.periodArg(args[0]); err != nil {
				return nil, err
			}
			return svc.Fx.Revalue(ctx, args[0])
		}),
	}

	cmd.AddCommand(addRate, revalue)
	return cmd
}

func (a *App) consolidateCommand() *cobra.Command {
	var req ledgerapp.ConsolidateRequest
	var ruleFile, templateFile string
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate company ledgers into group statements",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			var err error
			if req.Rule, err = a.readRaw(ruleFile); err != nil {
				return nil, err
			}
			if req.Template, err = a.readRaw(templateFile); err != nil {
				return nil, err
			}
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Consolidation.Consolidate(ctx, req)
		}),
	}
	cmd.Flags().StringSliceVar(&req.CompanyCodes, "companies", nil, "company codes, comma separated")
	cmd.Flags().StringVar(&req.Period, "period", "", "accounting period YYYY-MM")
	cmd.Flags().StringVar(&req.GroupCurrency, "group-currency", "", "presentation currency of the group")
	cmd.Flags().StringVar(&req.RuleName, "rule-name", "", "stored consolidation rule")
	cmd.Flags().StringVar(&ruleFile, "rule-file", "", "inline consolidation rule JSON")
	cmd.Flags().StringVar(&req.TemplateName, "template-name", "", "stored report template")
	cmd.Flags().StringVar(&templateFile, "template-file", "", "inline report template JSON")
	return cmd
}

func (a *App) allocateCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate department costs by the step method",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			var req ledgerapp.AllocateRequest
			if err := a.readJSON(file, &req); err != nil {
				return nil, err
			}
			return svc.Allocation.Allocate(ctx, req)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "allocation JSON document, - for stdin")
	return cmd
}
