package cli

import (
	"context"

	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

func (a *App) periodCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Close, reopen and adjust accounting periods",
	}

	// byPeriod builds a command that applies op to the YYYY-MM period argument
	byPeriod := func(use, short string, op func(ctx context.Context, svc *ledgerapp.Services, period string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <period>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, args []string) (any, error) {
				if err := a.periodArg(args[0]); err != nil {
					return nil, err
				}
				return op(ctx, svc, args[0])
			}),
		}
	}

	closePeriod := byPeriod("close", "Close a period and carry balances forward", func(ctx context.Context, svc *ledgerapp.Services, period string) (any, error) {
		return svc.Periods.Close(ctx, period)
	})
	reopen := byPeriod("reopen", "Reopen a closed period", func(ctx context.Context, svc *ledgerapp.Services, period string) (any, error) {
		return svc.Periods.Reopen(ctx, period)
	})

	var off bool
	adjustment := byPeriod("adjustment", "Switch a closed period into adjustment mode", func(ctx context.Context, svc *ledgerapp.Services, period string) (any, error) {
		return svc.Periods.SetAdjustment(ctx, period, !off)
	})
	adjustment.Flags().BoolVar(&off, "off", false, "leave adjustment mode instead")

	var file string
	post := &cobra.Command{
		Use:   "post-adjustment",
		Short: "Post an adjustment voucher into a period in adjustment mode",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			var req dto.CreateVoucherRequest
			if err := a.readJSON(file, &req); err != nil {
				return nil, err
			}
			command, err := req.ToCommand()
			if err != nil {
				return nil, err
			}
			return svc.Periods.PostAdjustment(ctx, command)
		}),
	}
	post.Flags().StringVarP(&file, "file", "f", "", "voucher JSON document, - for stdin")

	cmd.AddCommand(closePeriod, reopen, adjustment, post)
	return cmd
}
