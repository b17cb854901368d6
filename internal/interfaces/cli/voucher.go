package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

func (a *App) voucherCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voucher",
		Short: "Create and move vouchers through their lifecycle",
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a voucher from a JSON document",
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
			return svc.Vouchers.Create(ctx, command)
		}),
	}
	create.Flags().StringVarP(&file, "file", "f", "", "voucher JSON document, - for stdin")

	// byID builds a command that applies op to the voucher named by its only argument
	byID := func(use, short string, op func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <voucher-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, args []string) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				return op(ctx, svc, id)
			}),
		}
	}

	get := byID("get", "Show a voucher with its entries", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Get(ctx, id)
	})
	review := byID("review", "Review a draft voucher", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Review(ctx, id)
	})
	revert := byID("revert", "Return a reviewed voucher to draft", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Revert(ctx, id)
	})
	confirm := byID("confirm", "Confirm a reviewed voucher and post it", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Confirm(ctx, id)
	})
	remove := byID("delete", "Delete a draft voucher", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		if err := svc.Vouchers.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"voucher_id": id.String(), "status": "deleted"}, nil
	})

	var reason string
	void := byID("void", "Void a voucher, reversing it when confirmed", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Void(ctx, id, reason)
	})
	void.Flags().StringVar(&reason, "reason", "", "why the voucher is voided")

	var reject bool
	var comment string
	approve := byID("approve", "Approve or reject a pending approval", func(ctx context.Context, svc *ledgerapp.Services, id uuid.UUID) (any, error) {
		return svc.Vouchers.Decide(ctx, id, !reject, comment)
	})
	approve.Flags().BoolVar(&reject, "reject", false, "reject instead of approve")
	approve.Flags().StringVar(&comment, "comment", "", "decision comment")

	var before string
	archive := &cobra.Command{
		Use:   "archive",
		Short: "Archive confirmed and voided vouchers of closed periods",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			req := dto.ArchiveRequest{BeforePeriod: before}
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Vouchers.Archive(ctx, req.BeforePeriod)
		}),
	}
	archive.Flags().StringVar(&before, "before", "", "archive periods before this YYYY-MM")

	var query dto.ListVouchersQuery
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List vouchers",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			query.Status = ledger.VoucherStatus(status)
			if err := a.check(query); err != nil {
				return nil, err
			}
			return svc.Vouchers.List(ctx, query.ToFilter())
		}),
	}
	list.Flags().StringVar(&query.Period, "period", "", "only vouchers of this YYYY-MM")
	list.Flags().StringVar(&status, "status", "", "only vouchers in this status")
	list.Flags().BoolVar(&query.IncludeArchived, "include-archived", false, "include archived vouchers")
	list.Flags().IntVar(&query.Page, "page", 1, "page number")
	list.Flags().IntVar(&query.PageSize, "page-size", 50, "vouchers per page")
	list.Flags().StringVar(&query.OrderBy, "order-by", "", "sort column: date, voucher_no, period, status, total_debit, created_at")
	list.Flags().StringVar(&query.OrderDir, "order-dir", "", "asc or desc")

	cmd.AddCommand(create, get, list, review, revert, confirm, void, remove, approve, archive)
	return cmd
}
