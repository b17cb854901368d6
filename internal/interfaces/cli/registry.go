package cli

import (
	"context"

	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
)

func (a *App) accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Maintain the chart of accounts",
	}

	var req ledgerapp.AddAccountRequest
	var accountType, direction string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			req.Type = ledger.AccountType(accountType)
			req.Direction = ledger.Direction(direction)
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Registry.AddAccount(ctx, req)
		}),
	}
	add.Flags().StringVar(&req.Code, "code", "", "account code")
	add.Flags().StringVar(&req.Name, "name", "", "account name")
	add.Flags().StringVar(&accountType, "type", "", "asset, liability, equity, revenue or expense")
	add.Flags().StringVar(&direction, "direction", "", "debit or credit; defaults from the type")
	add.Flags().StringVar(&req.ParentCode, "parent", "", "parent account code")

	disable := &cobra.Command{
		Use:   "disable <code>",
		Short: "Disable an account for new postings",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, args []string) (any, error) {
			return svc.Registry.DisableAccount(ctx, args[0])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			accounts, err := svc.Registry.ListAccounts(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"accounts": accounts}, nil
		}),
	}

	cmd.AddCommand(add, disable, list)
	return cmd
}

func (a *App) dimensionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dimension",
		Short: "Maintain analytic dimensions",
	}

	var req ledgerapp.AddDimensionRequest
	var dimensionType, creditLimit string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a dimension tag",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			req.Type = ledger.DimensionType(dimensionType)
			if creditLimit != "" {
				limit, err := parseAmount("credit_limit", creditLimit)
				if err != nil {
					return nil, err
				}
				req.CreditLimit = &limit
			}
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Registry.AddDimension(ctx, req)
		}),
	}
	add.Flags().StringVar(&dimensionType, "type", "", "department, project, customer, supplier or employee")
	add.Flags().StringVar(&req.Code, "code", "", "dimension code")
	add.Flags().StringVar(&req.Name, "name", "", "dimension name")
	add.Flags().StringVar(&req.ParentCode, "parent", "", "parent dimension code")
	add.Flags().StringVar(&creditLimit, "credit-limit", "", "credit limit of a customer")

	cmd.AddCommand(add)
	return cmd
}

func (a *App) budgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Maintain expense budgets",
	}

	var req ledgerapp.SetBudgetRequest
	var dimensionType, amount string
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the expense ceiling of a dimension in a period",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			req.DimensionType = ledger.DimensionType(dimensionType)
			if err := a.check(req); err != nil {
				return nil, err
			}
			value, err := parseAmount("amount", amount)
			if err != nil {
				return nil, err
			}
			req.Amount = value
			return svc.Registry.SetBudget(ctx, req)
		}),
	}
	set.Flags().StringVar(&req.Period, "period", "", "accounting period YYYY-MM")
	set.Flags().StringVar(&dimensionType, "dimension-type", "department", "dimension type")
	set.Flags().StringVar(&req.DimensionCode, "dimension", "", "dimension code")
	set.Flags().StringVar(&amount, "amount", "", "expense ceiling")

	cmd.AddCommand(set)
	return cmd
}

func (a *App) ruleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Audit rules and consolidation rules",
	}

	var req ledgerapp.AddAuditRuleRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or replace an audit rule",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Registry.AddAuditRule(ctx, req)
		}),
	}
	add.Flags().StringVar(&req.Code, "code", "", "rule code")
	add.Flags().StringVar(&req.Description, "description", "", "rule description")
	add.Flags().StringVar(&req.Expression, "expression", "", "boolean expression over the voucher")
	add.Flags().StringVar(&req.Message, "message", "", "message reported when the rule fails")

	var name, file string
	saveConsolidation := &cobra.Command{
		Use:   "save-consolidation",
		Short: "Store a consolidation rule under a name",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			body, err := a.readRaw(file)
			if err != nil {
				return nil, err
			}
			doc := ledgerapp.SaveDocumentRequest{Name: name, Body: body}
			if err := a.check(doc); err != nil {
				return nil, err
			}
			return svc.Registry.SaveConsolidationRule(ctx, doc)
		}),
	}
	saveConsolidation.Flags().StringVar(&name, "name", "", "rule name")
	saveConsolidation.Flags().StringVarP(&file, "file", "f", "", "rule JSON, - for stdin")

	cmd.AddCommand(add, saveConsolidation)
	return cmd
}

func (a *App) companyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Companies available for consolidation",
	}

	var req ledgerapp.RegisterCompanyRequest
	register := &cobra.Command{
		Use:   "register",
		Short: "Register or update a company",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *ledgerapp.Services, _ []string) (any, error) {
			if err := a.check(req); err != nil {
				return nil, err
			}
			return svc.Registry.RegisterCompany(ctx, req)
		}),
	}
	register.Flags().StringVar(&req.Code, "code", "", "company code")
	register.Flags().StringVar(&req.Name, "name", "", "company name")
	register.Flags().StringVar(&req.BaseCurrency, "currency", "", "functional currency")
	register.Flags().StringVar(&req.LedgerOrgID, "ledger-org", "", "org holding the company's ledger; defaults to the code")

	cmd.AddCommand(register)
	return cmd
}
