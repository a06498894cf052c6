package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ignite-service/internal/model"
	"ignite-service/internal/service/balance"
	"ignite-service/internal/service/ledger"
	"ignite-service/pkg/money"
	"ignite-service/pkg/utils/random"

	"github.com/spf13/cobra"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect and fund ledger accounts",
	}

	var id, externalRef string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.services.Ledger.CreateAccount(cmd.Context(), id, externalRef)
			if err != nil {
				return err
			}
			return printJSON(account)
		},
	}
	create.Flags().StringVar(&id, "id", "", "account id (generated when empty)")
	create.Flags().StringVar(&externalRef, "external-ref", "", "external wallet reference")

	show := &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show internal, external and available balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			funds, err := a.services.Ledger.Funds(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(funds)
		},
	}

	var dedupeKey, note string
	credit := &cobra.Command{
		Use:   "credit <account-id> <amount>",
		Short: "Credit an account through the idempotency guard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.Parse(args[1])
			if err != nil {
				return err
			}
			key := strings.TrimSpace(dedupeKey)
			if key == "" {
				key = "cli-" + random.Code(12)
			}
			payload, err := a.services.Guard.Execute(cmd.Context(), key, func(ctx context.Context) (any, error) {
				return a.services.Ledger.Credit(ctx, args[0], amount, ledger.Memo{Note: note})
			})
			if err != nil {
				return err
			}
			fmt.Printf("dedupe key: %s\n", key)
			return printJSON(json.RawMessage(payload))
		},
	}
	credit.Flags().StringVar(&dedupeKey, "key", "", "dedupe key (random when empty)")
	credit.Flags().StringVar(&note, "note", "", "journal note")

	var page, size int
	history := &cobra.Command{
		Use:   "history <account-id>",
		Short: "Page through an account's journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.services.Journal.History(cmd.Context(), args[0], page, size)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	history.Flags().IntVar(&page, "page", 1, "page number")
	history.Flags().IntVar(&size, "size", 20, "page size")

	cmd.AddCommand(create, show, credit, history)
	return cmd
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect game sessions",
	}

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the session document, falling back to the resolution index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.services.Game.GetSession(cmd.Context(), args[0])
			if err == nil {
				return printJSON(view)
			}
			record, indexErr := a.services.Sessions.Get(cmd.Context(), args[0])
			if indexErr != nil {
				return err
			}
			return printJSON(record)
		},
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List resolved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.services.Sessions.List(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", 20, "page size")

	cmd.AddCommand(show, list)
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Session retention",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Archive sessions past retention once",
		RunE: func(cmd *cobra.Command, args []string) error {
			archived, err := a.services.Sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("archived %d sessions\n", archived)
			return nil
		},
	})
	return cmd
}

func newMirrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Maintain mirrored external balances",
	}

	var chain, token string
	set := &cobra.Command{
		Use:   "set <ref> <balance>",
		Short: "Upsert a mirrored wallet balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.Parse(args[1])
			if err != nil {
				return err
			}
			if amount < 0 {
				return fmt.Errorf("balance must not be negative")
			}
			wallet := model.WalletMirror{
				Ref:                args[0],
				Balance:            int64(amount),
				Chain:              chain,
				Token:              token,
				LastBalanceCheckAt: time.Now(),
			}
			mirror := balance.NewMirrorProvider(a.db)
			if err := mirror.Upsert(cmd.Context(), wallet); err != nil {
				return err
			}
			current, err := mirror.LookupExternalBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], current)
			return nil
		},
	}
	set.Flags().StringVar(&chain, "chain", "", "source chain")
	set.Flags().StringVar(&token, "token", "", "token symbol")

	cmd.AddCommand(set)
	return cmd
}

func newOperatorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts",
	}

	var password, displayName string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.services.Operator.Create(cmd.Context(), args[0], password, displayName)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&displayName, "display-name", "", "display name")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
