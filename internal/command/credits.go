// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/economy"
	"github.com/staranto/leobotgo/internal/meta"
	"github.com/staranto/leobotgo/internal/subsystem"
)

// now is replaced in tests.
var now = time.Now

func newEconomy(set *subsystem.Set) *economy.Economy {
	amount, _ := config.GetInt("economy.payday_amount", int(economy.DefaultPaydayAmount))
	return economy.New(set.UserData.Store(), economy.WithPaydayAmount(int64(amount)))
}

// splitAmount separates "<user>... <amount>" arguments.
func splitAmount(args []string, minUsers int) ([]string, int64, error) {
	if len(args) < minUsers+1 {
		return nil, 0, fmt.Errorf("expected at least %d user(s) and an amount", minUsers)
	}
	users, raw := args[:len(args)-1], args[len(args)-1]
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid amount %q", raw)
	}
	for _, u := range users {
		if u == "" || strings.ContainsAny(u, `/\`) {
			return nil, 0, fmt.Errorf("invalid user id %q", u)
		}
	}
	return users, amount, nil
}

func userArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("expected exactly one user id")
	}
	return cmd.Args().First(), nil
}

// BalanceCommandAction reports a user's credits without opening an account.
func BalanceCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		bal, ok, err := newEconomy(set).Balance(ctx, user, false)
		if err != nil {
			return err
		}
		if !ok {
			return printf(Stdout(cmd), "user %s doesn't have an account!\n", user)
		}
		return printf(Stdout(cmd), "user %s has %d credits\n", user, bal)
	})
}

// DepositCommandAction and WithdrawCommandAction move credits for one user.
func DepositCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	users, amount, err := splitAmount(cmd.Args().Slice(), 1)
	if err != nil {
		return err
	}
	if len(users) != 1 {
		return errors.New("deposit takes one user id")
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		bal, err := newEconomy(set).Deposit(ctx, users[0], amount)
		if err != nil {
			return err
		}
		return printf(Stdout(cmd), "Deposited %d credits. user %s now has %d credits\n", amount, users[0], bal)
	})
}

func WithdrawCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	users, amount, err := splitAmount(cmd.Args().Slice(), 1)
	if err != nil {
		return err
	}
	if len(users) != 1 {
		return errors.New("withdraw takes one user id")
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		bal, err := newEconomy(set).Withdraw(ctx, users[0], amount)
		if errors.Is(err, economy.ErrInsufficientFunds) {
			return fmt.Errorf("user %s only has %d credits: %w", users[0], bal, economy.ErrInsufficientFunds)
		}
		if err != nil {
			return err
		}
		return printf(Stdout(cmd), "Withdrew %d credits. user %s now has %d credits\n", amount, users[0], bal)
	})
}

// SetCreditsCommandAction overwrites the balance of one or more users.
func SetCreditsCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	users, amount, err := splitAmount(cmd.Args().Slice(), 1)
	if err != nil {
		return err
	}
	if amount < 0 {
		return economy.ErrInvalidAmount
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		econ := newEconomy(set)
		lines := make([]string, 0, len(users))
		for _, u := range users {
			old, had, err := econ.SetBalance(ctx, u, amount)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%s (%s -> %d)", u, oldBalance(old, had), amount))
		}
		return printf(Stdout(cmd), "Successfully set the account balance of the following users to %d:\n%s\n",
			amount, strings.Join(lines, "\n"))
	})
}

// AddCreditsCommandAction adjusts the balance of one or more users. Negative
// amounts subtract; balances never drop below zero.
func AddCreditsCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	users, delta, err := splitAmount(cmd.Args().Slice(), 1)
	if err != nil {
		return err
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		econ := newEconomy(set)
		lines := make([]string, 0, len(users))
		for _, u := range users {
			old, had, bal, err := econ.Add(ctx, u, delta)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%s (%s -> %d)", u, oldBalance(old, had), bal))
		}
		return printf(Stdout(cmd), "Successfully added %d to the account balance of the following users:\n%s\n",
			delta, strings.Join(lines, "\n"))
	})
}

func oldBalance(old int64, had bool) string {
	if !had {
		return "none"
	}
	return strconv.FormatInt(old, 10)
}

// PaydayCommandAction redeems the user's daily payday.
func PaydayCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		res, err := newEconomy(set).Payday(ctx, user, now())
		if errors.Is(err, economy.ErrCooldown) {
			return printf(Stdout(cmd), "Not yet! Your next payday is in %s!\n", economy.FormatWait(res.Next))
		}
		if err != nil {
			return err
		}
		return printf(Stdout(cmd), "Payday redeemed! You earned %d credits! Your next payday is in %s!\n",
			res.Paid, economy.FormatWait(res.Next))
	})
}

// CreditsCommandBuilder returns the credits command and its subcommands.
func CreditsCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	sub := func(name, usage, usageText string, action func(context.Context, *cli.Command, *Session) error) *cli.Command {
		return (&CommandBuilder{
			Name:      name,
			Usage:     usage,
			UsageText: usageText,
			NoOutput:  true,
			Action:    action,
			Meta:      meta,
			Session:   sess,
		}).Build()
	}

	return (&CommandBuilder{
		Name:     "credits",
		Usage:    "manage user credit balances",
		NoOutput: true,
		Meta:     meta,
		Session:  sess,
		Commands: []*cli.Command{
			sub("balance", "show a user's credits", "leobot credits balance <user>", BalanceCommandAction),
			sub("deposit", "add credits to a user", "leobot credits deposit <user> <amount>", DepositCommandAction),
			sub("withdraw", "remove credits from a user", "leobot credits withdraw <user> <amount>", WithdrawCommandAction),
			sub("set", "set the balance of users", "leobot credits set <user>... <amount>", SetCreditsCommandAction),
			sub("add", "adjust the balance of users", "leobot credits add <user>... <amount>", AddCreditsCommandAction),
			sub("payday", "redeem the daily payday", "leobot credits payday <user>", PaydayCommandAction),
		},
	}).Build()
}
