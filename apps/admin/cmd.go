package main

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/pflag"

	"github.com/trezcool/teleapo/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sqlx.DB
	usrSvc   *user.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  setrole --openid OPENID --role admin|manager|agent|viewer - change a user's role")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setRoleCmd := pflag.NewFlagSet("setrole", pflag.ContinueOnError)
	setRoleOpenID := setRoleCmd.StringP("openid", "o", "", "The OpenID the user signed in with.")
	setRoleRole := setRoleCmd.StringP("role", "r", "", "The new role.")
	setRoleCmd.Usage = func() {
		fmt.Println("Usage: setrole --openid OPENID --role ROLE")
		setRoleCmd.PrintDefaults()
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleOpenID == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleOpenID, *setRoleRole)
	default:
		cli.printUsage()
		return errHelp
	}
}
