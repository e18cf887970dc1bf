package main

import (
	"context"
	"fmt"

	"github.com/trezcool/teleapo/core/user"
)

// setRole changes the role of the user who signed in with openID.
func (cli *commandLine) setRole(openID, role string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByOpenID(ctx, openID)
	if err != nil {
		return err
	}
	ur := user.UpdateRole{UserID: usr.ID, Role: role}
	if err := cli.validate.Struct(ur); err != nil {
		return err
	}
	if err := cli.usrSvc.UpdateRole(ctx, ur); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", openID, role)
	return nil
}
