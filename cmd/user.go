package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer blog accounts",
}

var userLockCmd = &cobra.Command{
	Use:   "lock <email>",
	Short: "Lock an account and revoke all of its sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withUser(args[0], func(ctx context.Context, users service.UserService, user *entity.User) error {
			if err := users.SetStatus(ctx, user.ID, entity.StatusLocked); err != nil {
				return err
			}
			fmt.Printf("locked %s (user_id %d)\n", user.Email, user.ID)
			return nil
		})
	},
}

var userUnlockCmd = &cobra.Command{
	Use:   "unlock <email>",
	Short: "Unlock an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withUser(args[0], func(ctx context.Context, users service.UserService, user *entity.User) error {
			if err := users.SetStatus(ctx, user.ID, entity.StatusActive); err != nil {
				return err
			}
			fmt.Printf("unlocked %s (user_id %d)\n", user.Email, user.ID)
			return nil
		})
	},
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withUser(args[0], func(ctx context.Context, users service.UserService, user *entity.User) error {
			if user.IsAdmin() {
				return fmt.Errorf("%s is already an admin", user.Email)
			}
			if err := users.Promote(ctx, user.ID); err != nil {
				return err
			}
			fmt.Printf("promoted %s (user_id %d) to admin\n", user.Email, user.ID)
			return nil
		})
	},
}

var userRevokeSessionsCmd = &cobra.Command{
	Use:   "revoke-sessions <email>",
	Short: "Delete every refresh token of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withUser(args[0], func(ctx context.Context, users service.UserService, user *entity.User) error {
			if err := users.RevokeSessions(ctx, user.ID); err != nil {
				return err
			}
			fmt.Printf("revoked all sessions of %s (user_id %d)\n", user.Email, user.ID)
			return nil
		})
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete an account together with its sessions and pending recovery code",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withUser(args[0], func(ctx context.Context, users service.UserService, user *entity.User) error {
			if err := confirmEmail(os.Stdin, user.Email); err != nil {
				return err
			}
			if err := users.Delete(ctx, user.ID); err != nil {
				return err
			}
			fmt.Printf("deleted %s (user_id %d)\n", user.Email, user.ID)
			return nil
		})
	},
}

var userCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of registered accounts",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		users, cleanup, err := newUserServiceForCommands()
		if err != nil {
			return err
		}
		defer cleanup()

		total, err := users.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("total_users: %d\n", total)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userLockCmd)
	userCmd.AddCommand(userUnlockCmd)
	userCmd.AddCommand(userPromoteCmd)
	userCmd.AddCommand(userRevokeSessionsCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userCountCmd)
	rootCmd.AddCommand(userCmd)
}

func withUser(email string, fn func(ctx context.Context, users service.UserService, user *entity.User) error) error {
	users, cleanup, err := newUserServiceForCommands()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return fmt.Errorf("no account registered for %q", email)
		}
		return err
	}

	return fn(ctx, users, user)
}

func newUserServiceForCommands() (service.UserService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := buildServices(context.Background(), cfg, db, false)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return svc.users, func() {
		svc.Close()
		_ = db.Close()
	}, nil
}

func confirmEmail(in io.Reader, email string) error {
	reader := bufio.NewReader(in)
	fmt.Printf("Type %s to confirm deletion: ", email)
	input, _ := reader.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(input), email) {
		return errors.New("confirmation did not match, nothing deleted")
	}
	return nil
}
