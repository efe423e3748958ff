package main

import (
	"errors"

	fitAuth "github.com/fitlife/fitAuth"
	"github.com/fitlife/fitAuth/account"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginRemember bool

	registerName    string
	registerConfirm string

	profileName string
	profileGoal string
	profileAge  int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Signs in on the current tab",
	Long: `Restores the tab's session and, when still anonymous, signs in with the
given credentials. Usage:

	fitauth login --email demo@fitlife.com --password demo123
	fitauth login --tab second --email demo@fitlife.com --password demo123
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx := cmd.Context()
		if sess, err := engine.Restore(ctx); err != nil {
			return err
		} else if sess.IsAuthenticated {
			return printJSON(cmd.OutOrStdout(), engine.State())
		}

		res, err := engine.Login(ctx, fitAuth.Credentials{Email: loginEmail, Password: loginPassword}, fitAuth.LoginOptions{RememberMe: loginRemember})
		if err != nil {
			var demoErr *fitAuth.DemoUnavailableError
			if errors.As(err, &demoErr) {
				return errors.New(demoErr.Reason)
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Creates an account and signs in",
	Long: `Registers with the remote service, falling back to the offline table
when it is unreachable. Usage:

	fitauth register --email jane@example.com --password secret1 --name Jane
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		confirm := registerConfirm
		if confirm == "" {
			confirm = loginPassword
		}
		res, err := engine.Register(cmd.Context(), fitAuth.RegisterRequest{
			Email:           loginEmail,
			Password:        loginPassword,
			ConfirmPassword: confirm,
			Name:            registerName,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Signs out of the current tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Restore(cmd.Context()); err != nil {
			return err
		}
		if err := engine.Logout(cmd.Context()); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), engine.State())
	},
}

var closeTabCmd = &cobra.Command{
	Use:   "close-tab",
	Short: "Ends the tab's session as if the page were unloaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Restore(cmd.Context()); err != nil {
			return err
		}
		return engine.HandleLifecycle(cmd.Context(), fitAuth.EventBeforeUnload)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the tab's restored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Restore(cmd.Context()); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			State  fitAuth.State      `json:"state"`
			Source fitAuth.AuthSource `json:"source"`
		}{engine.State(), engine.Source()})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Updates the signed-in user's profile",
	Long: `Applies the given fields to the signed-in user. Unset flags are left
unchanged. Usage:

	fitauth profile --name "Jane D" --goal "run a 10k"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Restore(cmd.Context()); err != nil {
			return err
		}

		var patch account.ProfilePatch
		if cmd.Flags().Changed("name") {
			patch.Name = &profileName
		}
		if cmd.Flags().Changed("goal") {
			patch.Goal = &profileGoal
		}
		if cmd.Flags().Changed("age") {
			patch.Age = &profileAge
		}
		u, err := engine.UpdateProfile(cmd.Context(), patch)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, closeTabCmd, statusCmd, profileCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "account email")
		c.Flags().StringVar(&loginPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "remember the credentials for silent sign-in")

	registerCmd.Flags().StringVar(&registerName, "name", "", "display name")
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "password confirmation; defaults to --password")

	profileCmd.Flags().StringVar(&profileName, "name", "", "display name")
	profileCmd.Flags().StringVar(&profileGoal, "goal", "", "fitness goal")
	profileCmd.Flags().IntVar(&profileAge, "age", 0, "age in years")
}
