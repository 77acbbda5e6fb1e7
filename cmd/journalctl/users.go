package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	// create
	var email, displayName, tz, tier string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email required")
			}
			payload := map[string]interface{}{"email": email}
			if displayName != "" {
				payload["displayName"] = displayName
			}
			if tz != "" {
				payload["timeZone"] = tz
			}
			if tier != "" {
				payload["subscriptionTier"] = tier
			}
			resp, err := client().R().SetBody(payload).Post("/api/users")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.Body())
			}
			printJSON(resp.Body())
			return nil
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	createCmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name")
	createCmd.Flags().StringVarP(&tz, "tz", "t", "", "Time zone (defaults UTC)")
	createCmd.Flags().StringVar(&tier, "tier", "", "Subscription tier (free, premium, pro)")
	_ = createCmd.MarkFlagRequired("email")
	usersCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Get("/api/users/" + args[0])
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.Body())
			}
			printJSON(resp.Body())
			return nil
		},
	}
	usersCmd.AddCommand(getCmd)

	// prefs
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show user preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Get("/api/users/" + userFlag + "/preferences")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.Body())
			}
			printJSON(resp.Body())
			return nil
		},
	}
	usersCmd.AddCommand(prefsCmd)

	// usage
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Show monthly usage for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Get("/api/users/" + userFlag + "/usage")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.Body())
			}
			printJSON(resp.Body())
			return nil
		},
	}
	usersCmd.AddCommand(usageCmd)

	rootCmd.AddCommand(usersCmd)
}
