package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	entriesCmd := &cobra.Command{Use: "entries", Short: "Journal entry operations"}

	// upload
	var duration float64
	uploadCmd := &cobra.Command{
		Use:   "upload AUDIO_FILE",
		Short: "Upload an audio recording as a new entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().
				SetFile("audio", args[0]).
				SetFormData(map[string]string{
					"duration": strconv.FormatFloat(duration, 'f', -1, 64),
				}).
				Post("/api/users/" + userFlag + "/entries/upload-audio")
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
	uploadCmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Recording duration in seconds (required)")
	_ = uploadCmd.MarkFlagRequired("duration")
	entriesCmd.AddCommand(uploadCmd)

	// process
	processCmd := &cobra.Command{
		Use:   "process ENTRY_ID",
		Short: "Run transcription and analysis for an uploaded entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().
				Post("/api/users/" + userFlag + "/entries/" + args[0] + "/process")
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
	entriesCmd.AddCommand(processCmd)

	// text
	var text string
	textCmd := &cobra.Command{
		Use:   "text",
		Short: "Create an entry from typed text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("--text required")
			}
			resp, err := client().R().
				SetBody(map[string]interface{}{"text": text}).
				Post("/api/users/" + userFlag + "/entries/text")
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
	textCmd.Flags().StringVarP(&text, "text", "x", "", "Entry text (required)")
	_ = textCmd.MarkFlagRequired("text")
	entriesCmd.AddCommand(textCmd)

	// list
	var page, limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().
				SetQueryParam("page", strconv.Itoa(page)).
				SetQueryParam("limit", strconv.Itoa(limit)).
				Get("/api/users/" + userFlag + "/entries")
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
	listCmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	listCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Entries per page")
	entriesCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ENTRY_ID",
		Short: "Get an entry by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Get("/api/users/" + userFlag + "/entries/" + args[0])
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
	entriesCmd.AddCommand(getCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry statistics for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Get("/api/users/" + userFlag + "/entries/stats")
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
	entriesCmd.AddCommand(statsCmd)

	// trash
	trashCmd := &cobra.Command{
		Use:   "trash",
		Short: "List soft-deleted entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Get("/api/users/" + userFlag + "/entries/trash")
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
	entriesCmd.AddCommand(trashCmd)

	// fix-streaks
	fixCmd := &cobra.Command{
		Use:   "fix-streaks",
		Short: "Recompute streak counters from entry history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			resp, err := client().R().Post("/api/users/" + userFlag + "/entries/fix-streaks")
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
	entriesCmd.AddCommand(fixCmd)

	rootCmd.AddCommand(entriesCmd)
}
