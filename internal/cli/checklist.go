package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/casecheck/internal/model"
	"github.com/ppiankov/casecheck/internal/service"
)

var (
	showJSON     string
	itemCategory string
	itemValue    string
	itemDoc      int
	itemStart    int
	itemEnd      int
	editTimeout  time.Duration
)

// checklistCmd groups checklist inspection and manual edits
var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Show or edit the checklist of a case",
	Long: `Inspect and edit a case checklist.

Manual items belong to the case and survive re-extraction. Removing a value
uses the id printed by 'casecheck checklist show' (ai::<key>::<n> or user::<id>).`,
}

var checklistShowCmd = &cobra.Command{
	Use:   "show <case-id>",
	Short: "Show the current checklist of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()

		p, logger, err := openPipeline(false)
		if err != nil {
			return err
		}
		defer func() {
			_ = p.Close()
			_ = logger.Sync()
		}()

		report, err := p.Checklist(ctx, args[0])
		if err != nil {
			return err
		}
		return renderReport(p, report, showJSON, "")
	},
}

var checklistAddCmd = &cobra.Command{
	Use:   "add <case-id>",
	Short: "Add a manual item to a case checklist",
	Long: `Add a manual item to a case checklist.

Example:
  casecheck checklist add doe-v-acme --category outcome --value "Fee award pending"
  casecheck checklist add doe-v-acme --category parties --value "Acme Corp." --doc 1 --start 120 --end 130`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.UserItemInput{CategoryID: itemCategory, Value: itemValue}
		if cmd.Flags().Changed("doc") {
			in.DocumentID = model.IntPtr(itemDoc)
		}
		if cmd.Flags().Changed("start") {
			in.StartOffset = model.IntPtr(itemStart)
		}
		if cmd.Flags().Changed("end") {
			in.EndOffset = model.IntPtr(itemEnd)
		}

		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()

		p, logger, err := openPipeline(false)
		if err != nil {
			return err
		}
		defer func() {
			_ = p.Close()
			_ = logger.Sync()
		}()

		item, err := p.AddUserItem(ctx, args[0], in)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added %s to %s\n", service.UserValueID(item.ID), item.CategoryID)
		return nil
	},
}

var checklistRemoveCmd = &cobra.Command{
	Use:   "remove <case-id> <value-id>",
	Short: "Remove a value from a case checklist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()

		p, logger, err := openPipeline(false)
		if err != nil {
			return err
		}
		defer func() {
			_ = p.Close()
			_ = logger.Sync()
		}()

		if err := p.RemoveValue(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Removed %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checklistCmd)
	checklistCmd.AddCommand(checklistShowCmd)
	checklistCmd.AddCommand(checklistAddCmd)
	checklistCmd.AddCommand(checklistRemoveCmd)

	// A missing checklist is extracted first, so edits share the extraction timeout
	checklistCmd.PersistentFlags().DurationVar(&editTimeout, "timeout", 10*time.Minute, "timeout including a first extraction")

	checklistShowCmd.Flags().StringVar(&showJSON, "json", "", "output JSON path ('-' for stdout)")

	checklistAddCmd.Flags().StringVar(&itemCategory, "category", "", "category id (see 'casecheck definitions')")
	checklistAddCmd.Flags().StringVar(&itemValue, "value", "", "value text")
	checklistAddCmd.Flags().IntVar(&itemDoc, "doc", 0, "document id the value comes from")
	checklistAddCmd.Flags().IntVar(&itemStart, "start", 0, "start byte offset in the document")
	checklistAddCmd.Flags().IntVar(&itemEnd, "end", 0, "end byte offset in the document (exclusive)")
	_ = checklistAddCmd.MarkFlagRequired("category")
	_ = checklistAddCmd.MarkFlagRequired("value")
}
