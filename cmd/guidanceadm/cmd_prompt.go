package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"guidance-rag/internal/promptpromotion"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage system-prompt versions and production promotion",
}

var promptIncludeDeleted bool

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		versions, err := app.prompts.List(ctx, promptIncludeDeleted)
		if err != nil {
			return err
		}
		for _, v := range versions {
			deleted := ""
			if v.DeletedAt != nil {
				deleted = " (deleted)"
			}
			fmt.Printf("%s  %-20s  by %s  lock=%d%s\n", v.ID, v.Name, v.AuthorID, v.OptimisticLockCounter, deleted)
		}
		return nil
	},
}

var (
	promptCreateName   string
	promptCreateAuthor string
	promptCreateNotes  string
	promptCreateFile   string
)

var promptCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new prompt version from a text file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		text, err := os.ReadFile(promptCreateFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		v, err := app.prompts.Create(ctx, promptpromotion.CreateParams{
			Name: promptCreateName, PromptText: string(text), AuthorID: promptCreateAuthor, Notes: promptCreateNotes,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("created version %s (%s)\n", v.ID, v.Name)
		return nil
	},
}

var promptDeleteCmd = &cobra.Command{
	Use:   "delete [version-id]",
	Short: "Soft-delete a prompt version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		return app.prompts.SoftDelete(ctx, args[0], promptActorID, time.Now().UTC())
	},
}

var promptRestoreCmd = &cobra.Command{
	Use:   "restore [version-id]",
	Short: "Restore a soft-deleted prompt version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		return app.prompts.Restore(ctx, args[0], promptActorID, time.Now().UTC())
	},
}

var promptPreviewCmd = &cobra.Command{
	Use:   "preview [version-id]",
	Short: "Diff a candidate version against the current production prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		res, err := app.prompts.Preview(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("char delta: %+d  line delta: %+d  estimated backup size: %d bytes\n", res.CharDelta, res.LineDelta, res.BackupSizeEst)
		return nil
	},
}

var (
	promptActorID    string
	promptConfirm    bool
)

var promptPromoteCmd = &cobra.Command{
	Use:   "promote [version-id]",
	Short: "Promote a prompt version to production, backing up the outgoing text first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		if err := app.prompts.Promote(ctx, args[0], promptActorID, promptConfirm, time.Now().UTC()); err != nil {
			return err
		}
		fmt.Println("promoted")
		return nil
	},
}

func init() {
	promptListCmd.Flags().BoolVar(&promptIncludeDeleted, "include-deleted", false, "include soft-deleted versions")

	promptCreateCmd.Flags().StringVar(&promptCreateName, "name", "", "version name (globally unique)")
	promptCreateCmd.Flags().StringVar(&promptCreateAuthor, "author", "cli", "author id")
	promptCreateCmd.Flags().StringVar(&promptCreateNotes, "notes", "", "free-form notes")
	promptCreateCmd.Flags().StringVar(&promptCreateFile, "file", "", "path to the prompt text file")
	promptCreateCmd.MarkFlagRequired("name")
	promptCreateCmd.MarkFlagRequired("file")

	for _, c := range []*cobra.Command{promptDeleteCmd, promptRestoreCmd, promptPromoteCmd} {
		c.Flags().StringVar(&promptActorID, "actor", "cli", "actor id for the audit entry")
	}
	promptPromoteCmd.Flags().BoolVar(&promptConfirm, "confirm", false, "required confirmation flag")

	promptCmd.AddCommand(promptListCmd, promptCreateCmd, promptDeleteCmd, promptRestoreCmd, promptPreviewCmd, promptPromoteCmd)
}
