package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"osintgraph/internal/report"
)

var sessionsExportPath string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect the session archive",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived session document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsShowCmd.Flags().StringVar(&sessionsExportPath, "export", "", "write the document to this path instead of stdout")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	repo, err := a.openArchive()
	if err != nil {
		return err
	}
	defer repo.Close()

	sessions, err := repo.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No archived sessions.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tNODES\tLINKS\tLABEL")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.CreatedAt.Local().Format(time.DateTime), s.NodeCount, s.LinkCount, s.Label)
	}
	return tw.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	repo, err := a.openArchive()
	if err != nil {
		return err
	}
	defer repo.Close()

	s, err := repo.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if sessionsExportPath == "" {
		return printJSON(os.Stdout, s)
	}

	exporter, err := a.codecs.Exporter(formatOf(sessionsExportPath, a.cfg.Report.ExportFormat))
	if err != nil {
		return err
	}
	if err := report.ExportFile(sessionsExportPath, s.Document, exporter); err != nil {
		return err
	}
	fmt.Printf("Session %s exported to %s\n", s.ID, sessionsExportPath)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	repo, err := a.openArchive()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}
