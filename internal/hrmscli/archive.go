package hrmscli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/phillip-england/hrms/internal/archive"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) archiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Save or inspect attendance over a date range",
	}

	var from, to, out string
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch every day in the range and write a compressed snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today := models.DateOf(a.clock())
			start, err := parseDay(from, today.AddDays(-6))
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := parseDay(to, today)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			snap, err := archive.Build(cmd.Context(), a.api(), start, end, a.logger)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = "attendance-" + start.String() + "-to-" + end.String() + archive.FileSuffix
			}
			if err := writeFile(path, func(f *os.File) error { return archive.Write(f, snap) }); err != nil {
				return err
			}
			a.printf("wrote %s (%d days, %d employees)\n", path, len(snap.Days), len(snap.Employees))
			return nil
		},
	}
	buildCmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD), defaults to six days ago")
	buildCmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), defaults to today")
	buildCmd.Flags().StringVarP(&out, "out", "o", "", "output file")

	inspectCmd := &cobra.Command{
		Use:   "inspect <file" + archive.FileSuffix + ">",
		Short: "Summarize a snapshot written by archive build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			snap, err := archive.Read(f)
			if err != nil {
				return err
			}

			a.printf("%s", renderTitle(fmt.Sprintf("Attendance %s to %s", snap.From, snap.To)))
			a.printf("%d employees, generated %s\n", len(snap.Employees), snap.GeneratedAt.Format("Jan 2, 2006 3:04 PM"))
			rows := make([][]string, 0, len(snap.Days))
			for _, day := range snap.Days {
				present, absent, notMarked := day.Counts()
				rows = append(rows, []string{
					day.Date.String(),
					strconv.Itoa(present),
					strconv.Itoa(absent),
					strconv.Itoa(notMarked),
				})
			}
			a.printf("%s", renderTable([]string{"Date", "Present", "Absent", "Not Marked"}, rows, -1))
			return nil
		},
	}

	cmd.AddCommand(buildCmd, inspectCmd)
	return cmd
}
