package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"meetingrec/internal/services"
)

func NewAnalyzeCmd(deps *Dependencies) *cobra.Command {
	var (
		writePDF bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Transcribe and analyze an existing recording",
		Long:  "analyze runs the transcription and analysis steps on a stored recording. A bare file name is looked up in the recordings directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.NewApp(deps.Config, deps.Log)
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				resolved, rerr := a.Recordings.Path(filepath.Base(path))
				if rerr != nil {
					return fmt.Errorf("recording %s: %w", path, err)
				}
				path = resolved
			}

			result, err := a.Meeting.AnalyzeFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printResult(out, result)
			}

			if writePDF {
				pdfPath := a.Files.PDFPath(result.MeetingID)
				report := services.Report{
					Recording:  result.Recording.Name,
					CreatedAt:  result.Recording.CreatedAt,
					Transcript: result.Transcript,
					Analysis:   *result.Analysis,
				}
				if err := a.PDF.RenderFile(pdfPath, report); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", pdfPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writePDF, "pdf", false, "also write a PDF report to the data directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
