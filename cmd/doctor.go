package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"PipelineUtils/internal/doctor"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, S3 connectivity, artefacts, and disk",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		cmd.Printf("Config: ERROR: %v\n", err)
		return err
	}
	store, err := newStore(cmd.Context(), cfg)
	if err != nil {
		cmd.Printf("S3 client: ERROR: %v\n", err)
		return err
	}

	results := doctor.Run(cmd.Context(), cfg, store)
	allOK := true
	for _, r := range results {
		status := "OK"
		if !r.OK {
			status = "ERROR"
			allOK = false
		}
		cmd.Printf("%-12s %s: %s\n", r.Name, status, r.Detail)
	}
	if !allOK {
		return fmt.Errorf("one or more checks failed; see output above")
	}
	return nil
}
