package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scholarloop",
	Short: "Adaptive learning content pipeline",
	Long: "scholarloop generates assessments, learner profiles, roadmaps, worksheets and " +
		"quizzes for K-12 students, and serves them over HTTP.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (default scholarloop.yaml, or SCHOLARLOOP_CONFIG)")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides store.dsn)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev, prod or test")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
