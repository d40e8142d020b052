package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scholarloop/scholarloop/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a pipeline operation from the command line",
}

// runGenerate opens the environment, builds the pipeline and prints the
// result of fn as indented JSON.
func runGenerate(cmd *cobra.Command, fn func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error)) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	scope, err := e.scopeFor(cmd)
	if err != nil {
		return err
	}
	p, cleanup, err := e.buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(e, p, scope)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseStudent(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid student ID %q: %w", arg, err)
	}
	return id, nil
}

var generateProfileCmd = &cobra.Command{
	Use:   "profile <student-id>",
	Short: "Generate (or reuse) a learner profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStudent(args[0])
		if err != nil {
			return err
		}
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			return p.GenerateProfile(cmd.Context(), scope, id)
		})
	},
}

var generateRoadmapCmd = &cobra.Command{
	Use:   "roadmap <student-id>",
	Short: "Generate (or reuse) a learning roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStudent(args[0])
		if err != nil {
			return err
		}
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			return p.GenerateRoadmap(cmd.Context(), scope, id)
		})
	},
}

var generateAssessmentCmd = &cobra.Command{
	Use:   "assessment <student-id>",
	Short: "Start a diagnostic assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStudent(args[0])
		if err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		kind, _ := cmd.Flags().GetString("kind")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			subj, err := subjectByName(cmd.Context(), e.store, subject)
			if err != nil {
				return nil, err
			}
			return p.StartAssessment(cmd.Context(), scope, pipeline.StartAssessmentInput{
				StudentID: id, SubjectID: subj.ID, Kind: kind, Difficulty: difficulty,
			})
		})
	},
}

var generateWorksheetCmd = &cobra.Command{
	Use:   "worksheet",
	Short: "Generate a printable worksheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ageGroup, _ := cmd.Flags().GetString("age-group")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		topic, _ := cmd.Flags().GetString("topic")
		n, _ := cmd.Flags().GetInt("questions")
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			subj, err := subjectByName(cmd.Context(), e.store, subject)
			if err != nil {
				return nil, err
			}
			return p.GenerateWorksheet(cmd.Context(), scope, pipeline.WorksheetInput{
				SubjectID: subj.ID, AgeGroup: ageGroup, Difficulty: difficulty, Topic: topic, NumQuestions: n,
			})
		})
	},
}

var generateQuizCmd = &cobra.Command{
	Use:   "quiz <student-id>",
	Short: "Generate an adaptive quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStudent(args[0])
		if err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			in := pipeline.QuizInput{StudentID: id}
			if subject != "" {
				subj, err := subjectByName(cmd.Context(), e.store, subject)
				if err != nil {
					return nil, err
				}
				in.SubjectID = &subj.ID
			}
			return p.GenerateQuiz(cmd.Context(), scope, in)
		})
	},
}

var generateMemoryCmd = &cobra.Command{
	Use:   "memory <student-id>",
	Short: "Summarize a student's learning memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStudent(args[0])
		if err != nil {
			return err
		}
		return runGenerate(cmd, func(e *env, p *pipeline.Pipeline, scope pipeline.Scope) (any, error) {
			return p.GetMemorySummary(cmd.Context(), scope, id)
		})
	},
}

func init() {
	generateCmd.PersistentFlags().String("user", "", "Acting user ID (required)")
	generateCmd.PersistentFlags().Bool("force", false, "Regenerate even when inputs are unchanged")
	_ = generateCmd.MarkPersistentFlagRequired("user")

	generateAssessmentCmd.Flags().String("subject", "Mathematics", "Subject name or ID")
	generateAssessmentCmd.Flags().String("kind", "", "baseline, progress or checkpoint")
	generateAssessmentCmd.Flags().String("difficulty", "", "easy, medium or hard")

	generateWorksheetCmd.Flags().String("subject", "Mathematics", "Subject name or ID")
	generateWorksheetCmd.Flags().String("age-group", "8-9", "4-5, 6-7, 8-9, 10-11 or 12-13")
	generateWorksheetCmd.Flags().String("difficulty", "medium", "easy, medium or hard")
	generateWorksheetCmd.Flags().String("topic", "", "Optional topic focus")
	generateWorksheetCmd.Flags().IntP("questions", "n", 0, "Number of questions (default from config)")

	generateQuizCmd.Flags().String("subject", "", "Subject name or ID (default: weakest subject)")

	generateCmd.AddCommand(generateProfileCmd)
	generateCmd.AddCommand(generateRoadmapCmd)
	generateCmd.AddCommand(generateAssessmentCmd)
	generateCmd.AddCommand(generateWorksheetCmd)
	generateCmd.AddCommand(generateQuizCmd)
	generateCmd.AddCommand(generateMemoryCmd)
}
