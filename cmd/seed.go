package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the subject catalog, optionally with a demo family",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		dbc := dbctx.New(cmd.Context())
		if err := e.store.Subjects.EnsureDefaults(dbc); err != nil {
			return fmt.Errorf("seed subjects: %w", err)
		}
		subjects, err := e.store.Subjects.List(dbc)
		if err != nil {
			return fmt.Errorf("list subjects: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog has %d subjects.\n", len(subjects))

		demo, _ := cmd.Flags().GetBool("demo")
		if !demo {
			return nil
		}
		name, _ := cmd.Flags().GetString("student")
		age, _ := cmd.Flags().GetInt("age")
		religion, _ := cmd.Flags().GetString("religion")
		interests, _ := cmd.Flags().GetStringSlice("interests")
		subType, _ := cmd.Flags().GetString("subscription")

		rawInterests, err := json.Marshal(interests)
		if err != nil {
			return err
		}

		var (
			acct    = &store.Account{Email: "demo-" + uuid.NewString()[:8] + "@example.com", Name: "Demo Family"}
			user    *store.User
			student *store.Student
		)
		err = e.store.Transaction(func(tx *gorm.DB) error {
			tdb := dbc.WithTx(tx)
			if err := e.store.Accounts.Create(tdb, acct); err != nil {
				return err
			}
			user = &store.User{AccountID: acct.ID, Role: "parent"}
			if err := e.store.Accounts.CreateUser(tdb, user); err != nil {
				return err
			}
			sub := &store.Subscription{AccountID: acct.ID, Type: subType, Status: "active"}
			if subType == store.SubscriptionTrial {
				ends := time.Now().Add(14 * 24 * time.Hour)
				sub.TrialEndsAt = &ends
			}
			if err := e.store.Subscriptions.Upsert(tdb, sub); err != nil {
				return err
			}
			student = &store.Student{
				AccountID: acct.ID, Name: name, Age: age, Religion: religion,
				Interests: datatypes.JSON(rawInterests),
			}
			return e.store.Students.Create(tdb, student)
		})
		if err != nil {
			return fmt.Errorf("seed demo family: %w", err)
		}

		fmt.Fprintf(out, "Account:  %s\n", acct.ID)
		fmt.Fprintf(out, "User:     %s\n", user.ID)
		fmt.Fprintf(out, "Student:  %s (%s, age %d)\n", student.ID, student.Name, student.Age)
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("demo", false, "Also create a demo account, parent user, subscription and student")
	seedCmd.Flags().String("student", "Sam", "Demo student name")
	seedCmd.Flags().Int("age", 9, "Demo student age")
	seedCmd.Flags().String("religion", "", "Demo student religion (affects roadmap subjects)")
	seedCmd.Flags().StringSlice("interests", []string{"space", "animals"}, "Demo student interests")
	seedCmd.Flags().String("subscription", store.SubscriptionMonthly, "Demo subscription type: trial, monthly, yearly or orphan")
}
