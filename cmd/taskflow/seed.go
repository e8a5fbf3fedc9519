package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/config"
	"github.com/mwhited/taskflow/internal/database"
	"github.com/mwhited/taskflow/internal/task"
	"github.com/mwhited/taskflow/internal/team"
	"github.com/mwhited/taskflow/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo owner, users, a team, and sample tasks",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const seedPassword = "changeme123"

var demoUsers = []user.CreateUserInput{
	{Name: "Olivia Owner", Email: "owner@taskflow.local", Password: seedPassword, Role: auth.RoleUser},
	{Name: "Alex Admin", Email: "admin@taskflow.local", Password: seedPassword, Role: auth.RoleAdmin},
	{Name: "Uma User", Email: "uma@taskflow.local", Password: seedPassword, Role: auth.RoleUser},
	{Name: "Victor User", Email: "victor@taskflow.local", Password: seedPassword, Role: auth.RoleUser},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	userStore := user.NewStore(db)
	teamStore := team.NewStore(db)
	taskStore := task.NewStore(db)

	// Check if seed has already run.
	if _, err := userStore.GetByEmail(ctx, demoUsers[0].Email); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	// The first insert into an empty users table becomes the owner.
	users := make([]*user.User, 0, len(demoUsers))
	for _, in := range demoUsers {
		u, err := userStore.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", in.Email, err)
		}
		slog.Info("created user", "email", u.Email, "role", u.Role, "is_owner", u.IsOwner)
		users = append(users, u)
	}
	owner, uma, victor := users[0], users[2], users[3]

	t, err := teamStore.Create(ctx, team.CreateTeamInput{
		Name:        "Platform",
		Description: "Platform engineering team",
		MemberIDs:   []uuid.UUID{uma.ID, victor.ID},
		CreatedBy:   owner.ID,
	})
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	slog.Info("created team", "name", t.Name, "id", t.ID)

	demoTasks := []task.CreateTaskInput{
		{
			Title:       "Write onboarding guide",
			Description: "Document the local setup for new hires.",
			Deadline:    time.Now().Add(72 * time.Hour),
			Priority:    task.PriorityMedium,
			AssignedTo:  &uma.ID,
			CreatedBy:   owner.ID,
		},
		{
			Title:       "Rotate database credentials",
			Description: "Quarterly credential rotation for the staging cluster.",
			Deadline:    time.Now().Add(24 * time.Hour),
			Priority:    task.PriorityHigh,
			AssignedTo:  &victor.ID,
			CreatedBy:   owner.ID,
		},
		{
			Title:       "Review alerting thresholds",
			Description: "Tune noisy alerts flagged in the last on-call retro.",
			Deadline:    time.Now().Add(120 * time.Hour),
			Priority:    task.PriorityLow,
			TeamID:      &t.ID,
			CreatedBy:   owner.ID,
		},
	}
	for _, in := range demoTasks {
		created, err := taskStore.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating task %q: %w", in.Title, err)
		}
		slog.Info("created task", "title", created.Title, "id", created.ID)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Owner:     %s\n", owner.Email)
	fmt.Printf("Admin:     %s\n", users[1].Email)
	fmt.Printf("Users:     %s, %s\n", uma.Email, victor.Email)
	fmt.Printf("Password:  %s\n", seedPassword)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", owner.Email, seedPassword)

	return nil
}
