package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"study-vault/internal/app"
	"study-vault/internal/auth"
	"study-vault/internal/config"
	"study-vault/internal/domain"
)

// NewCreateUserCmd creates an account directly in the database, typically the first teacher.
func NewCreateUserCmd(configPath *string) *cobra.Command {
	var in app.SignupInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account (e.g. the first teacher)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			recs, err := openRecords(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer recs.close()

			in.Role = domain.Role(role)
			users := app.NewUserService(recs.store, auth.NewBcryptHasher(cfg.Auth.BcryptCost), nil)
			user, err := users.Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			log.Printf("created %s %s (%s)", user.Role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "username")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (at least 5 characters with a digit)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleTeacher), "student or teacher")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
