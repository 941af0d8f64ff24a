// Package cli содержит команды административной утилиты billingctl.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

// Env зависимости команд. Поля заполняются в PersistentPreRunE корневой команды,
// тесты подставляют их напрямую.
type Env struct {
	Config  *config.Config
	DB      *sql.DB
	Roles   RoleSetter
	Storage *repository.Storage
}

// RoleSetter меняет роль пользователя.
type RoleSetter interface {
	SetUserRole(ctx context.Context, username, role string) error
}

// NewRootCmd собирает дерево команд billingctl.
// Если env.Config пуст, конфиг и подключение к БД создаются перед запуском подкоманды.
func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Administrative tool for the billing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if env.Config != nil {
				return nil
			}
			return env.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.Storage != nil {
				_ = env.Storage.Close()
			}
		},
	}

	root.AddCommand(newMigrateCmd(env), newPromoteCmd(env), newEventsCmd(env))
	return root
}

func (e *Env) open() error {
	const op = "cli.open"

	cfg := config.MustLoad()
	storage, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	e.Config = cfg
	e.Storage = storage
	e.DB = storage.DB
	e.Roles = storage
	return nil
}
