package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag    = "storage-path"
	migrationsPathFlag = "migrations-path"
	downFlag           = "down"
)

func main() {
	storagePath := pflag.StringP(storagePathFlag, "s", "", "database dsn")
	migrationsPath := pflag.StringP(migrationsPathFlag, "m", "migrations", "migrations directory")
	down := pflag.Bool(downFlag, false, "roll all migrations back")
	pflag.Parse()

	if *storagePath == "" {
		slog.Error("too few args",
			"err", fmt.Errorf("--%s flag: required", storagePathFlag))
		os.Exit(2)
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", *migrationsPath),
		fmt.Sprintf("pgx5://%s", *storagePath),
	)
	if err != nil {
		fail(err)
	}
	m.Log = migrationLogger{slog.Default()}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		fail(err)
	}
	m.Log.Printf("migration applied")
}

type migrationLogger struct {
	logger *slog.Logger
}

func (ml migrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(fmt.Sprintf(format, v...))
}

func (ml migrationLogger) Verbose() bool { return true }

func fail(err error) {
	slog.Error("failed to migrate", "err", err)
	os.Exit(2)
}
