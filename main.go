package main

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/config"
	"github.com/mbolis/survey-portal/database"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/routes"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminPassword != "" {
		err = seedAdmin(db, cfg)
		if err != nil {
			log.Fatal("main.seed_admin:", err)
		}
	}

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

// seedAdmin creates the default admin account unless one already exists.
func seedAdmin(db *sql.DB, cfg config.Config) error {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE username = 'admin')").Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cfg.BcryptCost)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, company, is_admin)
		VALUES ('admin', 'admin@localhost', ?, '', 1)`,
		string(hash),
	)
	if err == nil {
		log.Info("Default admin account created")
	}
	return err
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
