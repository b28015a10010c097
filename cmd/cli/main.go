package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	email := addUserCmd.String("email", "", "Email for the new user")
	password := addUserCmd.String("password", "", "Password for the new user")
	name := addUserCmd.String("name", "", "Display name for the new user")
	role := addUserCmd.String("role", "user", "Role for the new user (user or admin)")

	pruneCmd := flag.NewFlagSet("prune-audit", flag.ExitOnError)
	days := pruneCmd.Int("days", 90, "Delete audit entries older than this many days")

	if len(os.Args) < 2 {
		fmt.Println("expected 'add-user' or 'prune-audit' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fmt.Println("email and password are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		if *role != string(models.RoleUser) && *role != string(models.RoleAdmin) {
			fmt.Println("role must be 'user' or 'admin'")
			os.Exit(1)
		}
		createUser(*email, *password, *name, models.Role(*role))
	case "prune-audit":
		pruneCmd.Parse(os.Args[2:])
		if *days < 1 {
			fmt.Println("days must be at least 1")
			os.Exit(1)
		}
		pruneAudit(*days)
	default:
		fmt.Println("expected 'add-user' or 'prune-audit' subcommand")
		os.Exit(1)
	}
}

func openStore() *store.Store {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./bayt.db"
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	// Ensure the schema exists if running the cli before the server
	if err := db.Migrate("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createUser(email, password, name string, role models.Role) {
	db := openStore()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	err = db.CreateUser(context.Background(), &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Password:  string(hashedPassword),
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User '%s' created successfully.\n", email)
}

func pruneAudit(days int) {
	db := openStore()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := db.DeleteAuditEntriesBefore(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("Failed to prune audit entries: %v", err)
	}

	fmt.Printf("Deleted %d audit entries older than %d days.\n", n, days)
}
