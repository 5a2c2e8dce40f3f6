// Command wizard is an interactive helper for operators: initialize the
// database, create accounts, toggle admin privileges and register games
// without going through the HTTP surface.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/webgames/backend/internal/auth"
	"github.com/webgames/backend/internal/config"
	"github.com/webgames/backend/internal/database"
	"github.com/webgames/backend/internal/identity"
	"github.com/webgames/backend/internal/migrations"
	"github.com/webgames/backend/internal/models"
)

var stdin = bufio.NewReader(os.Stdin)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	fmt.Println("Current configuration:")
	fmt.Printf("  Environment:  %s\n", cfg.Environment)
	fmt.Printf("  Database URL: %s\n", cfg.DatabaseURL)
	fmt.Printf("  Redis URL:    %s\n", cfg.RedisURL)
	fmt.Println()

	if !askBool("Configure postgres ?") {
		return
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if askBool("Initialize the database ?") {
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Done")
	}

	ctx := context.Background()
	store := identity.NewPostgres(db)

	if askBool("Create a user ?") {
		createUser(ctx, store)
	}
	if askBool("Update a user ?") {
		updateUser(ctx, store)
	}
	if askBool("Create a game ?") {
		createGame(ctx, store)
	}
}

func createUser(ctx context.Context, store identity.Store) {
	userID := uuid.New()
	fmt.Println("Userid:", userID)
	name := ask("Username: ")
	email := ask("Email: ")
	password := askSecret("Password: ")

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	fmt.Printf("Hashed password: %.25x...\n", hash)

	if !askBool("Process with user creation ?") {
		fmt.Println("Canceled")
		return
	}
	err = store.CreateUser(ctx, models.User{
		UserID:       userID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Println("Done")
}

func updateUser(ctx context.Context, store identity.Store) {
	login := ask("Username/email of the user you want to change: ")
	user, err := store.GetUserByLogin(ctx, login)
	if err != nil {
		log.Fatalf("Failed to find user: %v", err)
	}
	fmt.Printf("%+v\n", user)

	action := "Grant"
	if user.IsAdmin {
		action = "Remove"
	}
	if !askBool(action + " admin privileges ?") {
		return
	}
	if err := store.SetUserAdmin(ctx, user.UserID, !user.IsAdmin); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Println("Done")
}

func createGame(ctx context.Context, store identity.Store) {
	name := ask("Game name: ")
	owner, err := store.GetUserByLogin(ctx, ask("Owner login: "))
	if err != nil {
		log.Fatalf("Failed to find owner: %v", err)
	}
	capacity := askInt("Capacity: ")
	image := ask("Image: ")

	ports := []int{askInt("Port: ")}
	for {
		raw := ask("Another Port (leave blank to exit): ")
		if raw == "" {
			break
		}
		port, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Println("Not a number")
			continue
		}
		ports = append(ports, port)
	}

	if !askBool("Process with game creation ?") {
		fmt.Println("Canceled")
		return
	}
	gameID, err := store.CreateGame(ctx, name, owner.UserID, capacity, image, ports)
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}
	fmt.Printf("Done (gameid %d)\n", gameID)
}

func ask(prompt string) string {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	return strings.TrimSpace(line)
}

func askInt(prompt string) int {
	for {
		if n, err := strconv.Atoi(ask(prompt)); err == nil {
			return n
		}
		fmt.Println("Not a number")
	}
}

func askBool(prompt string) bool {
	for {
		switch strings.ToLower(ask(prompt + " [y/n] ")) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

func askSecret(prompt string) string {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	return string(raw)
}
