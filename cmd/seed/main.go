// Command seed loads sample data into the database so the site has something
// to show on first run.
//
// Usage:
//
//	go run ./cmd/seed                         # categories + sample books
//	go run ./cmd/seed -db data/bookreviews.db
//	go run ./cmd/seed -admin-user sakif -admin-email sakif@example.com -admin-pass s3cretpass
//	go run ./cmd/seed -covers ./covers        # attach {title}.jpg cover images
//
// Seeding is idempotent in spirit: re-running against a populated database
// inserts duplicate books, so point it at a fresh file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/model"
	sqliteRepo "github.com/sakif/book-reviews/internal/repository/sqlite"
)

type sampleBook struct {
	title       string
	author      string
	description string
	categories  []string
}

var sampleBooks = []sampleBook{
	{
		title:       "Dune",
		author:      "Frank Herbert",
		description: "Paul Atreides leads nomadic tribes in a battle for control of the desert planet Arrakis and its spice.",
		categories:  []string{"Science Fiction", "Classics"},
	},
	{
		title:       "The Left Hand of Darkness",
		author:      "Ursula K. Le Guin",
		description: "An envoy to the planet Gethen must navigate a society without fixed gender to bring it into an interstellar collective.",
		categories:  []string{"Science Fiction"},
	},
	{
		title:       "Pride and Prejudice",
		author:      "Jane Austen",
		description: "Elizabeth Bennet and Mr. Darcy spar their way toward an understanding in Regency England.",
		categories:  []string{"Classics", "Romance"},
	},
	{
		title:       "The Name of the Wind",
		author:      "Patrick Rothfuss",
		description: "Kvothe recounts his rise from street orphan to legendary arcanist at the University.",
		categories:  []string{"Fantasy"},
	},
	{
		title:       "Thinking, Fast and Slow",
		author:      "Daniel Kahneman",
		description: "A tour of the two systems that drive the way we think, and the biases that follow.",
		categories:  []string{"Nonfiction", "Psychology"},
	},
	{
		title:       "The Hobbit",
		author:      "J.R.R. Tolkien",
		description: "Bilbo Baggins is swept into a quest to reclaim the dwarves' mountain home from the dragon Smaug.",
		categories:  []string{"Fantasy", "Classics"},
	},
	{
		title:       "Project Hail Mary",
		author:      "Andy Weir",
		description: "A lone astronaut wakes with no memory aboard a ship on a last-chance mission to save Earth.",
		categories:  []string{"Science Fiction"},
	},
}

var categoryNames = []string{
	"Science Fiction", "Fantasy", "Classics", "Romance", "Nonfiction", "Psychology",
}

func main() {
	dbPath := flag.String("db", "data/bookreviews.db", "path to the SQLite database")
	coversDir := flag.String("covers", "", "directory of cover images named {title}.jpg (optional)")
	adminUser := flag.String("admin-user", "", "create an admin account with this username (optional)")
	adminEmail := flag.String("admin-email", "", "email for the admin account")
	adminPass := flag.String("admin-pass", "", "password for the admin account")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		logger.Error("creating database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqliteRepo.New(*dbPath)
	if err != nil {
		logger.Error("opening database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	categoryIDs, err := seedCategories(ctx, db)
	if err != nil {
		logger.Error("seeding categories", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("categories seeded", slog.Int("count", len(categoryIDs)))

	for _, sb := range sampleBooks {
		book := &model.Book{
			Title:       sb.title,
			Author:      sb.author,
			Description: sb.description,
		}
		if err := db.Books().Create(ctx, book); err != nil {
			logger.Error("creating book", slog.String("title", sb.title), slog.String("error", err.Error()))
			os.Exit(1)
		}

		var ids []string
		for _, name := range sb.categories {
			if id, ok := categoryIDs[name]; ok {
				ids = append(ids, id)
			}
		}
		if err := db.Books().SetCategories(ctx, book.ID, ids); err != nil {
			logger.Error("assigning categories", slog.String("title", sb.title), slog.String("error", err.Error()))
			os.Exit(1)
		}

		if *coversDir != "" {
			if err := attachCover(ctx, db, book, *coversDir); err != nil {
				logger.Warn("no cover attached", slog.String("title", sb.title), slog.String("reason", err.Error()))
			}
		}

		logger.Info("book seeded", slog.String("id", book.ID), slog.String("title", book.Title))
	}

	if *adminUser != "" {
		if err := createAdmin(ctx, db, *adminUser, *adminEmail, *adminPass); err != nil {
			logger.Error("creating admin account", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("admin account created", slog.String("username", *adminUser))
	}

	logger.Info("seed complete", slog.String("db", *dbPath))
}

func seedCategories(ctx context.Context, db *sqliteRepo.DB) (map[string]string, error) {
	ids := make(map[string]string, len(categoryNames))
	for _, name := range categoryNames {
		c := &model.Category{Name: name}
		if err := db.Categories().Create(ctx, c); err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		ids[name] = c.ID
	}
	return ids, nil
}

// attachCover looks for {title}.jpg in dir (lowercased, spaces to dashes)
// and stores it as the book's cover.
func attachCover(ctx context.Context, db *sqliteRepo.DB, book *model.Book, dir string) error {
	name := strings.ToLower(strings.ReplaceAll(book.Title, " ", "-")) + ".jpg"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	return db.Books().SetCover(ctx, book.ID, data, http.DetectContentType(data))
}

func createAdmin(ctx context.Context, db *sqliteRepo.DB, username, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("-admin-email and -admin-pass are required with -admin-user")
	}

	hash, err := auth.NewPasswordService().Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return db.Users().CreateWithProfile(ctx, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	})
}
