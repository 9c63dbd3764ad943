// Command pennyseed populates a database with a demo family for local
// development.
package main

import (
	"flag"
	"log"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/fernhill/pennyjar/internal/database"
	"github.com/fernhill/pennyjar/internal/economy"
	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

func main() {
	dbPath := flag.String("db", "pennyjar.db", "path to the database file")
	flag.Parse()

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	families := store.NewFamilyStore(db)
	users := store.NewUserStore(db)
	chores := store.NewChoreStore(db)
	rewards := store.NewRewardStore(db)
	goals := store.NewGoalStore(db)

	family, err := families.Create("The Fernhills")
	if err != nil {
		log.Fatalf("create family: %v", err)
	}

	hash := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		return string(h)
	}

	parent, err := users.Create(family.ID, "margot", hash("password123"), model.RoleParent, "🦊")
	if err != nil {
		log.Fatalf("create parent: %v", err)
	}
	kid, err := users.Create(family.ID, "theo", hash("password123"), model.RoleChild, "🐢")
	if err != nil {
		log.Fatalf("create child: %v", err)
	}

	seedChores := []struct {
		title     string
		coins     int
		points    int
		frequency string
	}{
		{"Empty the dishwasher", 10, 5, model.FrequencyDaily},
		{"Take out the recycling", 15, 5, model.FrequencyWeekly},
		{"Clean your room", 20, 10, model.FrequencyWeekly},
		{"Water the garden", 5, 5, model.FrequencyOnce},
	}
	for _, c := range seedChores {
		if _, err := chores.Create(family.ID, c.title, "", c.coins, c.points, c.frequency, nil, &kid.ID, parent.ID); err != nil {
			log.Fatalf("create chore %q: %v", c.title, err)
		}
	}

	if _, err := rewards.Create(family.ID, "Movie night pick", "Choose the Friday movie", 30, false, model.UnlimitedQuantity, true); err != nil {
		log.Fatalf("create reward: %v", err)
	}
	if _, err := rewards.Create(family.ID, "Pizza dinner", "Family pizza night", 50, true, 2, true); err != nil {
		log.Fatalf("create reward: %v", err)
	}

	if _, err := goals.Create(family.ID, "Zoo trip", "A day at the zoo once we hit the target", 200); err != nil {
		log.Fatalf("create goal: %v", err)
	}

	// Start the demo child with pocket money and the family with a head
	// start on the goal so the UI has something to show.
	ledger := economy.NewService(db, slog.Default()).Ledger()
	if _, err := ledger.AdjustCoins(db, kid.ID, 25); err != nil {
		log.Fatalf("seed coins: %v", err)
	}
	if _, err := ledger.AdjustPoints(db, family.ID, 40); err != nil {
		log.Fatalf("seed points: %v", err)
	}

	log.Printf("seeded family %q (join code %s) with users %s and %s", family.Name, family.JoinCode, parent.Username, kid.Username)
}
