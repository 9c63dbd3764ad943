package economy

import (
	"database/sql"
	"log/slog"
	"testing"

	"github.com/fernhill/pennyjar/internal/database"
	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

// fixture holds a migrated in-memory database with one family: a parent, a
// child, and direct store access for arranging test state.
type fixture struct {
	db       *sql.DB
	svc      *Service
	family   *model.Family
	parent   *model.User
	child    *model.User
	chores   *store.ChoreStore
	rewards  *store.RewardStore
	goals    *store.GoalStore
	users    *store.UserStore
	families *store.FamilyStore
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	families := store.NewFamilyStore(db)
	users := store.NewUserStore(db)

	family, err := families.Create("Testers")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err := users.Create(family.ID, "mom", "x", model.RoleParent, "")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := users.Create(family.ID, "kid", "x", model.RoleChild, "")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	return &fixture{
		db:       db,
		svc:      NewService(db, slog.Default()),
		family:   family,
		parent:   parent,
		child:    child,
		chores:   store.NewChoreStore(db),
		rewards:  store.NewRewardStore(db),
		goals:    store.NewGoalStore(db),
		users:    users,
		families: families,
	}
}

func (f *fixture) coins(t *testing.T, userID int64) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT coins FROM users WHERE id = ?`, userID).Scan(&n); err != nil {
		t.Fatalf("read coins: %v", err)
	}
	return n
}

func (f *fixture) points(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT points FROM families WHERE id = ?`, f.family.ID).Scan(&n); err != nil {
		t.Fatalf("read points: %v", err)
	}
	return n
}

func (f *fixture) setCoins(t *testing.T, userID int64, n int) {
	t.Helper()
	if _, err := f.db.Exec(`UPDATE users SET coins = ? WHERE id = ?`, n, userID); err != nil {
		t.Fatalf("set coins: %v", err)
	}
}

func (f *fixture) setPoints(t *testing.T, n int) {
	t.Helper()
	if _, err := f.db.Exec(`UPDATE families SET points = ? WHERE id = ?`, n, f.family.ID); err != nil {
		t.Fatalf("set points: %v", err)
	}
}

func (f *fixture) newChore(t *testing.T, coins, points int, frequency string) *model.Chore {
	t.Helper()
	chore, err := f.chores.Create(f.family.ID, "dishes", "", coins, points, frequency, nil, &f.child.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return chore
}

func (f *fixture) newReward(t *testing.T, cost int, isFamily bool, quantity int) *model.Reward {
	t.Helper()
	reward, err := f.rewards.Create(f.family.ID, "treat", "", cost, isFamily, quantity, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return reward
}

func (f *fixture) newGoal(t *testing.T, required int) *model.Goal {
	t.Helper()
	goal, err := f.goals.Create(f.family.ID, "trip", "", required)
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return goal
}
