package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pingup/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		// Memory store tests still run; Postgres tests skip through resetDatabase.
		fmt.Fprintf(os.Stderr, "cockroach test server unavailable, skipping postgres tests: %v\n", err)
		os.Exit(m.Run())
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndMembers(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, repo)

	if err := repo.Create(ctx, alice); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict creating duplicate user, got %v", err)
	}

	fetched, err := repo.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.ID != alice.ID || len(fetched.Connections) != 0 || fetched.Connections == nil {
		t.Fatalf("expected empty non-nil sets, got %+v", fetched)
	}

	for i := 0; i < 2; i++ {
		if err := repo.AddMember(ctx, alice.ID, models.SetFollowers, "bob"); err != nil {
			t.Fatalf("add member %d: %v", i+1, err)
		}
	}
	if err := repo.AddMember(ctx, alice.ID, models.SetFollowers, "carol"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	fetched, err = repo.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(fetched.Followers) != 2 || fetched.Followers[0] != "bob" || fetched.Followers[1] != "carol" {
		t.Fatalf("expected followers [bob carol] without duplicates, got %v", fetched.Followers)
	}

	for i := 0; i < 2; i++ {
		if err := repo.RemoveMember(ctx, alice.ID, models.SetFollowers, "bob"); err != nil {
			t.Fatalf("remove member %d: %v", i+1, err)
		}
	}
	fetched, _ = repo.FindByID(ctx, alice.ID)
	if len(fetched.Followers) != 1 || fetched.Followers[0] != "carol" {
		t.Fatalf("expected followers [carol], got %v", fetched.Followers)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
	if err := repo.AddMember(ctx, uuid.NewString(), models.SetConnections, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding to missing user, got %v", err)
	}
	if err := repo.AddMember(ctx, alice.ID, models.MemberSet("admins"), "bob"); !errors.Is(err, ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}
}

func TestPostgresUserRepository_ConcurrentAddMember(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, repo)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AddMember(ctx, alice.ID, models.SetConnections, "bob")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add member: %v", err)
		}
	}

	fetched, err := repo.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(fetched.Connections) != 1 {
		t.Fatalf("expected a single connection entry, got %v", fetched.Connections)
	}
}

func TestPostgresConnectionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, users)
	bob := createTestUser(t, users)
	carol := createTestUser(t, users)

	repo := NewPostgresConnectionRepository(testPool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	request := models.ConnectionRequest{
		ID:         uuid.NewString(),
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
		Status:     models.RequestStatusPending,
		CreatedAt:  now.Add(-time.Hour),
		UpdatedAt:  now.Add(-time.Hour),
	}
	if err := repo.Create(ctx, request); err != nil {
		t.Fatalf("create request: %v", err)
	}

	reverse := models.ConnectionRequest{
		ID:         uuid.NewString(),
		FromUserID: bob.ID,
		ToUserID:   alice.ID,
		Status:     models.RequestStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, reverse); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for reverse request on the same pair, got %v", err)
	}

	dangling := reverse
	dangling.ID = uuid.NewString()
	dangling.ToUserID = uuid.NewString()
	if err := repo.Create(ctx, dangling); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown recipient, got %v", err)
	}

	found, err := repo.FindBetween(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("find between: %v", err)
	}
	if found.ID != request.ID || found.FromUserID != alice.ID || found.PairKey != models.PairKey(alice.ID, bob.ID) {
		t.Fatalf("unexpected request: %+v", found)
	}

	count, err := repo.CountPendingFrom(ctx, alice.ID, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pending request in window, got %d", count)
	}
	if count, _ := repo.CountPendingFrom(ctx, alice.ID, now.Add(-time.Minute)); count != 0 {
		t.Fatalf("expected requests outside the window to be ignored, got %d", count)
	}

	incoming, err := repo.ListPendingTo(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list pending to: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != request.ID {
		t.Fatalf("unexpected incoming requests: %+v", incoming)
	}

	if err := repo.MarkAccepted(ctx, request.ID, now); err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	if err := repo.MarkAccepted(ctx, request.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second accept to report ErrNotFound, got %v", err)
	}
	if err := repo.DeletePending(ctx, request.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected DeletePending to skip accepted request, got %v", err)
	}
	if count, _ := repo.CountPendingFrom(ctx, alice.ID, now.Add(-2*time.Hour)); count != 0 {
		t.Fatalf("expected accepted request to stop counting, got %d", count)
	}

	found, err = repo.FindBetween(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("find between after accept: %v", err)
	}
	if found.Status != models.RequestStatusAccepted || !timesClose(found.UpdatedAt, now, time.Second) {
		t.Fatalf("expected accepted status and updated timestamp, got %+v", found)
	}

	if err := repo.Delete(ctx, request.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, request.ID); err != nil {
		t.Fatalf("expected deleting a missing request to succeed, got %v", err)
	}
	if _, err := repo.FindBetween(ctx, alice.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	pending := models.ConnectionRequest{
		ID:         uuid.NewString(),
		FromUserID: carol.ID,
		ToUserID:   alice.ID,
		Status:     models.RequestStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, pending); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	outgoing, err := repo.ListPendingFrom(ctx, carol.ID)
	if err != nil {
		t.Fatalf("list pending from: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].ToUserID != alice.ID {
		t.Fatalf("unexpected outgoing requests: %+v", outgoing)
	}
	if err := repo.DeletePending(ctx, pending.ID); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	if err := repo.DeletePending(ctx, pending.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresConnectionRepository_SeparatorInIDs(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	for _, id := range []string{"a:b", "c", "a", "b:c"} {
		if err := users.Create(ctx, models.User{ID: id, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("create user %s: %v", id, err)
		}
	}

	repo := NewPostgresConnectionRepository(testPool)
	now := time.Now().UTC()
	for _, req := range []models.ConnectionRequest{
		{ID: uuid.NewString(), FromUserID: "a:b", ToUserID: "c", Status: models.RequestStatusPending, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), FromUserID: "a", ToUserID: "b:c", Status: models.RequestStatusPending, CreatedAt: now, UpdatedAt: now},
	} {
		if err := repo.Create(ctx, req); err != nil {
			t.Fatalf("create %s -> %s: %v", req.FromUserID, req.ToUserID, err)
		}
	}

	found, err := repo.FindBetween(ctx, "b:c", "a")
	if err != nil {
		t.Fatalf("find between: %v", err)
	}
	if found.FromUserID != "a" || found.ToUserID != "b:c" {
		t.Fatalf("expected the a -> b:c request, got %+v", found)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("cockroach test server unavailable")
	}
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE connection_requests, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
