//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"restaurant-collector/models"
)

// Usage:
//   go test -tags integration ./storage/...

func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "collector",
			"POSTGRES_PASSWORD": "collector",
			"POSTGRES_DB":       "restaurants",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Skipping: could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background()) //nolint:errcheck
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://collector:collector@%s:%s/restaurants?sslmode=disable", host, port.Port())
}

func TestPostgresStoreInsertUpdateLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store, err := NewPostgresStore(ctx, startPostgres(t, ctx))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer store.Close()

	phone := "02-776-5348"
	id, err := store.Insert(ctx, &models.Candidate{
		Name: "명동교자", Category: models.CategoryNoodles, Address: "서울 중구 명동10길 29",
		Phone: &phone, Rating: 44, ReviewCount: 120, Price: models.PriceCheap,
		Latitude: "37.5636", Longitude: "126.9857",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	en := "Myeongdong Kyoja"
	err = store.Update(ctx, id, &models.Candidate{
		Name: "명동교자", NameEn: &en, Category: models.CategoryNoodles, Price: models.PriceCheap,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var gotPhone, gotEn string
	var rating int
	row := store.db.QueryRowContext(ctx, `SELECT phone, name_en, rating FROM restaurants WHERE id = $1`, id)
	if err := row.Scan(&gotPhone, &gotEn, &rating); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if gotPhone != phone || gotEn != en || rating != 44 {
		t.Errorf("after update: got phone=%q name_en=%q rating=%d", gotPhone, gotEn, rating)
	}

	existing, err := store.LoadExisting(ctx)
	if err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if len(existing) != 1 || existing[0].ID != id || existing[0].Latitude != "37.5636" {
		t.Errorf("LoadExisting: got %+v", existing)
	}

	if err := store.Update(ctx, id+1000, &models.Candidate{Name: "없음", Category: models.CategoryKorean, Price: models.PriceModerate}); err == nil {
		t.Error("Update of a missing id should fail")
	}
}
