package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func init() {
	os.Setenv("GO_ENV", "test")
}

// setupPromptsTest connects to a local MongoDB or skips the test when
// none is reachable.
func setupPromptsTest(t *testing.T) (*PromptsRepo, func()) {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		t.Skipf("MongoDB not reachable: %v", err)
	}

	coll := client.Database("prompt_enhancer_test").Collection("prompt_history")
	repo := &PromptsRepo{MongoCollection: coll}

	cleanup := func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := coll.Drop(cleanupCtx); err != nil {
			t.Logf("Warning: failed to drop test collection: %v", err)
		}
		if err := client.Disconnect(cleanupCtx); err != nil {
			t.Logf("Warning: failed to disconnect: %v", err)
		}
	}
	return repo, cleanup
}

func insertPrompt(t *testing.T, repo *PromptsRepo, userID string, createdAt time.Time) *model.Prompt {
	t.Helper()
	prompt := &model.Prompt{
		ID:             uuid.New().String(),
		UserID:         userID,
		OriginalPrompt: "original",
		ImprovedPrompt: "improved",
		Category:       model.CategoryGeneral,
		ScoreBefore:    4,
		ScoreAfter:     8,
		Tags:           []string{},
	}
	if err := repo.CreatePrompt(context.Background(), prompt); err != nil {
		t.Fatalf("failed to insert prompt: %v", err)
	}
	// Backdate creation time where ordering matters.
	if !createdAt.IsZero() {
		_, err := repo.MongoCollection.UpdateOne(context.Background(),
			bson.M{"_id": prompt.ID},
			bson.M{"$set": bson.M{"created_at": createdAt}})
		if err != nil {
			t.Fatalf("failed to backdate prompt: %v", err)
		}
		prompt.CreatedAt = createdAt
	}
	return prompt
}

func TestTagOperations(t *testing.T) {
	repo, cleanup := setupPromptsTest(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New().String()
	prompt := insertPrompt(t, repo, userID, time.Time{})

	t.Run("AddTagIdempotent", func(t *testing.T) {
		if err := repo.AddTag(ctx, prompt.ID, userID, "🔥"); err != nil {
			t.Fatalf("AddTag failed: %v", err)
		}
		if err := repo.AddTag(ctx, prompt.ID, userID, "🔥"); err != nil {
			t.Fatalf("second AddTag failed: %v", err)
		}
		got, err := repo.GetPrompt(ctx, prompt.ID, userID)
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "🔥" {
			t.Errorf("expected tags [🔥], got %v", got.Tags)
		}
	})

	t.Run("RemoveTagIdempotent", func(t *testing.T) {
		if err := repo.RemoveTag(ctx, prompt.ID, userID, "🔥"); err != nil {
			t.Fatalf("RemoveTag failed: %v", err)
		}
		if err := repo.RemoveTag(ctx, prompt.ID, userID, "🔥"); err != nil {
			t.Fatalf("second RemoveTag failed: %v", err)
		}
		got, err := repo.GetPrompt(ctx, prompt.ID, userID)
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		if len(got.Tags) != 0 {
			t.Errorf("expected no tags, got %v", got.Tags)
		}
	})

	t.Run("ReplaceTags", func(t *testing.T) {
		if err := repo.ReplaceTags(ctx, prompt.ID, userID, []string{"a", "b"}); err != nil {
			t.Fatalf("ReplaceTags failed: %v", err)
		}
		got, err := repo.GetPrompt(ctx, prompt.ID, userID)
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		if len(got.Tags) != 2 {
			t.Errorf("expected 2 tags, got %v", got.Tags)
		}
	})

	t.Run("OwnershipIsolation", func(t *testing.T) {
		err := repo.AddTag(ctx, prompt.ID, uuid.New().String(), "stolen")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		got, err := repo.GetPrompt(ctx, prompt.ID, userID)
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		for _, tag := range got.Tags {
			if tag == "stolen" {
				t.Error("cross-owner mutation applied")
			}
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := repo.AddTag(ctx, uuid.New().String(), userID, "x")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListByTagAndInventory(t *testing.T) {
	repo, cleanup := setupPromptsTest(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New().String()
	base := time.Now().Truncate(time.Millisecond)

	first := insertPrompt(t, repo, userID, base)
	second := insertPrompt(t, repo, userID, base.Add(time.Minute))
	third := insertPrompt(t, repo, userID, base.Add(2*time.Minute))

	mustTag := func(p *model.Prompt, tags ...string) {
		if err := repo.ReplaceTags(ctx, p.ID, userID, tags); err != nil {
			t.Fatalf("ReplaceTags failed: %v", err)
		}
	}
	mustTag(first, "🔥")
	mustTag(second, "🔥", "♥️")
	mustTag(third, "♥️")

	t.Run("ListByTagNewestFirst", func(t *testing.T) {
		prompts, err := repo.ListByTag(ctx, userID, "🔥", 10)
		if err != nil {
			t.Fatalf("ListByTag failed: %v", err)
		}
		if len(prompts) != 2 {
			t.Fatalf("expected 2 prompts, got %d", len(prompts))
		}
		if prompts[0].ID != second.ID || prompts[1].ID != first.ID {
			t.Errorf("wrong order: %s, %s", prompts[0].ID, prompts[1].ID)
		}
	})

	t.Run("ListByTagLimit", func(t *testing.T) {
		prompts, err := repo.ListByTag(ctx, userID, "🔥", 1)
		if err != nil {
			t.Fatalf("ListByTag failed: %v", err)
		}
		if len(prompts) != 1 {
			t.Fatalf("expected 1 prompt, got %d", len(prompts))
		}
	})

	t.Run("Inventory", func(t *testing.T) {
		inventory, err := repo.TagInventory(ctx, userID)
		if err != nil {
			t.Fatalf("TagInventory failed: %v", err)
		}
		if len(inventory) != 2 {
			t.Fatalf("expected 2 tags, got %d", len(inventory))
		}
		for _, tc := range inventory {
			if tc.Count != 2 {
				t.Errorf("tag %s: expected count 2, got %d", tc.Tag, tc.Count)
			}
		}
	})

	t.Run("ArchiveHidesFromReads", func(t *testing.T) {
		if err := repo.SetArchived(ctx, second.ID, userID, true); err != nil {
			t.Fatalf("SetArchived failed: %v", err)
		}

		prompts, err := repo.ListByTag(ctx, userID, "🔥", 10)
		if err != nil {
			t.Fatalf("ListByTag failed: %v", err)
		}
		if len(prompts) != 1 || prompts[0].ID != first.ID {
			t.Errorf("archived prompt still listed")
		}

		inventory, err := repo.TagInventory(ctx, userID)
		if err != nil {
			t.Fatalf("TagInventory failed: %v", err)
		}
		for _, tc := range inventory {
			if tc.Count != 1 {
				t.Errorf("tag %s: archived prompt still counted", tc.Tag)
			}
		}

		got, err := repo.GetPrompt(ctx, second.ID, userID)
		if err != nil {
			t.Fatalf("archived prompt not retrievable by id: %v", err)
		}
		if len(got.Tags) != 2 {
			t.Errorf("archiving cleared tags: %v", got.Tags)
		}

		if err := repo.SetArchived(ctx, second.ID, userID, false); err != nil {
			t.Fatalf("unarchive failed: %v", err)
		}
		prompts, err = repo.ListByTag(ctx, userID, "🔥", 10)
		if err != nil {
			t.Fatalf("ListByTag failed: %v", err)
		}
		if len(prompts) != 2 {
			t.Errorf("unarchived prompt missing from listing")
		}
	})
}

func TestCollectionOperations(t *testing.T) {
	repo, cleanup := setupPromptsTest(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New().String()
	name := "favorites"
	base := time.Now().Truncate(time.Millisecond)

	orders := []*int{intPtr(3), intPtr(1), nil, intPtr(2)}
	prompts := make([]*model.Prompt, len(orders))
	for i, order := range orders {
		p := insertPrompt(t, repo, userID, base.Add(time.Duration(i)*time.Minute))
		if err := repo.AssignToCollection(ctx, p.ID, userID, &name, order); err != nil {
			t.Fatalf("AssignToCollection failed: %v", err)
		}
		prompts[i] = p
	}

	t.Run("MembersOrderedNullsLast", func(t *testing.T) {
		members, err := repo.ListCollectionMembers(ctx, userID, name)
		if err != nil {
			t.Fatalf("ListCollectionMembers failed: %v", err)
		}
		want := []string{prompts[1].ID, prompts[3].ID, prompts[0].ID, prompts[2].ID}
		if len(members) != len(want) {
			t.Fatalf("expected %d members, got %d", len(want), len(members))
		}
		for i, id := range want {
			if members[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, members[i].ID)
			}
		}
	})

	t.Run("RemoveFromCollection", func(t *testing.T) {
		if err := repo.AssignToCollection(ctx, prompts[0].ID, userID, nil, nil); err != nil {
			t.Fatalf("removal failed: %v", err)
		}
		members, err := repo.ListCollectionMembers(ctx, userID, name)
		if err != nil {
			t.Fatalf("ListCollectionMembers failed: %v", err)
		}
		if len(members) != 3 {
			t.Errorf("expected 3 members after removal, got %d", len(members))
		}
		// The stale order value survives but the prompt is gone from
		// the listing.
		got, err := repo.GetPrompt(ctx, prompts[0].ID, userID)
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}
		if got.PriorityOrder == nil || *got.PriorityOrder != 3 {
			t.Errorf("expected stale priority order 3, got %v", got.PriorityOrder)
		}
	})

	t.Run("ListCollectionsRecency", func(t *testing.T) {
		other := "archive-candidates"
		p := insertPrompt(t, repo, userID, base.Add(time.Hour))
		if err := repo.AssignToCollection(ctx, p.ID, userID, &other, nil); err != nil {
			t.Fatalf("AssignToCollection failed: %v", err)
		}

		collections, err := repo.ListCollections(ctx, userID)
		if err != nil {
			t.Fatalf("ListCollections failed: %v", err)
		}
		if len(collections) != 2 {
			t.Fatalf("expected 2 collections, got %d", len(collections))
		}
		if collections[0].Name != other || collections[0].Count != 1 {
			t.Errorf("expected %s first with count 1, got %+v", other, collections[0])
		}
		if collections[1].Name != name || collections[1].Count != 3 {
			t.Errorf("expected %s second with count 3, got %+v", name, collections[1])
		}
	})
}

func TestMigration(t *testing.T) {
	repo, cleanup := setupPromptsTest(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New().String()

	// A legacy document written before the organizational fields existed.
	legacyID := uuid.New().String()
	_, err := repo.MongoCollection.InsertOne(ctx, bson.M{
		"_id":             legacyID,
		"user_id":         userID,
		"original_prompt": "legacy",
		"improved_prompt": "legacy improved",
		"category":        model.CategoryGeneral,
		"created_at":      time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to insert legacy document: %v", err)
	}

	current := insertPrompt(t, repo, userID, time.Time{})
	if err := repo.AddTag(ctx, current.ID, userID, "keep"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	updated, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("expected 1 update, got %d", updated)
	}

	legacy, err := repo.GetPrompt(ctx, legacyID, userID)
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if legacy.Tags == nil || len(legacy.Tags) != 0 {
		t.Errorf("expected empty tag set, got %v", legacy.Tags)
	}
	if legacy.IsArchived || legacy.CollectionName != nil || legacy.PriorityOrder != nil {
		t.Errorf("unexpected defaults: %+v", legacy)
	}

	updated, err = repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("expected 0 updates on re-run, got %d", updated)
	}

	kept, err := repo.GetPrompt(ctx, current.ID, userID)
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if len(kept.Tags) != 1 || kept.Tags[0] != "keep" {
		t.Errorf("migration touched a migrated prompt: %v", kept.Tags)
	}
}

func TestDeadlineClassification(t *testing.T) {
	repo, cleanup := setupPromptsTest(t)
	defer cleanup()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := repo.AddTag(ctx, uuid.New().String(), uuid.New().String(), "late")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func intPtr(v int) *int { return &v }
