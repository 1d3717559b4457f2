package repository_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/chatid"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func createUser(t *testing.T, store *repository.Store, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hash"}
	if err := store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}

func openChat(t *testing.T, store *repository.Store, a, b *models.User) *models.Chat {
	t.Helper()
	chat := &models.Chat{ID: chatid.Derive(a.ID.String(), b.ID.String()), UserA: a.ID, UserB: b.ID}
	stored, _, err := store.Chats.GetOrCreate(context.Background(), chat)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	return stored
}

// runStoreContract runs every repository contract case against a fresh store
// from newStore.
func runStoreContract(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	cases := []struct {
		name string
		run  func(t *testing.T, store *repository.Store)
	}{
		{"Users_CreateAppliesDefaults", testUsersCreateAppliesDefaults},
		{"Users_CreateDuplicate", testUsersCreateDuplicate},
		{"Users_Lookups", testUsersLookups},
		{"Users_UpdateProfile", testUsersUpdateProfile},
		{"Chats_GetOrCreateIsIdempotent", testChatsGetOrCreateIsIdempotent},
		{"Chats_AppendMessageOrderAndPreview", testChatsAppendMessageOrderAndPreview},
		{"Chats_AppendMessageUnknownChat", testChatsAppendMessageUnknownChat},
		{"Chats_ListForUser", testChatsListForUser},
		{"Logs_InsertListDelete", testLogsInsertListDelete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, newStore(t))
		})
	}
}

func testUsersCreateAppliesDefaults(t *testing.T, store *repository.Store) {
	u := createUser(t, store, "alice")

	got, err := store.Users.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Role != models.RoleInfluencer {
		t.Errorf("Role = %q, want %q", got.Role, models.RoleInfluencer)
	}
	if got.Avatar != models.DefaultAvatar {
		t.Errorf("Avatar = %q, want %q", got.Avatar, models.DefaultAvatar)
	}
	if got.Interests == nil || len(got.Interests) != 0 {
		t.Errorf("Interests = %v, want empty list", got.Interests)
	}
}

func testUsersCreateDuplicate(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	createUser(t, store, "alice")

	tests := []struct {
		name string
		user models.User
	}{
		{"same username", models.User{Username: "alice", Email: "other@example.com", Password: "x"}},
		{"same email", models.User{Username: "alice2", Email: "alice@example.com", Password: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if err := store.Users.Create(ctx, &u); !errors.Is(err, repository.ErrDuplicate) {
				t.Errorf("Create() error = %v, want ErrDuplicate", err)
			}
		})
	}

	n, err := store.Users.CountExcept(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("CountExcept() error = %v", err)
	}
	if n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func testUsersLookups(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")
	createUser(t, store, "carol")
	createUser(t, store, "bob")

	if _, err := store.Users.FindByUsername(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindByUsername(nobody) error = %v, want ErrNotFound", err)
	}
	if u, err := store.Users.FindByEmail(ctx, "alice@example.com"); err != nil || u.ID != alice.ID {
		t.Errorf("FindByEmail() = %v, %v; want alice", u, err)
	}

	exists, err := store.Users.ExistsByUsernameOrEmail(ctx, "zed", "bob@example.com")
	if err != nil || !exists {
		t.Errorf("ExistsByUsernameOrEmail() = %v, %v; want true", exists, err)
	}

	others, err := store.Users.ListExcept(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListExcept() error = %v", err)
	}
	if len(others) != 2 || others[0].Username != "bob" || others[1].Username != "carol" {
		t.Errorf("ListExcept() = %v, want [bob carol]", others)
	}
}

func testUsersUpdateProfile(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")

	got, err := store.Users.UpdateProfile(ctx, alice.ID, models.Profile{
		Bio:         "fashion creator",
		Avatar:      models.DefaultAvatar,
		Role:        models.RoleBrand,
		Location:    "Lisbon",
		Interests:   []string{"fashion", "travel"},
		SocialLinks: models.SocialLinks{Instagram: "@alice", TikTok: "@alice.tt"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.Bio != "fashion creator" || got.Role != models.RoleBrand || got.Location != "Lisbon" {
		t.Errorf("UpdateProfile() = %+v", got)
	}
	if len(got.Interests) != 2 || got.Interests[1] != "travel" {
		t.Errorf("Interests = %v", got.Interests)
	}
	if got.SocialLinks.TikTok != "@alice.tt" || got.SocialLinks.Instagram != "@alice" {
		t.Errorf("SocialLinks = %+v", got.SocialLinks)
	}

	if _, err := store.Users.UpdateProfile(ctx, uuid.New(), models.Profile{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("UpdateProfile(unknown) error = %v, want ErrNotFound", err)
	}
}

func testChatsGetOrCreateIsIdempotent(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")

	id := chatid.Derive(alice.ID.String(), bob.ID.String())
	first, created, err := store.Chats.GetOrCreate(ctx, &models.Chat{ID: id, UserA: alice.ID, UserB: bob.ID})
	if err != nil || !created {
		t.Fatalf("GetOrCreate() = %v, %v, %v; want created", first, created, err)
	}

	if _, err := store.Chats.AppendMessage(ctx, &models.Message{
		ChatID: id, SenderID: alice.ID, ReceiverID: bob.ID, Content: "hi", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	again, created, err := store.Chats.GetOrCreate(ctx, &models.Chat{ID: id, UserA: bob.ID, UserB: alice.ID})
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if created {
		t.Error("second GetOrCreate() reported created")
	}
	if again.LastMessage == nil || *again.LastMessage != "hi" {
		t.Errorf("existing chat was modified: LastMessage = %v", again.LastMessage)
	}
	if again.UserA != alice.ID {
		t.Errorf("participants were rewritten: UserA = %s", again.UserA)
	}
}

func testChatsAppendMessageOrderAndPreview(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	chat := openChat(t, store, alice, bob)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	contents := []string{"m1", "m2", "m3"}
	var last *models.Chat
	for i, content := range contents {
		sender, receiver := alice.ID, bob.ID
		if i == 1 {
			sender, receiver = bob.ID, alice.ID
		}
		msg := &models.Message{ChatID: chat.ID, SenderID: sender, ReceiverID: receiver, Content: content, CreatedAt: base}
		var err error
		last, err = store.Chats.AppendMessage(ctx, msg)
		if err != nil {
			t.Fatalf("AppendMessage(%s) error = %v", content, err)
		}
		if msg.ID == 0 {
			t.Errorf("AppendMessage(%s) did not assign an ID", content)
		}
	}

	if last.LastMessage == nil || *last.LastMessage != "m3" {
		t.Errorf("preview = %v, want m3", last.LastMessage)
	}
	if last.LastSenderID == nil || *last.LastSenderID != alice.ID {
		t.Errorf("last sender = %v, want alice", last.LastSenderID)
	}

	stored, err := store.Chats.FindByID(ctx, chat.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.LastMessage == nil || *stored.LastMessage != "m3" {
		t.Errorf("stored preview = %v, want m3", stored.LastMessage)
	}

	msgs, err := store.Chats.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("ListMessages() returned %d messages, want %d", len(msgs), len(contents))
	}
	for i, want := range contents {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
	}
}

func testChatsAppendMessageUnknownChat(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")

	_, err := store.Chats.AppendMessage(ctx, &models.Message{
		ChatID: "chat_missing_thread", SenderID: alice.ID, ReceiverID: uuid.New(), Content: "hi", CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("AppendMessage() error = %v, want ErrNotFound", err)
	}

	msgs, err := store.Chats.ListMessages(ctx, "chat_missing_thread")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("orphan message stored: %v", msgs)
	}
}

func testChatsListForUser(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	carol := createUser(t, store, "carol")

	withBob := openChat(t, store, alice, bob)
	withCarol := openChat(t, store, carol, alice)
	openChat(t, store, bob, carol)

	if _, err := store.Chats.AppendMessage(ctx, &models.Message{
		ChatID: withBob.ID, SenderID: bob.ID, ReceiverID: alice.ID, Content: "newest",
		CreatedAt: time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	chats, err := store.Chats.ListForUser(ctx, alice.ID, 0)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("ListForUser() returned %d chats, want 2", len(chats))
	}
	if chats[0].ID != withBob.ID || chats[1].ID != withCarol.ID {
		t.Errorf("ListForUser() order = [%s %s], want [%s %s]", chats[0].ID, chats[1].ID, withBob.ID, withCarol.ID)
	}

	limited, err := store.Chats.ListForUser(ctx, alice.ID, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListForUser(limit 1) = %d chats, %v", len(limited), err)
	}

	n, err := store.Chats.CountForUser(ctx, alice.ID)
	if err != nil || n != 2 {
		t.Errorf("CountForUser() = %d, %v; want 2", n, err)
	}
}

func testLogsInsertListDelete(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	logs := []models.SystemLog{
		{Timestamp: now.Add(-40 * 24 * time.Hour), Level: "ERROR", Message: "old"},
		{Timestamp: now.Add(-time.Minute), Level: "ERROR", Message: "recent", ChatID: "chat_a_b", Extra: datatypes.JSON(`{"attempt":2}`)},
		{Timestamp: now, Level: "WARN", Message: "warning"},
	}
	if err := store.Logs.InsertLogs(ctx, logs); err != nil {
		t.Fatalf("InsertLogs() error = %v", err)
	}

	errs, err := store.Logs.ListLogs(ctx, repository.LogFilter{Level: "ERROR"})
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(errs) != 2 || errs[0].Message != "recent" {
		t.Fatalf("ListLogs(ERROR) = %v, want recent first", errs)
	}
	if errs[0].ChatID != "chat_a_b" || !strings.Contains(string(errs[0].Extra), `"attempt"`) {
		t.Errorf("decoded log = %+v", errs[0])
	}

	deleted, err := store.Logs.DeleteLogsBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil || deleted != 1 {
		t.Errorf("DeleteLogsBefore() = %d, %v; want 1", deleted, err)
	}
}
