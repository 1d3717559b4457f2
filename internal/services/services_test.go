package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/chatid"
	"github.com/Webrookie0/growex-all-projects/internal/config"
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/realtime"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/Webrookie0/growex-all-projects/internal/repository/repotest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Message
	err  error
}

func (p *recordingPublisher) MessageSent(_ context.Context, msg *models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	store     *repository.Store
	broker    *realtime.MemoryBroker
	publisher *recordingPublisher
	auth      *AuthService
	users     *UserService
	chat      *ChatService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore(t)
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	pub := &recordingPublisher{}
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}

	chat := NewChatService(store.Users, store.Chats, broker, pub)
	return &fixture{
		store:     store,
		broker:    broker,
		publisher: pub,
		auth:      NewAuthService(store.Users, cfg),
		users:     NewUserService(store.Users),
		chat:      chat,
		dashboard: NewDashboardService(store.Users, store.Chats, chat),
	}
}

func (f *fixture) register(t *testing.T, username string) uuid.UUID {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), &dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return resp.User.ID
}

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &dto.RegisterRequest{Username: " alice ", Email: "Alice@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.Token == "" || resp.User.Username != "alice" || resp.User.Email != "alice@example.com" {
		t.Errorf("Register() = %+v", resp)
	}

	stored, err := f.store.Users.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if stored.Password == "secret1" || !strings.HasPrefix(stored.Password, "$2") {
		t.Errorf("password not hashed: %q", stored.Password)
	}
}

func TestAuthService_RegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	tests := []struct {
		name    string
		req     dto.RegisterRequest
		wantErr error
		wantV   dto.Violation
	}{
		{"duplicate username", dto.RegisterRequest{Username: "alice", Email: "new@example.com", Password: "secret1"}, ErrUserExists, dto.ViolationNone},
		{"duplicate email case-folded", dto.RegisterRequest{Username: "alice2", Email: "ALICE@example.com", Password: "secret1"}, ErrUserExists, dto.ViolationNone},
		{"short password", dto.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "123"}, nil, dto.ViolationPasswordLength},
		{"bad email", dto.RegisterRequest{Username: "bob", Email: "bob", Password: "secret1"}, nil, dto.ViolationEmailFormat},
		{"multibyte password over bcrypt limit", dto.RegisterRequest{Username: "zoe", Email: "zoe@example.com", Password: strings.Repeat("é", 40)}, nil, dto.ViolationPasswordLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.auth.Register(ctx, &req)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantV != dto.ViolationNone {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Violation != tt.wantV {
					t.Errorf("Register() error = %v, want violation %v", err, tt.wantV)
				}
			}
		})
	}

	n, err := f.store.Users.CountExcept(ctx, uuid.Nil)
	if err != nil || n != 1 {
		t.Errorf("user count = %d, %v; want 1", n, err)
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice")

	byName, err := f.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil || byName.User.ID != id {
		t.Fatalf("Login(username) = %v, %v", byName, err)
	}
	byEmail, err := f.auth.Login(ctx, &dto.LoginRequest{Email: " ALICE@example.com", Password: "secret1"})
	if err != nil || byEmail.User.ID != id {
		t.Fatalf("Login(email) = %v, %v", byEmail, err)
	}

	_, wrongPassword := f.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "nope123"})
	_, unknownUser := f.auth.Login(ctx, &dto.LoginRequest{Username: "mallory", Password: "secret1"})
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("Login() errors = %v / %v, want ErrInvalidCredentials", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("wrong password and unknown user differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestAuthService_IssueToken(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return fixed }

	user := &models.User{ID: uuid.New(), Username: "alice"}
	signed, err := f.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed }), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("ParseWithClaims() error = %v", err)
	}
	if claims["sub"] != user.ID.String() || claims["username"] != "alice" {
		t.Errorf("claims = %v", claims)
	}
	if exp, _ := claims.GetExpirationTime(); exp == nil || !exp.Time.Equal(fixed.Add(time.Hour)) {
		t.Errorf("exp = %v, want %v", exp, fixed.Add(time.Hour))
	}
}

func TestUserService_ProfileAndContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	f.register(t, "carol")
	f.register(t, "bob")

	bio := "  travel creator "
	role := "brand"
	updated, err := f.users.UpdateProfile(ctx, alice, &dto.UpdateProfileRequest{
		Bio:       &bio,
		Role:      &role,
		Interests: []string{"travel", " Travel", "food"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Bio != "travel creator" || updated.Role != models.RoleBrand || len(updated.Interests) != 2 {
		t.Errorf("UpdateProfile() = %+v", updated)
	}
	if updated.Avatar != models.DefaultAvatar {
		t.Errorf("Avatar changed by partial update: %q", updated.Avatar)
	}

	admin := "admin"
	if _, err := f.users.UpdateProfile(ctx, alice, &dto.UpdateProfileRequest{Role: &admin}); err == nil {
		t.Error("UpdateProfile() allowed self-assigning admin")
	}

	contacts, err := f.users.Contacts(ctx, alice)
	if err != nil {
		t.Fatalf("Contacts() error = %v", err)
	}
	if len(contacts) != 2 || contacts[0].Username != "bob" || contacts[1].Username != "carol" {
		t.Errorf("Contacts() = %v, want [bob carol]", contacts)
	}

	if _, err := f.users.Profile(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Profile(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestChatService_OpenChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	if _, _, err := f.chat.OpenChat(ctx, alice, alice.String()); !errors.Is(err, ErrSelfChat) {
		t.Errorf("OpenChat(self) error = %v, want ErrSelfChat", err)
	}
	if _, _, err := f.chat.OpenChat(ctx, alice, uuid.NewString()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("OpenChat(unknown) error = %v, want ErrUserNotFound", err)
	}

	first, created, err := f.chat.OpenChat(ctx, alice, bob.String())
	if err != nil || !created {
		t.Fatalf("OpenChat() = %v, %v, %v", first, created, err)
	}
	second, created, err := f.chat.OpenChat(ctx, bob, alice.String())
	if err != nil || created {
		t.Fatalf("OpenChat() reversed = %v, %v, %v", second, created, err)
	}
	if first.ID != second.ID || first.ID != chatid.Derive(alice.String(), bob.String()) {
		t.Errorf("chat ids differ: %s vs %s", first.ID, second.ID)
	}
	if second.With == nil || second.With.Username != "alice" {
		t.Errorf("With = %+v, want alice", second.With)
	}
}

func TestChatService_SendOrderPreviewAndFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	chatID := chatid.Derive(alice.String(), bob.String())

	sub, err := f.broker.Subscribe(ctx, chatID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Unsubscribe()

	// no OpenChat: the first send creates the chat
	for _, content := range []string{"m1", "m2", "m3"} {
		if _, err := f.chat.Send(ctx, SendInput{ChatID: chatID, SenderID: alice, ReceiverID: bob.String(), Content: content}); err != nil {
			t.Fatalf("Send(%s) error = %v", content, err)
		}
	}

	history, err := f.chat.History(ctx, bob, chatID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() returned %d messages, want 3", len(history))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if history[i].Content != want || history[i].ReceiverID != bob {
			t.Errorf("history[%d] = %+v, want %s to bob", i, history[i], want)
		}
	}

	chats, err := f.chat.ListChats(ctx, bob, 0)
	if err != nil || len(chats) != 1 {
		t.Fatalf("ListChats() = %v, %v", chats, err)
	}
	if chats[0].LastMessage == nil || *chats[0].LastMessage != "m3" || chats[0].LastSenderID == nil || *chats[0].LastSenderID != alice {
		t.Errorf("preview = %+v", chats[0])
	}

	for _, want := range []string{"m1", "m2", "m3"} {
		select {
		case payload := <-sub.C():
			var env dto.Envelope
			if err := json.Unmarshal(payload, &env); err != nil || env.Event != dto.EventMessage {
				t.Fatalf("payload = %s, err = %v", payload, err)
			}
			var msg models.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil || msg.Content != want {
				t.Errorf("fan-out = %+v, want %s", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no fan-out for %s", want)
		}
	}

	if len(f.publisher.sent) != 3 {
		t.Errorf("published %d events, want 3", len(f.publisher.sent))
	}
}

func TestChatService_SendRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")
	chatID := chatid.Derive(alice.String(), bob.String())

	tests := []struct {
		name    string
		in      SendInput
		wantErr error
	}{
		{"empty", SendInput{ChatID: chatID, SenderID: alice, Content: "  \n "}, ErrEmptyContent},
		{"too long", SendInput{ChatID: chatID, SenderID: alice, Content: strings.Repeat("a", dto.MaxMessageLength+1)}, ErrContentTooLong},
		{"outsider", SendInput{ChatID: chatID, SenderID: carol, Content: "hi"}, ErrNotParticipant},
		{"malformed chat", SendInput{ChatID: "general", SenderID: alice, Content: "hi"}, ErrNotParticipant},
		{"wrong receiver", SendInput{ChatID: chatID, SenderID: alice, ReceiverID: carol.String(), Content: "hi"}, ErrInvalidReceiver},
		{"malformed receiver", SendInput{ChatID: chatID, SenderID: alice, ReceiverID: "bob", Content: "hi"}, ErrInvalidReceiver},
		{"self chat", SendInput{ChatID: chatid.Derive(alice.String(), alice.String()), SenderID: alice, Content: "hi"}, ErrSelfChat},
		{"peer missing", SendInput{ChatID: chatid.Derive(alice.String(), uuid.NewString()), SenderID: alice, Content: "hi"}, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.chat.Send(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	msgs, err := f.store.Chats.ListMessages(ctx, chatID)
	if err != nil || len(msgs) != 0 {
		t.Errorf("rejected sends stored messages: %v, %v", msgs, err)
	}
}

func TestChatService_SendAcceptsUppercaseReceiver(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	msg, err := f.chat.Send(context.Background(), SendInput{
		ChatID:     chatid.Derive(alice.String(), bob.String()),
		SenderID:   alice,
		ReceiverID: strings.ToUpper(bob.String()),
		Content:    "hi",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ReceiverID != bob {
		t.Errorf("ReceiverID = %s, want %s", msg.ReceiverID, bob)
	}
}

func TestChatService_SendSurvivesPublisherFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.publisher.err = errors.New("kafka down")

	msg, err := f.chat.Send(ctx, SendInput{ChatID: chatid.Derive(alice.String(), bob.String()), SenderID: bob, Content: "still here"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ID == 0 {
		t.Error("message was not stored")
	}
}

func TestChatService_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")
	chatID := chatid.Derive(alice.String(), bob.String())

	if _, err := f.chat.History(ctx, carol, chatID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("History(outsider) error = %v, want ErrNotParticipant", err)
	}

	msgs, err := f.chat.History(ctx, alice, chatID)
	if err != nil {
		t.Fatalf("History(unknown chat) error = %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("History(unknown chat) = %v, want empty list", msgs)
	}
}

func TestDashboardService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.register(t, "carol")

	if _, _, err := f.chat.OpenChat(ctx, alice, bob.String()); err != nil {
		t.Fatalf("OpenChat() error = %v", err)
	}

	got, err := f.dashboard.Summary(ctx, alice)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if got.TotalConnections != 2 || got.ActiveChats != 1 || got.PendingRequests != 0 {
		t.Errorf("Summary() = %+v", got)
	}
	if len(got.RecentActivity) != 1 || got.RecentActivity[0].With == nil || got.RecentActivity[0].With.Username != "bob" {
		t.Errorf("RecentActivity = %+v", got.RecentActivity)
	}
}
