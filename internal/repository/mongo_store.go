package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/datatypes"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
	countersCollection = "counters"
	logsCollection     = "system_logs"

	messageSequence = "messages"
)

// NewMongoStore builds a store on database db of client. EnsureIndexes must
// run once before the store is used.
func NewMongoStore(client *mongo.Client, db string) *Store {
	d := client.Database(db)
	return &Store{
		Driver: "mongo",
		Users:  &mongoUsers{col: d.Collection(usersCollection)},
		Chats: &mongoChats{
			chats:    d.Collection(chatsCollection),
			messages: d.Collection(messagesCollection),
			counters: d.Collection(countersCollection),
		},
		Logs: &mongoLogs{col: d.Collection(logsCollection)},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	}
}

// EnsureIndexes creates the unique and ordering indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, client *mongo.Client, db string) error {
	d := client.Database(db)
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		chatsCollection: {
			{Keys: bson.D{{Key: "user_a", Value: 1}, {Key: "updated_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_b", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		logsCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
	for name, idx := range specs {
		if _, err := d.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

type socialDoc struct {
	Instagram string `bson:"instagram"`
	Twitter   string `bson:"twitter"`
	YouTube   string `bson:"youtube"`
	TikTok    string `bson:"tiktok"`
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Bio       string    `bson:"bio"`
	Avatar    string    `bson:"avatar"`
	Role      string    `bson:"role"`
	Social    socialDoc `bson:"social_links"`
	Interests []string  `bson:"interests"`
	Location  string    `bson:"location"`
	Followers int       `bson:"followers"`
	Following int       `bson:"following"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func userToDoc(u *models.User) userDoc {
	return userDoc{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		Role:      u.Role,
		Social:    socialDoc(u.SocialLinks),
		Interests: []string(u.Interests),
		Location:  u.Location,
		Followers: u.Followers,
		Following: u.Following,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d *userDoc) model() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", d.ID, err)
	}
	interests := d.Interests
	if interests == nil {
		interests = []string{}
	}
	return &models.User{
		ID:          id,
		Username:    d.Username,
		Email:       d.Email,
		Password:    d.Password,
		Bio:         d.Bio,
		Avatar:      d.Avatar,
		Role:        d.Role,
		SocialLinks: models.SocialLinks(d.Social),
		Interests:   datatypes.JSONSlice[string](interests),
		Location:    d.Location,
		Followers:   d.Followers,
		Following:   d.Following,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type mongoUsers struct {
	col *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	u.ApplyDefaults()
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, userToDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	return doc.model()
}

func (r *mongoUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

func (r *mongoUsers) ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$ne": id.String()}},
		options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		u, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *mongoUsers) CountExcept(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": bson.M{"$ne": id.String()}})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *mongoUsers) UpdateProfile(ctx context.Context, id uuid.UUID, p models.Profile) (*models.User, error) {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}

	update := bson.M{"$set": bson.M{
		"bio":          p.Bio,
		"avatar":       p.Avatar,
		"role":         p.Role,
		"location":     p.Location,
		"interests":    interests,
		"social_links": socialDoc(p.SocialLinks),
		"updated_at":   time.Now().UTC(),
	}}

	var doc userDoc
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, translateMongo(err)
	}
	return doc.model()
}

type chatDoc struct {
	ID            string     `bson:"_id"`
	UserA         string     `bson:"user_a"`
	UserB         string     `bson:"user_b"`
	LastMessage   *string    `bson:"last_message"`
	LastMessageAt *time.Time `bson:"last_message_at"`
	LastSenderID  *string    `bson:"last_sender_id"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func (d *chatDoc) model() (*models.Chat, error) {
	a, err := uuid.Parse(d.UserA)
	if err != nil {
		return nil, fmt.Errorf("chat %s user_a: %w", d.ID, err)
	}
	b, err := uuid.Parse(d.UserB)
	if err != nil {
		return nil, fmt.Errorf("chat %s user_b: %w", d.ID, err)
	}
	chat := &models.Chat{
		ID:            d.ID,
		UserA:         a,
		UserB:         b,
		LastMessage:   d.LastMessage,
		LastMessageAt: d.LastMessageAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.LastSenderID != nil {
		sender, err := uuid.Parse(*d.LastSenderID)
		if err != nil {
			return nil, fmt.Errorf("chat %s last_sender_id: %w", d.ID, err)
		}
		chat.LastSenderID = &sender
	}
	return chat, nil
}

type messageDoc struct {
	ID         int64     `bson:"_id"`
	ChatID     string    `bson:"chat_id"`
	SenderID   string    `bson:"sender_id"`
	ReceiverID string    `bson:"receiver_id"`
	Content    string    `bson:"content"`
	Read       bool      `bson:"read"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d *messageDoc) model() (models.Message, error) {
	sender, err := uuid.Parse(d.SenderID)
	if err != nil {
		return models.Message{}, fmt.Errorf("message %d sender: %w", d.ID, err)
	}
	receiver, err := uuid.Parse(d.ReceiverID)
	if err != nil {
		return models.Message{}, fmt.Errorf("message %d receiver: %w", d.ID, err)
	}
	return models.Message{
		ID:         uint64(d.ID),
		ChatID:     d.ChatID,
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    d.Content,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt,
	}, nil
}

type mongoChats struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	counters *mongo.Collection
}

func (r *mongoChats) GetOrCreate(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"user_a":          chat.UserA.String(),
		"user_b":          chat.UserB.String(),
		"last_message":    nil,
		"last_message_at": nil,
		"last_sender_id":  nil,
		"created_at":      now,
		"updated_at":      now,
	}}

	created := false
	res, err := r.chats.UpdateByID(ctx, chat.ID, update, options.Update().SetUpsert(true))
	switch {
	case err == nil:
		created = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
		// lost a concurrent upsert; the winner's document is read below
	default:
		return nil, false, fmt.Errorf("upsert chat: %w", err)
	}

	stored, err := r.FindByID(ctx, chat.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *mongoChats) FindByID(ctx context.Context, id string) (*models.Chat, error) {
	var doc chatDoc
	if err := r.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	return doc.model()
}

func forUserFilter(userID uuid.UUID) bson.M {
	id := userID.String()
	return bson.M{"$or": bson.A{bson.M{"user_a": id}, bson.M{"user_b": id}}}
}

func (r *mongoChats) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.chats.Find(ctx, forUserFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer cur.Close(ctx)

	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}

	chats := make([]models.Chat, 0, len(docs))
	for i := range docs {
		c, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, nil
}

func (r *mongoChats) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := r.chats.CountDocuments(ctx, forUserFilter(userID))
	if err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return n, nil
}

func (r *mongoChats) nextMessageID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next message id: %w", err)
	}
	return counter.Seq, nil
}

// AppendMessage has no multi-document transaction to lean on (standalone
// servers do not support them), so a failed preview update deletes the
// message it just inserted.
func (r *mongoChats) AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error) {
	chat, err := r.FindByID(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}

	id, err := r.nextMessageID(ctx)
	if err != nil {
		return nil, err
	}

	doc := messageDoc{
		ID:         id,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Content:    msg.Content,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	res, err := r.chats.UpdateByID(ctx, msg.ChatID, bson.M{"$set": bson.M{
		"last_message":    msg.Content,
		"last_message_at": msg.CreatedAt,
		"last_sender_id":  msg.SenderID.String(),
		"updated_at":      msg.CreatedAt,
	}})
	if err == nil && res.MatchedCount == 0 {
		err = ErrNotFound
	}
	if err != nil {
		if _, derr := r.messages.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": id}); derr != nil {
			return nil, errors.Join(fmt.Errorf("update chat preview: %w", err), fmt.Errorf("undo message %d: %w", id, derr))
		}
		return nil, fmt.Errorf("update chat preview: %w", err)
	}

	msg.ID = uint64(id)
	content := msg.Content
	at := msg.CreatedAt
	sender := msg.SenderID
	chat.LastMessage = &content
	chat.LastMessageAt = &at
	chat.LastSenderID = &sender
	chat.UpdatedAt = at
	return chat, nil
}

func (r *mongoChats) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	cur, err := r.messages.Find(ctx, bson.M{"chat_id": chatID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(docs))
	for i := range docs {
		m, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

type logDoc struct {
	ID        string    `bson:"_id"`
	Timestamp time.Time `bson:"timestamp"`
	Level     string    `bson:"level"`
	Message   string    `bson:"message"`
	RequestID string    `bson:"request_id,omitempty"`
	UserID    *string   `bson:"user_id,omitempty"`
	ChatID    string    `bson:"chat_id,omitempty"`
	Action    string    `bson:"action,omitempty"`
	Error     string    `bson:"error,omitempty"`
	LatencyMs int       `bson:"latency_ms,omitempty"`
	Extra     string    `bson:"extra,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoLogs struct {
	col *mongo.Collection
}

func (r *mongoLogs) InsertLogs(ctx context.Context, logs []models.SystemLog) error {
	if len(logs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(logs))
	now := time.Now().UTC()
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		docs = append(docs, logDoc{
			ID:        l.ID.String(),
			Timestamp: l.Timestamp,
			Level:     l.Level,
			Message:   l.Message,
			RequestID: l.RequestID,
			UserID:    l.UserID,
			ChatID:    l.ChatID,
			Action:    l.Action,
			Error:     l.Error,
			LatencyMs: l.LatencyMs,
			Extra:     string(l.Extra),
			CreatedAt: now,
		})
	}
	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func (r *mongoLogs) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoLogs) ListLogs(ctx context.Context, f LogFilter) ([]models.SystemLog, error) {
	filter := bson.M{}
	if f.Level != "" {
		filter["level"] = f.Level
	}
	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(f.limit())))
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []logDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}

	logs := make([]models.SystemLog, 0, len(docs))
	for _, d := range docs {
		id, _ := uuid.Parse(d.ID)
		entry := models.SystemLog{
			ID:        id,
			Timestamp: d.Timestamp,
			Level:     d.Level,
			Message:   d.Message,
			RequestID: d.RequestID,
			UserID:    d.UserID,
			ChatID:    d.ChatID,
			Action:    d.Action,
			Error:     d.Error,
			LatencyMs: d.LatencyMs,
			CreatedAt: d.CreatedAt,
		}
		if d.Extra != "" {
			entry.Extra = datatypes.JSON(d.Extra)
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
