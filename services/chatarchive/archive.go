package chatarchive

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"research_platform_backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB database and collection names
const (
	ArchiveDBName         = "research_platform"
	TranscriptsCollection = "terminal_transcripts"
)

// Archive persists finished terminal threads to MongoDB Atlas for long-term
// retention outside the relational store. It is optional: when no URI is
// configured every write is a no-op.
type Archive struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool
	lastError   string
}

// TranscriptDocument is one archived thread with its full message history
type TranscriptDocument struct {
	ThreadKey    string              `bson:"_id"`
	OwnerRole    string              `bson:"owner_role"`
	OwnerID      uint                `bson:"owner_id"`
	ArchivedAt   time.Time           `bson:"archived_at"`
	MessageCount int                 `bson:"message_count"`
	Messages     []TranscriptMessage `bson:"messages"`
}

// TranscriptMessage is a single message inside an archived transcript
type TranscriptMessage struct {
	Role         string    `bson:"role"`
	Content      string    `bson:"content"`
	InputTokens  int       `bson:"input_tokens,omitempty"`
	OutputTokens int       `bson:"output_tokens,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

// NewArchive connects to MongoDB Atlas. An empty URI returns a disabled
// archive rather than an error so the platform runs without Mongo.
func NewArchive(mongoURI string) *Archive {
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, transcript archiving disabled")
		return &Archive{
			uriSet:    false,
			lastError: "MONGODB_URI environment variable not set",
		}
	}

	archive := &Archive{uriSet: true}
	if err := archive.connect(mongoURI); err != nil {
		log.Printf("Transcript archive unavailable: %v", err)
	}
	return archive
}

func (a *Archive) connect(mongoURI string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		a.lastError = fmt.Sprintf("Failed to connect: %v", err)
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		a.lastError = fmt.Sprintf("Failed to ping: %v", err)
		client.Disconnect(ctx)
		return err
	}

	a.mu.Lock()
	a.client = client
	a.database = client.Database(ArchiveDBName)
	a.isConnected = true
	a.lastError = ""
	a.mu.Unlock()

	a.createIndexes()

	log.Println("MongoDB Atlas connected, transcript archiving enabled")
	return nil
}

// Enabled returns whether the archive is connected and accepting writes
func (a *Archive) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isConnected
}

// ConnectionStatus returns detailed connection status for diagnostics
func (a *Archive) ConnectionStatus() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := map[string]interface{}{
		"uri_set":   a.uriSet,
		"connected": a.isConnected,
	}
	if a.lastError != "" {
		status["error"] = a.lastError
	}
	return status
}

// ArchiveThread upserts the thread transcript. Safe to call repeatedly; the
// latest call wins per thread key.
func (a *Archive) ArchiveThread(ctx context.Context, thread *models.ChatThread, messages []models.ChatMessage) error {
	a.mu.RLock()
	connected := a.isConnected
	a.mu.RUnlock()
	if !connected {
		return nil
	}

	doc := TranscriptDocument{
		ThreadKey:    thread.ThreadKey,
		OwnerRole:    thread.OwnerRole,
		OwnerID:      thread.OwnerID,
		ArchivedAt:   time.Now(),
		MessageCount: len(messages),
		Messages:     make([]TranscriptMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		doc.Messages = append(doc.Messages, TranscriptMessage{
			Role:         msg.Role,
			Content:      msg.Content,
			InputTokens:  msg.InputTokens,
			OutputTokens: msg.OutputTokens,
			CreatedAt:    msg.CreatedAt,
		})
	}

	collection := a.database.Collection(TranscriptsCollection)
	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": doc.ThreadKey}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to archive thread %s: %w", thread.ThreadKey, err)
	}
	return nil
}

// Close closes the MongoDB connection
func (a *Archive) Close() error {
	if a.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.client.Disconnect(ctx)
	}
	return nil
}

func (a *Archive) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := a.database.Collection(TranscriptsCollection)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_role", Value: 1}, {Key: "owner_id", Value: 1}},
	})
	if err != nil {
		log.Printf("Failed to create transcript index: %v", err)
	}
}
