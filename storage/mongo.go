// Package storage persists finished games, win/loss standings, and domain
// events to MongoDB. Every write is best-effort from the caller's point of
// view: the game loop never waits on the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dropfour/dropfour/events"
	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/logger"
)

const (
	gamesCollection     = "games"
	standingsCollection = "standings"
	eventsCollection    = "events"

	connectTimeout   = 15 * time.Second
	operationTimeout = 5 * time.Second
)

var ErrIdentityEmpty = errors.New("identity is empty")

// MongoStore implements service.PersistenceStore and service.StandingsReader
// on a MongoDB database, plus events.Sink for the audit trail.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, verifies the connection, and ensures the unique
// standings index.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	logger.DebugF("Connecting to database...")

	clientOptions := options.Client().ApplyURI(uri).SetAppName("dropfour")
	clientOptions.SetConnectTimeout(connectTimeout)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error occured while connecting to database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error occured while pinging database: %w", err)
	}

	db := client.Database(database)

	_, err = db.Collection(standingsCollection).Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("standings_username_unique"),
		},
	)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error occured while creating database indexes: %w", err)
	}

	logger.InfoF("Connected to database %s", database)
	return &MongoStore{client: client, db: db}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	logger.InfoF("Closing database connection")
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type gameDoc struct {
	GameID      string    `bson:"game_id"`
	Player1     string    `bson:"player1"`
	Player2     string    `bson:"player2"`
	Winner      string    `bson:"winner"`
	Duration    int64     `bson:"duration"`
	CompletedAt time.Time `bson:"completed_at"`
}

// SaveGame records one finished match.
func (s *MongoStore) SaveGame(ctx context.Context, rec service.GameRecord) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	doc := gameDoc{
		GameID:      rec.GameID,
		Player1:     rec.SideA,
		Player2:     rec.SideB,
		Winner:      rec.Winner,
		Duration:    rec.Duration,
		CompletedAt: rec.CompletedAt,
	}

	if _, err := s.db.Collection(gamesCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.DebugF("Game saved: game_id=%s winner=%s", rec.GameID, rec.Winner)
	return nil
}

// UpsertStanding increments one player's win or loss counter, creating the
// row on first sight.
func (s *MongoStore) UpsertStanding(ctx context.Context, identity string, won bool) error {
	if identity == "" {
		return ErrIdentityEmpty
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	inc := bson.D{{Key: "games_played", Value: 1}}
	if won {
		inc = append(inc, bson.E{Key: "wins", Value: 1})
	} else {
		inc = append(inc, bson.E{Key: "losses", Value: 1})
	}

	update := bson.D{
		{Key: "$inc", Value: inc},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
	}
	opts := options.Update().SetUpsert(true)

	result, err := s.db.Collection(standingsCollection).UpdateOne(
		ctx,
		bson.D{{Key: "username", Value: identity}},
		update,
		opts,
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("unique key conflicts: %w", err)
		}
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.DebugF("Standing updated: username=%s won=%v upserted=%v",
		identity, won, result.UpsertedID != nil)
	return nil
}

type standingDoc struct {
	Username    string    `bson:"username"`
	Wins        int       `bson:"wins"`
	Losses      int       `bson:"losses"`
	GamesPlayed int       `bson:"games_played"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// TopStandings returns the leaderboard sorted by wins.
func (s *MongoStore) TopStandings(ctx context.Context, limit int) ([]service.Standing, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "wins", Value: -1}, {Key: "username", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(standingsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []standingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}

	standings := make([]service.Standing, 0, len(docs))
	for _, d := range docs {
		standings = append(standings, service.Standing{
			Username:    d.Username,
			Wins:        d.Wins,
			Losses:      d.Losses,
			GamesPlayed: d.GamesPlayed,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return standings, nil
}

// RecentGames returns the latest finished matches, newest first.
func (s *MongoStore) RecentGames(ctx context.Context, limit int) ([]service.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "completed_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(gamesCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []gameDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}

	records := make([]service.GameRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, service.GameRecord{
			GameID:      d.GameID,
			SideA:       d.Player1,
			SideB:       d.Player2,
			Winner:      d.Winner,
			Duration:    d.Duration,
			CompletedAt: d.CompletedAt,
		})
	}
	return records, nil
}

type eventDoc struct {
	Type      string    `bson:"type"`
	Payload   any       `bson:"payload"`
	Timestamp time.Time `bson:"timestamp"`
}

// HandleEvent appends one domain event to the audit collection, satisfying
// events.Sink.
func (s *MongoStore) HandleEvent(ev events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	doc := eventDoc{Type: ev.Type, Payload: ev.Payload, Timestamp: ev.Timestamp}
	if _, err := s.db.Collection(eventsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("database operation failed: %w", err)
	}
	return nil
}
