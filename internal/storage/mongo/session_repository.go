package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

// SessionRepository stores theaters and their sessions. A session's
// seat grid is the unit of reservation: a seat flips from 0 to 1 only
// through an update conditioned on it still being 0, and the hold entry
// records which seats to flip back on release.
type SessionRepository struct {
	theaters *mongo.Collection
	sessions *mongo.Collection
	clock    clock.Clock
}

func NewSessionRepository(db *mongo.Database, clk clock.Clock) *SessionRepository {
	return &SessionRepository{
		theaters: db.Collection(collTheaters),
		sessions: db.Collection(collSessions),
		clock:    clk,
	}
}

func (r *SessionRepository) CreateTheater(ctx context.Context, theater domain.Theater) error {
	_, err := r.theaters.InsertOne(ctx, theater)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrResourceExists
	}
	if err != nil {
		return fmt.Errorf("insert theater: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetTheater(ctx context.Context, id string) (domain.Theater, error) {
	var theater domain.Theater
	err := r.theaters.FindOne(ctx, bson.M{"_id": id}).Decode(&theater)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Theater{}, domain.ErrTheaterNotFound
	}
	if err != nil {
		return domain.Theater{}, fmt.Errorf("find theater: %w", err)
	}
	return theater, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, session domain.Session) error {
	if session.Holds == nil {
		session.Holds = []domain.SeatHold{}
	}
	_, err := r.sessions.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrResourceExists
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var session domain.Session
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// Reserve flips every requested seat from free to held in one update,
// conditioned on all of them still being free and the holder having no
// hold on the session yet.
func (r *SessionRepository) Reserve(ctx context.Context, holderID string, req app.ReserveRequest) error {
	if len(req.Seats) == 0 {
		return domain.ErrInvalidSeat
	}

	session, err := r.GetSession(ctx, req.ResourceID)
	if err != nil {
		return err
	}
	rows := len(session.Seats)
	cols := 0
	if rows > 0 {
		cols = len(session.Seats[0])
	}

	filter := bson.M{
		"_id":             session.ID,
		"holds.holder_id": bson.M{"$ne": holderID},
	}
	set := bson.M{}
	for _, seat := range req.Seats {
		path, err := seatPath(seat, rows, cols)
		if err != nil {
			return err
		}
		filter[path] = 0
		set[path] = 1
	}
	// Duplicate seats collapse into one map key while $inc would still
	// count them twice.
	if len(set) != len(req.Seats) {
		return fmt.Errorf("reserve seats: duplicate seat: %w", domain.ErrInvalidSeat)
	}

	hold := domain.SeatHold{
		HolderID:  holderID,
		Seats:     req.Seats,
		Price:     session.Price,
		Total:     session.Price * int64(len(req.Seats)),
		CreatedOn: r.clock.Now(),
	}
	res, err := r.sessions.UpdateOne(ctx, filter, bson.M{
		"$set":  set,
		"$inc":  bson.M{"seats_available": -int64(len(req.Seats))},
		"$push": bson.M{"holds": hold},
	})
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if res.MatchedCount == 0 {
		session, err := r.GetSession(ctx, req.ResourceID)
		if err != nil {
			return err
		}
		if _, ok := session.HoldFor(holderID); ok {
			return domain.ErrDuplicateHold
		}
		return domain.ErrInsufficientResource
	}
	return nil
}

// Adjust is meaningless for seat holds; callers change seats by
// releasing and reserving again.
func (r *SessionRepository) Adjust(ctx context.Context, holderID, resourceID string, quantity, delta int64) error {
	return domain.ErrUnsupported
}

// Release frees the seats named by the holder's hold and removes it.
// Absent holds are a no-op; losing the guarded update to a concurrent
// release means the seats are already free.
func (r *SessionRepository) Release(ctx context.Context, holderID, resourceID string) error {
	session, err := r.GetSession(ctx, resourceID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	hold, ok := session.HoldFor(holderID)
	if !ok {
		return nil
	}

	rows := len(session.Seats)
	cols := 0
	if rows > 0 {
		cols = len(session.Seats[0])
	}
	set := bson.M{}
	for _, seat := range hold.Seats {
		path, err := seatPath(seat, rows, cols)
		if err != nil {
			return err
		}
		set[path] = 0
	}

	_, err = r.sessions.UpdateOne(ctx,
		bson.M{"_id": resourceID, "holds.holder_id": holderID},
		bson.M{
			"$set":  set,
			"$inc":  bson.M{"seats_available": int64(len(hold.Seats))},
			"$pull": bson.M{"holds": bson.M{"holder_id": holderID}},
		},
	)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

func (r *SessionRepository) ReleaseAll(ctx context.Context, holderID string) (int, error) {
	cur, err := r.sessions.Find(ctx, bson.M{"holds.holder_id": holderID})
	if err != nil {
		return 0, fmt.Errorf("find seat holds: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var session domain.Session
		if err := cur.Decode(&session); err != nil {
			return 0, fmt.Errorf("decode session: %w", err)
		}
		ids = append(ids, session.ID)
	}
	if err := cur.Err(); err != nil {
		return 0, fmt.Errorf("scan seat holds: %w", err)
	}

	released := 0
	for _, id := range ids {
		if err := r.Release(ctx, holderID, id); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

// CommitAll turns the holder's seat holds into sold seats. The seats
// stay occupied and seats_available stays decremented; only the hold
// entries go.
func (r *SessionRepository) CommitAll(ctx context.Context, holderID string) error {
	_, err := r.sessions.UpdateMany(ctx,
		bson.M{"holds.holder_id": holderID},
		bson.M{"$pull": bson.M{"holds": bson.M{"holder_id": holderID}}},
	)
	if err != nil {
		return fmt.Errorf("commit seat holds: %w", err)
	}
	return nil
}
