package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	collectionAccounts = "accounts"
	collectionCounters = "counters"
	accountSequence    = "accounts"
)

// emailCollation compares strings ignoring case (strength 2).
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// AccountRepository implements ports.AccountRepository on MongoDB. Account
// identifiers come from a monotonically increasing counter document.
type AccountRepository struct {
	col             *mongo.Collection
	counters        *mongo.Collection
	caseInsensitive bool
}

func NewAccountRepository(db *mongo.Database, caseInsensitiveEmail bool) *AccountRepository {
	return &AccountRepository{
		col:             db.Collection(collectionAccounts),
		counters:        db.Collection(collectionCounters),
		caseInsensitive: caseInsensitiveEmail,
	}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type accountDocument struct {
	ID               int64     `bson:"_id"`
	Email            string    `bson:"email"`
	FirstName        string    `bson:"first_name"`
	LastName         string    `bson:"last_name"`
	Role             string    `bson:"role"`
	HashedCredential *string   `bson:"hashed_credential"`
	IsActive         bool      `bson:"is_active"`
	IsActivated      bool      `bson:"is_activated"`
	CreatedAt        time.Time `bson:"created_at"`
}

func toDocument(a *domain.Account) accountDocument {
	return accountDocument{
		ID:               a.ID,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Role:             string(a.Role),
		HashedCredential: a.HashedCredential,
		IsActive:         a.IsActive,
		IsActivated:      a.IsActivated,
		CreatedAt:        a.CreatedAt.UTC(),
	}
}

func (d accountDocument) toDomain() *domain.Account {
	return &domain.Account{
		ID:               d.ID,
		Email:            d.Email,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Role:             domain.Role(d.Role),
		HashedCredential: d.HashedCredential,
		IsActive:         d.IsActive,
		IsActivated:      d.IsActivated,
		CreatedAt:        d.CreatedAt.UTC(),
	}
}

func (r *AccountRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": accountSequence},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// Create allocates an identifier and inserts the account document.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "allocate id", Err: err}
	}

	doc := toDocument(a)
	doc.ID = id
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, &domain.StoreError{Op: "insert account", Err: err}
	}
	return doc.toDomain(), nil
}

// FindByID retrieves an account by identifier. When role is non-empty the
// query is additionally filtered by role.
func (r *AccountRepository) FindByID(ctx context.Context, id int64, role domain.Role) (*domain.Account, error) {
	filter := bson.M{"_id": id}
	if role != "" {
		filter["role"] = string(role)
	}
	return r.findOne(ctx, filter, options.FindOne())
}

// FindByEmail retrieves an account by email, honouring the configured case policy.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string, role domain.Role) (*domain.Account, error) {
	filter := bson.M{"email": email}
	if role != "" {
		filter["role"] = string(role)
	}
	opts := options.FindOne()
	if r.caseInsensitive {
		opts.SetCollation(emailCollation)
	}
	return r.findOne(ctx, filter, opts)
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDocument
	if err := r.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, &domain.StoreError{Op: "find account", Err: err}
	}
	return doc.toDomain(), nil
}

func patchDocument(p ports.AccountPatch) bson.M {
	set := bson.M{}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.FirstName != nil {
		set["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		set["last_name"] = *p.LastName
	}
	if p.IsActive != nil {
		set["is_active"] = *p.IsActive
	}
	if p.IsActivated != nil {
		set["is_activated"] = *p.IsActivated
	}
	if p.HashedCredential != nil {
		set["hashed_credential"] = *p.HashedCredential
	}
	return set
}

// Update applies the patch in a single atomic document update and returns
// the document as it is after the write.
func (r *AccountRepository) Update(ctx context.Context, id int64, p ports.AccountPatch) (*domain.Account, error) {
	set := patchDocument(p)
	if len(set) == 0 {
		return r.FindByID(ctx, id, "")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrAccountNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrDuplicateEmail
		}
		return nil, &domain.StoreError{Op: "update account", Err: err}
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) Query(criteria []ports.Criterion) ports.AccountQuery {
	return &accountQuery{col: r.col, filter: criteriaFilter(criteria)}
}

// EnsureIndexes creates the unique email index. With a case-insensitive
// policy the index carries the same collation used by FindByEmail.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	emailIndex := options.Index().SetUnique(true).SetName("email_unique")
	if r.caseInsensitive {
		emailIndex.SetCollation(emailCollation)
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: emailIndex},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "_id", Value: 1}}},
	}

	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

type accountQuery struct {
	col    *mongo.Collection
	filter bson.M
}

func (q *accountQuery) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Account, error) {
	if page < 1 || pageSize <= 0 {
		return []*domain.Account{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(page-1) * int64(pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := q.col.Find(ctx, q.filter, opts)
	if err != nil {
		return nil, &domain.StoreError{Op: "list accounts", Err: err}
	}
	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &domain.StoreError{Op: "decode accounts", Err: err}
	}

	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (q *accountQuery) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := q.col.CountDocuments(ctx, q.filter)
	if err != nil {
		return 0, &domain.StoreError{Op: "count accounts", Err: err}
	}
	return n, nil
}
