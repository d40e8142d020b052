package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
)

type AccountRepo interface {
	Create(dbc dbctx.Context, account *Account) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*Account, error)
	CreateUser(dbc dbctx.Context, user *User) error
	// ResolveOwner maps an acting user to the account that owns it. It
	// returns uuid.Nil when the user is unknown.
	ResolveOwner(dbc dbctx.Context, userID uuid.UUID) (uuid.UUID, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "AccountRepo")}
}

func (r *accountRepo) Create(dbc dbctx.Context, account *Account) error {
	now := time.Now().UTC()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt, account.UpdatedAt = now, now
	return dbc.DB(r.db).Create(account).Error
}

func (r *accountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*Account, error) {
	var row Account
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *accountRepo) CreateUser(dbc dbctx.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	return dbc.DB(r.db).Create(user).Error
}

func (r *accountRepo) ResolveOwner(dbc dbctx.Context, userID uuid.UUID) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, nil
	}
	var row User
	if err := dbc.DB(r.db).Where("id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.AccountID, nil
}

type SubscriptionRepo interface {
	// GetByAccount returns nil when the account has no subscription.
	GetByAccount(dbc dbctx.Context, accountID uuid.UUID) (*Subscription, error)
	Upsert(dbc dbctx.Context, sub *Subscription) error
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) GetByAccount(dbc dbctx.Context, accountID uuid.UUID) (*Subscription, error) {
	var row Subscription
	if err := dbc.DB(r.db).Where("account_id = ?", accountID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subscriptionRepo) Upsert(dbc dbctx.Context, sub *Subscription) error {
	now := time.Now().UTC()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "status", "trial_ends_at", "updated_at"}),
		}).
		Create(sub).Error
}
