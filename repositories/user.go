package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"

	"chat-core/domain"
	"chat-core/errors"
)

// UserRepository stores accounts in BadgerDB and mirrors usernames into a
// Bluge index so the search endpoint gets real full-text matching instead
// of a store-wide scan.
//
// Keys: "acct:{username}" holds the JSON record, "email:{email}" holds the
// owning username and enforces email uniqueness.
type UserRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewUserRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, index: index, log: log}
}

func acctKey(username domain.Identity) []byte {
	return []byte("acct:" + string(username))
}

func emailKey(email string) []byte {
	return []byte("email:" + email)
}

// accountRecord is the persistence shape of an account. domain.Account hides
// the credential fields from JSON for the API surface; the stored record must
// keep them or login and push fan-out lose their inputs.
type accountRecord struct {
	ID           string                 `json:"id"`
	Username     domain.Identity        `json:"username"`
	Email        string                 `json:"email"`
	PasswordHash string                 `json:"passwordHash"`
	ProfilePic   string                 `json:"profilePic,omitempty"`
	PushToken    string                 `json:"pushToken,omitempty"`
	Friends      []domain.Identity      `json:"friends,omitempty"`
	Requests     []domain.FriendRequest `json:"friendRequests,omitempty"`
	Groups       []domain.RoomKey       `json:"groups,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

func toRecord(a domain.Account) accountRecord {
	return accountRecord{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		ProfilePic:   a.ProfilePic,
		PushToken:    a.PushToken,
		Friends:      a.Friends,
		Requests:     a.Requests,
		Groups:       a.Groups,
		CreatedAt:    a.CreatedAt,
	}
}

func (r accountRecord) toAccount() domain.Account {
	return domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		ProfilePic:   r.ProfilePic,
		PushToken:    r.PushToken,
		Friends:      r.Friends,
		Requests:     r.Requests,
		Groups:       r.Groups,
		CreatedAt:    r.CreatedAt,
	}
}

// Create persists a new account. Username and email must both be free.
func (u *UserRepository) Create(account domain.Account) error {
	data, err := json.Marshal(toRecord(account))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(acctKey(account.Username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(emailKey(account.Email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey(account.Email), []byte(account.Username)); err != nil {
			return err
		}
		return txn.Set(acctKey(account.Username), data)
	})
	if err != nil {
		return err
	}

	return u.indexAccount(account)
}

func (u *UserRepository) indexAccount(account domain.Account) error {
	doc := bluge.NewDocument(string(account.Username)).
		AddField(bluge.NewTextField("username", string(account.Username)).StoreValue())
	if err := u.index.Update(doc.ID(), doc); err != nil {
		// The account is durable either way; search lags behind at worst.
		u.log.Warn("username indexing failed", "username", account.Username, "error", err)
	}
	return nil
}

// GetByUsername loads one account, ErrUserNotFound when absent.
func (u *UserRepository) GetByUsername(username domain.Identity) (domain.Account, error) {
	var record accountRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(acctKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Account{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return record.toAccount(), nil
}

// Save rewrites an existing account record (friends, requests, groups).
func (u *UserRepository) Save(account domain.Account) error {
	data, err := json.Marshal(toRecord(account))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(acctKey(account.Username)); err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		return txn.Set(acctKey(account.Username), data)
	})
}

// SetPushToken records the device token used for offline fan-out.
func (u *UserRepository) SetPushToken(username domain.Identity, token string) error {
	account, err := u.GetByUsername(username)
	if err != nil {
		return err
	}
	account.PushToken = token
	return u.Save(account)
}

// Search matches usernames by prefix or term and resolves the hits back to
// full account records. Query casing is irrelevant: the index analyzer
// lowercases terms, so the probe is lowercased too.
func (u *UserRepository) Search(ctx context.Context, query string, limit int) ([]domain.Account, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	reader, err := u.index.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewPrefixQuery(query).SetField("username")).
		AddShould(bluge.NewMatchQuery(query).SetField("username"))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	match, err := it.Next()
	for err == nil && match != nil {
		var username string
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				username = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if username != "" {
			account, getErr := u.GetByUsername(domain.Identity(username))
			if getErr == nil {
				accounts = append(accounts, account)
			}
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
