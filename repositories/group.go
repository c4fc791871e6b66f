package repositories

import (
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-core/domain"
	"chat-core/errors"
)

// GroupRepository stores group records keyed by their room key.
type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) *GroupRepository {
	return &GroupRepository{db: db, log: log}
}

func groupKey(room domain.RoomKey) []byte {
	return []byte("grp:" + string(room))
}

func (g *GroupRepository) Create(group domain.Group) error {
	data, err := json.Marshal(group)
	if err != nil {
		return err
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.Room), data)
	})
}

func (g *GroupRepository) Get(room domain.RoomKey) (domain.Group, error) {
	var group domain.Group
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(room))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &group)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// MembersOf resolves a group room to its member list. An unknown room is
// an empty-result condition for callers, surfaced as ErrGroupNotFound.
func (g *GroupRepository) MembersOf(room domain.RoomKey) ([]domain.Identity, error) {
	group, err := g.Get(room)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}
