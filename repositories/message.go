package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-core/domain"
)

const messageSeqKey = "seq:msg"

// MessageRepository persists messages in BadgerDB.
// Keys are formatted as "msg:{len}:{room}:{seq_padded}" where seq comes from
// a monotonic Badger sequence: 20-digit zero padding makes lexicographical
// order equal insertion order, so a prefix scan replays history exactly as
// it was appended, ties impossible. The room's length is part of the key
// because room names arrive from clients and may contain the separator:
// without it, room "a:b"'s records would sit inside room "a"'s prefix range.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), 128)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the unused tail of the sequence lease.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func messageKey(room domain.RoomKey, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%d:%s:%020d", len(room), room, seq))
}

func messagePrefix(room domain.RoomKey) []byte {
	return []byte(fmt.Sprintf("msg:%d:%s:", len(room), room))
}

// Append stores one immutable message record.
func (m *MessageRepository) Append(message domain.Message) error {
	next, err := m.seq.Next()
	if err != nil {
		return err
	}
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Room, next), bytes)
	})
}

// ListByRoom retrieves a room's full history via a forward prefix scan.
// Thanks to the padded sequence in the key, messages come back in the
// exact order they were appended.
func (m *MessageRepository) ListByRoom(room domain.RoomKey) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(room)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips the read flag on every message of the room authored by
// someone other than excludeAuthor. The returned count gates the
// messages_read broadcast: zero means the call was a no-op and nothing
// should be emitted. Read and rewrite happen in one transaction so two
// concurrent receipts never double-count.
func (m *MessageRepository) MarkRead(room domain.RoomKey, excludeAuthor domain.Identity) (int, error) {
	changed := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := messagePrefix(room)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var msg domain.Message
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			if msg.Read || msg.Author == excludeAuthor {
				continue
			}
			msg.Read = true
			bytes, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), bytes); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		m.log.Debug(fmt.Sprintf("Marked %d messages read in room %s", changed, room))
	}
	return changed, nil
}
