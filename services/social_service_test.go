package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/mocks"
	"chat-core/notify"
	"chat-core/observability"
	"chat-core/runtime"
)

func newSocialFixture(t *testing.T) (*SocialService, *mocks.MockUserDirectory, *mocks.MockGroupDirectory) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserDirectory(ctrl)
	groups := mocks.NewMockGroupDirectory(ctrl)

	log := logs.GetLoggerFromLevel(slog.LevelError)
	orch := runtime.NewOrchestrator(log, runtime.NewRegistry(nil), nil, nil,
		make(chan notify.Job, 1), nil, observability.NewMonitoringManager())

	return NewSocialService(users, groups, orch), users, groups
}

func TestSocialService_SendFriendRequest(t *testing.T) {
	t.Run("should store a pending request on the target", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newSocialFixture(t)

		users.EXPECT().
			GetByUsername(domain.Identity("bob")).
			Return(domain.Account{Username: "bob"}, nil)
		users.EXPECT().
			Save(gomock.Any()).
			DoAndReturn(func(account domain.Account) error {
				req.Len(account.Requests, 1)
				req.Equal(domain.Identity("alice"), account.Requests[0].From)
				req.Equal(domain.RequestPending, account.Requests[0].Status)
				return nil
			})

		req.NoError(svc.SendFriendRequest(context.Background(), "alice", "bob"))
	})

	t.Run("should reject a self request", func(t *testing.T) {
		req := require.New(t)
		svc, _, _ := newSocialFixture(t)

		err := svc.SendFriendRequest(context.Background(), "alice", "alice")
		req.ErrorIs(err, errors.ErrInvalidIdentity)
	})

	t.Run("should reject an existing friend", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newSocialFixture(t)

		users.EXPECT().
			GetByUsername(domain.Identity("bob")).
			Return(domain.Account{Username: "bob", Friends: []domain.Identity{"alice"}}, nil)

		err := svc.SendFriendRequest(context.Background(), "alice", "bob")
		req.ErrorIs(err, errors.ErrAlreadyFriends)
	})

	t.Run("should reject a duplicate pending request", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newSocialFixture(t)

		users.EXPECT().
			GetByUsername(domain.Identity("bob")).
			Return(domain.Account{
				Username: "bob",
				Requests: []domain.FriendRequest{{From: "alice", Status: domain.RequestPending}},
			}, nil)

		err := svc.SendFriendRequest(context.Background(), "alice", "bob")
		req.ErrorIs(err, errors.ErrRequestAlreadySent)
	})
}

func TestSocialService_AcceptFriendRequest(t *testing.T) {
	t.Run("should mirror the friendship on both accounts", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newSocialFixture(t)

		users.EXPECT().
			GetByUsername(domain.Identity("bob")).
			Return(domain.Account{
				Username: "bob",
				Requests: []domain.FriendRequest{{From: "alice", Status: domain.RequestPending}},
			}, nil)
		users.EXPECT().
			Save(gomock.Any()).
			DoAndReturn(func(account domain.Account) error {
				req.Equal(domain.Identity("bob"), account.Username)
				req.Contains(account.Friends, domain.Identity("alice"))
				req.Equal(domain.RequestAccepted, account.Requests[0].Status)
				return nil
			})
		users.EXPECT().
			GetByUsername(domain.Identity("alice")).
			Return(domain.Account{Username: "alice"}, nil)
		users.EXPECT().
			Save(gomock.Any()).
			DoAndReturn(func(account domain.Account) error {
				req.Equal(domain.Identity("alice"), account.Username)
				req.Contains(account.Friends, domain.Identity("bob"))
				return nil
			})

		req.NoError(svc.AcceptFriendRequest(context.Background(), "bob", "alice"))
	})

	t.Run("should fail without a pending request", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newSocialFixture(t)

		users.EXPECT().
			GetByUsername(domain.Identity("bob")).
			Return(domain.Account{Username: "bob"}, nil)

		err := svc.AcceptFriendRequest(context.Background(), "bob", "alice")
		req.ErrorIs(err, errors.ErrNoPendingRequest)
	})
}

func TestSocialService_CreateGroup(t *testing.T) {
	req := require.New(t)
	svc, users, groups := newSocialFixture(t)

	var created domain.Group
	groups.EXPECT().
		Create(gomock.Any()).
		DoAndReturn(func(g domain.Group) error {
			created = g
			return nil
		})

	// Membership lands on every account, the creator included
	saved := map[domain.Identity]domain.RoomKey{}
	for _, name := range []domain.Identity{"alice", "bob", "carol"} {
		users.EXPECT().
			GetByUsername(name).
			Return(domain.Account{Username: name}, nil)
	}
	users.EXPECT().
		Save(gomock.Any()).
		DoAndReturn(func(account domain.Account) error {
			req.Len(account.Groups, 1)
			saved[account.Username] = account.Groups[0]
			return nil
		}).
		Times(3)

	group, err := svc.CreateGroup(context.Background(), "alice", "hikers", "weekend walks",
		[]domain.Identity{"bob", "carol", "bob"})
	req.NoError(err)

	// The creator leads the deduplicated member list and is the only admin
	req.Equal([]domain.Identity{"alice", "bob", "carol"}, group.Members)
	req.Equal([]domain.Identity{"alice"}, group.Admins)
	req.True(group.Room.IsGroup())
	req.Equal(created.Room, group.Room)
	req.Len(saved, 3)
}

func TestSocialService_GroupsOfSkipsDanglingReferences(t *testing.T) {
	req := require.New(t)
	svc, users, groups := newSocialFixture(t)

	users.EXPECT().
		GetByUsername(domain.Identity("alice")).
		Return(domain.Account{
			Username: "alice",
			Groups:   []domain.RoomKey{"group:live", "group:gone"},
		}, nil)
	groups.EXPECT().
		Get(domain.RoomKey("group:live")).
		Return(domain.Group{Room: "group:live", Name: "hikers"}, nil)
	groups.EXPECT().
		Get(domain.RoomKey("group:gone")).
		Return(domain.Group{}, errors.ErrGroupNotFound)

	out, err := svc.GroupsOf("alice")
	req.NoError(err)
	req.Len(out, 1)
	req.Equal("hikers", out[0].Name)
}
