package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/runtime"
)

type ISocialService interface {
	SendFriendRequest(ctx context.Context, from, to domain.Identity) error
	AcceptFriendRequest(ctx context.Context, accepter, requester domain.Identity) error
	Friends(user domain.Identity) ([]domain.Identity, error)
	PendingRequests(user domain.Identity) ([]domain.FriendRequest, error)
	CreateGroup(ctx context.Context, creator domain.Identity, name, description string, members []domain.Identity) (domain.Group, error)
	AnnounceGroup(ctx context.Context, room domain.RoomKey, creator domain.Identity) error
	GroupsOf(user domain.Identity) ([]domain.Group, error)
}

// SocialService owns the friendship and group lifecycles. Storage mutations
// come first; the live relays through the orchestrator are best effort and
// happen only after the write sticks.
type SocialService struct {
	users        contract.UserDirectory
	groups       contract.GroupDirectory
	orchestrator *runtime.Orchestrator
}

func NewSocialService(users contract.UserDirectory, groups contract.GroupDirectory, o *runtime.Orchestrator) *SocialService {
	return &SocialService{users: users, groups: groups, orchestrator: o}
}

func (s *SocialService) SendFriendRequest(ctx context.Context, from, to domain.Identity) error {
	if from == to {
		return errors.ErrInvalidIdentity
	}

	target, err := s.users.GetByUsername(to)
	if err != nil {
		return err
	}
	if target.IsFriend(from) {
		return errors.ErrAlreadyFriends
	}
	if _, pending := target.PendingFrom(from); pending {
		return errors.ErrRequestAlreadySent
	}

	target.Requests = append(target.Requests, domain.FriendRequest{
		From:   from,
		Status: domain.RequestPending,
	})
	if err := s.users.Save(target); err != nil {
		return fmt.Errorf("saving request for %s: %w", to, err)
	}

	s.orchestrator.RelayFriendRequest(ctx, from, to)
	return nil
}

func (s *SocialService) AcceptFriendRequest(ctx context.Context, accepter, requester domain.Identity) error {
	account, err := s.users.GetByUsername(accepter)
	if err != nil {
		return err
	}

	idx, pending := account.PendingFrom(requester)
	if !pending {
		return errors.ErrNoPendingRequest
	}

	account.Requests[idx].Status = domain.RequestAccepted
	account.Friends = append(account.Friends, requester)
	if err := s.users.Save(account); err != nil {
		return fmt.Errorf("saving acceptance for %s: %w", accepter, err)
	}

	// The friendship is symmetric; mirror it on the requester's record.
	other, err := s.users.GetByUsername(requester)
	if err != nil {
		return err
	}
	if !other.IsFriend(accepter) {
		other.Friends = append(other.Friends, accepter)
		if err := s.users.Save(other); err != nil {
			return fmt.Errorf("saving mirror friendship for %s: %w", requester, err)
		}
	}

	s.orchestrator.RelayFriendAccept(ctx, accepter, requester)
	return nil
}

func (s *SocialService) Friends(user domain.Identity) ([]domain.Identity, error) {
	account, err := s.users.GetByUsername(user)
	if err != nil {
		return nil, err
	}
	return account.Friends, nil
}

func (s *SocialService) PendingRequests(user domain.Identity) ([]domain.FriendRequest, error) {
	account, err := s.users.GetByUsername(user)
	if err != nil {
		return nil, err
	}
	return lo.Filter(account.Requests, func(r domain.FriendRequest, _ int) bool {
		return r.Status == domain.RequestPending
	}), nil
}

func (s *SocialService) CreateGroup(ctx context.Context, creator domain.Identity, name, description string, members []domain.Identity) (domain.Group, error) {
	if name == "" {
		return domain.Group{}, fmt.Errorf("group name is required")
	}

	// The creator is always a member and the first admin.
	all := lo.Uniq(append([]domain.Identity{creator}, members...))
	group := domain.Group{
		Room:        domain.RoomKey(domain.GroupPrefix + uuid.NewString()),
		Name:        name,
		Description: description,
		Members:     all,
		Admins:      []domain.Identity{creator},
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.groups.Create(group); err != nil {
		return domain.Group{}, fmt.Errorf("creating group %s: %w", name, err)
	}

	// Record membership on each account so offline members find the group
	// at next login.
	for _, member := range all {
		account, err := s.users.GetByUsername(member)
		if err != nil {
			continue
		}
		account.Groups = append(account.Groups, group.Room)
		if err := s.users.Save(account); err != nil {
			return domain.Group{}, fmt.Errorf("recording membership for %s: %w", member, err)
		}
	}

	s.orchestrator.RelayGroupAdded(ctx, group, creator)
	return group, nil
}

// AnnounceGroup re-broadcasts an existing group to its online members.
// Clients emit it over the socket after creating a group through REST so
// members connected to other nodes still hear about it live.
func (s *SocialService) AnnounceGroup(ctx context.Context, room domain.RoomKey, creator domain.Identity) error {
	group, err := s.groups.Get(room)
	if err != nil {
		return err
	}
	s.orchestrator.RelayGroupAdded(ctx, group, creator)
	return nil
}

func (s *SocialService) GroupsOf(user domain.Identity) ([]domain.Group, error) {
	account, err := s.users.GetByUsername(user)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(account.Groups))
	for _, room := range account.Groups {
		group, err := s.groups.Get(room)
		if err != nil {
			// A dangling reference is skipped, not fatal.
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}
