package services

import (
	"context"
	"errors"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharingService manages share grants between users and per-user stars
type SharingService struct {
	entryRepo repository.EntryRepository
	shareRepo repository.ShareRepository
	starRepo  repository.StarRepository
	userRepo  repository.UserRepository
	email     EmailService
	logger    *pkg.Logger
}

// NewSharingService creates a new sharing service
func NewSharingService(
	entryRepo repository.EntryRepository,
	shareRepo repository.ShareRepository,
	starRepo repository.StarRepository,
	userRepo repository.UserRepository,
	email EmailService,
	logger *pkg.Logger,
) *SharingService {
	return &SharingService{
		entryRepo: entryRepo,
		shareRepo: shareRepo,
		starRepo:  starRepo,
		userRepo:  userRepo,
		email:     email,
		logger:    logger,
	}
}

// ShareRequest names the grantee by email and the entries to grant. The
// All form covers the browsed folder's direct children; ParentID scopes
// it, nil meaning the root.
type ShareRequest struct {
	Email    string               `json:"email" validate:"required,email"`
	IDs      []primitive.ObjectID `json:"ids"`
	All      bool                 `json:"all"`
	ParentID *primitive.ObjectID  `json:"parentId,omitempty"`
}

// SharedEntry pairs a shared entry with the counterparty of the grant
type SharedEntry struct {
	Entry    *models.Entry `json:"entry"`
	User     *models.User  `json:"user"`
	SharedAt string        `json:"sharedAt"`
}

// Share grants the recipient access to the owner's selected entries. An
// unknown recipient email succeeds without effect so the endpoint cannot
// be used to probe accounts. Already-granted entries are skipped;
// notification failures are logged and swallowed.
func (s *SharingService) Share(ctx context.Context, owner *models.User, req *ShareRequest) error {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return pkg.ErrValidationFailed.WithDetails(map[string]interface{}{
			"errors": err,
		})
	}
	if !req.All && len(req.IDs) == 0 {
		return pkg.ErrEmptySelection
	}

	recipient, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrUserNotFound) {
			return nil
		}
		return err
	}

	if recipient.ID == owner.ID {
		return nil
	}

	entries, err := s.resolveShareTargets(ctx, owner.ID, req)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		// Sharing an empty folder's contents is a silent no-op
		if req.All {
			return nil
		}
		return pkg.ErrEntryNotFound
	}

	entryIDs := make([]primitive.ObjectID, len(entries))
	for i, entry := range entries {
		entryIDs[i] = entry.ID
	}
	already, err := s.shareRepo.SharedEntryIDs(ctx, entryIDs, recipient.ID)
	if err != nil {
		return err
	}

	var shares []*models.Share
	var granted []*models.Entry
	for _, entry := range entries {
		if already[entry.ID] {
			continue
		}
		shares = append(shares, &models.Share{
			EntryID: entry.ID,
			UserID:  recipient.ID,
		})
		granted = append(granted, entry)
	}

	if len(shares) == 0 {
		return nil
	}

	if err := s.shareRepo.CreateMany(ctx, shares); err != nil {
		return err
	}

	if err := s.email.NotifyShared(recipient, owner, granted); err != nil {
		s.logger.Warn("share notification not delivered", map[string]interface{}{
			"recipient": recipient.Email,
		})
	}

	return nil
}

// resolveShareTargets expands a share request into concrete entries: the
// browsed folder's live children for the All form, an owner-scoped id
// lookup otherwise
func (s *SharingService) resolveShareTargets(ctx context.Context, ownerID primitive.ObjectID, req *ShareRequest) ([]*models.Entry, error) {
	if req.All {
		folder, err := resolveBrowsedFolder(ctx, s.entryRepo, ownerID, req.ParentID)
		if err != nil {
			return nil, err
		}
		return s.entryRepo.ListChildren(ctx, folder.ID)
	}

	return s.entryRepo.FindByIDs(ctx, ownerID, req.IDs)
}

// ToggleStar flips the actor's star on an entry and reports the new state
func (s *SharingService) ToggleStar(ctx context.Context, actorID, entryID primitive.ObjectID) (bool, error) {
	entry, err := s.entryRepo.GetUnscoped(ctx, entryID)
	if err != nil {
		return false, err
	}

	if !entry.IsOwnedBy(actorID) {
		shared, err := s.shareRepo.Exists(ctx, entry.ID, actorID)
		if err != nil {
			return false, err
		}
		if !shared {
			return false, pkg.ErrForbidden
		}
	}

	_, err = s.starRepo.Get(ctx, entry.ID, actorID)
	if err == nil {
		if err := s.starRepo.Delete(ctx, entry.ID, actorID); err != nil {
			return false, err
		}
		return false, nil
	}
	if !errors.Is(err, pkg.ErrEntryNotFound) {
		return false, err
	}

	if err := s.starRepo.Create(ctx, &models.Star{EntryID: entry.ID, UserID: actorID}); err != nil {
		return false, err
	}

	return true, nil
}

// SharedWithMe lists entries other users granted to the actor, newest
// grant first, optionally narrowed by name search. Grants whose entry was
// purged since are skipped.
func (s *SharingService) SharedWithMe(ctx context.Context, actorID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*SharedEntry, int64, error) {
	shares, err := s.shareRepo.ListByGrantee(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	results := make([]*SharedEntry, 0, len(shares))
	for _, share := range shares {
		entry, err := s.entryRepo.GetUnscoped(ctx, share.EntryID)
		if err != nil {
			continue
		}
		if search != "" && !pkg.Strings.Contains(entry.Name, search) {
			continue
		}
		owner, err := s.userRepo.GetByID(ctx, entry.OwnerID)
		if err != nil {
			continue
		}
		results = append(results, &SharedEntry{
			Entry:    entry,
			User:     owner,
			SharedAt: share.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return paginateShared(results, params)
}

// SharedByMe lists the actor's entries that carry at least one grant,
// paired with each grantee.
func (s *SharingService) SharedByMe(ctx context.Context, actorID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*SharedEntry, int64, error) {
	entries, err := s.entryRepo.FindOwned(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]primitive.ObjectID, 0, len(entries))
	byID := make(map[primitive.ObjectID]*models.Entry, len(entries))
	for _, entry := range entries {
		if search != "" && !pkg.Strings.Contains(entry.Name, search) {
			continue
		}
		ids = append(ids, entry.ID)
		byID[entry.ID] = entry
	}

	shares, err := s.shareRepo.ListByEntryIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	results := make([]*SharedEntry, 0, len(shares))
	for _, share := range shares {
		entry, ok := byID[share.EntryID]
		if !ok {
			continue
		}
		grantee, err := s.userRepo.GetByID(ctx, share.UserID)
		if err != nil {
			continue
		}
		results = append(results, &SharedEntry{
			Entry:    entry,
			User:     grantee,
			SharedAt: share.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return paginateShared(results, params)
}

// paginateShared slices a joined share listing into the requested page
func paginateShared(results []*SharedEntry, params *pkg.PaginationParams) ([]*SharedEntry, int64, error) {
	total := int64(len(results))

	start := params.GetOffset()
	if start >= len(results) {
		return []*SharedEntry{}, total, nil
	}

	end := start + params.Limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], total, nil
}
