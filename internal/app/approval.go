package app

import (
	"context"
	"fmt"
	"log"
	"sort"

	"study-vault/internal/domain"
)

// ApprovalService drives the teacher review of share-requested resources.
//
//	pending (approved=false) --Approve--> approved (+5 XP, notification)
//	pending/approved         --Reject---> deleted  (notification)
type ApprovalService struct {
	store    Store
	notifier *NotificationService
	blobs    BlobStore
}

func NewApprovalService(store Store, notifier *NotificationService, blobs BlobStore) *ApprovalService {
	return &ApprovalService{store: store, notifier: notifier, blobs: blobs}
}

// Pending lists resources awaiting review, oldest first.
func (s *ApprovalService) Pending(ctx context.Context, teacherID string) ([]domain.Resource, error) {
	pending := false
	var out []domain.Resource
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListResources(ctx, domain.ResourceFilter{Approved: &pending})
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Approve publishes a pending resource, awards the author and notifies them. The transition is
// only valid from pending; a second approval fails without side effects.
func (s *ApprovalService) Approve(ctx context.Context, teacherID, resourceID string) (domain.Resource, error) {
	var (
		res    domain.Resource
		notice domain.Notification
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		var err error
		res, err = tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.Approved {
			return domain.ErrAlreadyApproved
		}
		res.Approved = true
		if err := tx.UpdateResource(ctx, res); err != nil {
			return err
		}
		if _, err := tx.AddXP(ctx, res.AuthorID, domain.ApprovalXP); err != nil {
			return err
		}
		notice, err = record(ctx, tx, res.AuthorID, approvedMessage(res.Title))
		return err
	})
	if err != nil {
		return domain.Resource{}, err
	}
	s.notifier.deliver(ctx, notice)
	return res, nil
}

// Reject deletes the resource (with its quiz and like links) and notifies the author.
func (s *ApprovalService) Reject(ctx context.Context, teacherID, resourceID string) error {
	var (
		res    domain.Resource
		notice domain.Notification
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		var err error
		res, err = tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if err := tx.DeleteResource(ctx, res.ID); err != nil {
			return err
		}
		notice, err = record(ctx, tx, res.AuthorID, rejectedMessage(res.Title))
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.deliver(ctx, notice)
	removeBlob(ctx, s.blobs, res.FileKey)
	return nil
}

func approvedMessage(title string) string {
	return fmt.Sprintf("Your resource %q has been approved. You earned %d XP points!", title, domain.ApprovalXP)
}

func rejectedMessage(title string) string {
	return fmt.Sprintf("Your resource %q has been rejected.", title)
}

// removeBlob deletes a stored document after its record is gone. Failures only leave an
// unreferenced blob behind, so they are logged.
func removeBlob(ctx context.Context, blobs BlobStore, key string) {
	if blobs == nil || key == "" {
		return
	}
	if err := blobs.Delete(ctx, key); err != nil {
		log.Printf("blob %s: delete failed: %v", key, err)
	}
}
