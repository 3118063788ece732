package service

import (
	"context"
	"errors"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/jobdesk/jobdesk-backend/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

type ConversationService interface {
	FindOrCreate(ctx context.Context, seekerUID, companyUID, callerUID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error)
	ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error)
	CreateMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error)
}

type conversationService struct {
	convRepo repository.ConversationRepository
	notifSvc NotificationService
}

func NewConversationService(convRepo repository.ConversationRepository, notifSvc NotificationService) ConversationService {
	return &conversationService{convRepo: convRepo, notifSvc: notifSvc}
}

func (s *conversationService) FindOrCreate(ctx context.Context, seekerUID, companyUID, callerUID string) (*model.Conversation, error) {
	if seekerUID == "" || companyUID == "" {
		return nil, errors.New("seekerUid and companyUid are required")
	}
	if seekerUID == companyUID {
		return nil, errors.New("cannot chat with yourself")
	}
	if callerUID != seekerUID && callerUID != companyUID {
		return nil, ErrForbidden
	}
	return s.convRepo.FindOrCreate(ctx, seekerUID, companyUID)
}

func (s *conversationService) ListByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	return s.convRepo.FindByUser(ctx, uid)
}

func (s *conversationService) Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if cv.SeekerUID != uid && cv.CompanyUID != uid {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return nil, err
	}
	return s.convRepo.ListMessages(ctx, convID)
}

func (s *conversationService) CreateMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error) {
	if body == "" {
		return nil, errors.New("body is required")
	}
	cv, err := s.Get(ctx, convID, uid)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      uid,
		Body:           body,
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if s.notifSvc != nil {
		other := cv.SeekerUID
		if uid == cv.SeekerUID {
			other = cv.CompanyUID
		}
		s.notifSvc.Notify(ctx, other, "message", "New message", body, &convID)
	}
	return msg, nil
}
