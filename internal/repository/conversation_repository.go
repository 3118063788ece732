package repository

import (
	"context"
	"errors"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, seekerUID, companyUID string) (*model.Conversation, error)
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID uint64) ([]model.Message, error)
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, seekerUID, companyUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	cv := model.Conversation{SeekerUID: seekerUID, CompanyUID: companyUID}
	err := r.db.WithContext(ctx).
		Where("seeker_uid = ? AND company_uid = ?", seekerUID, companyUID).
		FirstOrCreate(&cv).Error
	if err == nil {
		return &cv, nil
	}
	// A concurrent create for the same pair can trip the unique index
	// between the find and the insert; the winner's row is the answer.
	var existing model.Conversation
	if ferr := r.db.WithContext(ctx).
		Where("seeker_uid = ? AND company_uid = ?", seekerUID, companyUID).
		First(&existing).Error; ferr == nil {
		return &existing, nil
	}
	return nil, err
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("seeker_uid = ? OR company_uid = ?", uid, uid).
		Order("updated_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	// Touch the parent so conversation lists sort by recent activity.
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("updated_at", msg.CreatedAt).Error
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
