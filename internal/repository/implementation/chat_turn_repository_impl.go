package implementation

import (
	"context"
	"errors"

	"ai-policyqa-be/internal/entity"
	"ai-policyqa-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatTurnRepositoryImpl struct {
	db *gorm.DB
}

func NewChatTurnRepository(db *gorm.DB) contract.ChatTurnRepository {
	return &ChatTurnRepositoryImpl{db: db}
}

func (r *ChatTurnRepositoryImpl) Create(ctx context.Context, turn *entity.ChatTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

func (r *ChatTurnRepositoryImpl) FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*entity.ChatTurn, error) {
	var turns []*entity.ChatTurn
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadId).
		Order("created_at ASC").
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *ChatTurnRepositoryImpl) FindByCorrelationId(ctx context.Context, correlationId uuid.UUID) (*entity.ChatTurn, error) {
	var turn entity.ChatTurn
	err := r.db.WithContext(ctx).Where("correlation_id = ?", correlationId).First(&turn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &turn, nil
}

type ThreadSnapshotRepositoryImpl struct {
	db *gorm.DB
}

func NewThreadSnapshotRepository(db *gorm.DB) contract.ThreadSnapshotRepository {
	return &ThreadSnapshotRepositoryImpl{db: db}
}

func (r *ThreadSnapshotRepositoryImpl) Upsert(ctx context.Context, snapshot *entity.ThreadSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state_json", "updated_at"}),
		}).
		Create(snapshot).Error
}

func (r *ThreadSnapshotRepositoryImpl) FindByThreadId(ctx context.Context, threadId uuid.UUID) (*entity.ThreadSnapshot, error) {
	var snapshot entity.ThreadSnapshot
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadId).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}
